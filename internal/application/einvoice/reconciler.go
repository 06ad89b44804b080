package einvoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/buku-api/internal/domain"
	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/internal/domain/repository"
	"github.com/jhoicas/buku-api/internal/infrastructure/myinvois"
	"github.com/jhoicas/buku-api/pkg/logger"
)

// DefaultPollBatchSize envíos pendientes revisados por barrido.
const DefaultPollBatchSize = 50

// PollSummary resultado de un barrido.
type PollSummary struct {
	Scanned   int
	Succeeded int
	Failed    int
}

// Reconciler consulta a la autoridad el resultado de los envíos aceptados y lo persiste.
// Los fallos de red o de la autoridad se registran y se ignoran: el envío queda como estaba
// para el siguiente barrido.
type Reconciler struct {
	submissions repository.EInvoiceSubmissionRepository
	txRunner    TxRunner
	tokens      *TokenManager
	authority   myinvois.Authority
	events      EventPublisher
	log         *logger.Logger
	now         func() time.Time
	batchSize   int
}

// NewReconciler construye el reconciliador. events puede ser nil.
func NewReconciler(
	submissions repository.EInvoiceSubmissionRepository,
	txRunner TxRunner,
	tokens *TokenManager,
	authority myinvois.Authority,
	events EventPublisher,
	log *logger.Logger,
) *Reconciler {
	if events == nil {
		events = NoopPublisher{}
	}
	return &Reconciler{
		submissions: submissions,
		txRunner:    txRunner,
		tokens:      tokens,
		authority:   authority,
		events:      events,
		log:         log,
		now:         time.Now,
		batchSize:   DefaultPollBatchSize,
	}
}

// WithClock reemplaza el reloj (tests).
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// WithBatchSize fija el tamaño del barrido; valores <= 0 se ignoran.
func (r *Reconciler) WithBatchSize(n int) *Reconciler {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// Poll consulta el estado de un envío de la empresa. Sin document_uid devuelve la fila sin cambios.
func (r *Reconciler) Poll(ctx context.Context, companyID, submissionID string) (*entity.EInvoiceSubmission, error) {
	s, err := r.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	s, _, err = r.poll(ctx, s)
	return s, err
}

// PollPending revisa en secuencia los envíos pending más recientes. Un fallo individual no
// detiene el barrido; solo cuentan como éxito los envíos consultados sin error.
func (r *Reconciler) PollPending(ctx context.Context) (PollSummary, error) {
	var summary PollSummary
	rows, err := r.submissions.ListPending(ctx, r.batchSize)
	if err != nil {
		return summary, fmt.Errorf("listar envíos pendientes: %w", err)
	}
	for _, s := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++
		_, transient, err := r.poll(ctx, s)
		if err != nil {
			r.log.Error().Err(err).Str("submission_id", s.ID).Msg("error persistiendo resultado del poll")
			summary.Failed++
			continue
		}
		if transient {
			summary.Failed++
			continue
		}
		summary.Succeeded++
	}
	r.log.Info().
		Int("scanned", summary.Scanned).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("barrido de estados MyInvois")
	return summary, nil
}

// poll devuelve transient=true cuando el fallo fue de token o de la autoridad (ya registrado).
// Solo los errores de persistencia se devuelven.
func (r *Reconciler) poll(ctx context.Context, s *entity.EInvoiceSubmission) (*entity.EInvoiceSubmission, bool, error) {
	if !s.HasDocumentUID() {
		return s, false, nil
	}
	session, err := r.tokens.Session(ctx, s.CompanyID, false)
	if err != nil {
		r.warnTransient(s, err)
		return s, true, nil
	}
	details, err := r.authority.GetDocumentDetails(ctx, session.Environment, session.Token, s.DocumentUID)
	if err != nil {
		r.warnTransient(s, err)
		return s, true, nil
	}

	now := r.now()
	raw := strings.ToLower(strings.TrimSpace(details.Status))
	status, known := entity.AuthorityStatus(raw)
	var outcome entity.PollOutcome
	switch {
	case known && s.AcceptsAuthorityStatus():
		outcome = s.ApplyAuthorityStatus(status, details.LongID, now)
	case known:
		if status != s.Status {
			r.log.Info().
				Str("submission_id", s.ID).
				Str("document_uid", s.DocumentUID).
				Str("local_status", string(s.Status)).
				Str("status", details.Status).
				Msg("fila en estado final; solo se guarda la respuesta")
		}
	default:
		r.log.Warn().
			Str("submission_id", s.ID).
			Str("document_uid", s.DocumentUID).
			Str("status", details.Status).
			Msg("estado desconocido de MyInvois; se conserva el actual")
	}
	if len(details.Raw) > 0 {
		s.LastResponse = details.Raw
	}
	if reason := strings.TrimSpace(details.DocumentStatusReason); reason != "" && outcome.Changed && s.Status != entity.SubmissionValid {
		s.ErrorMessage = reason
	}
	s.UpdatedAt = now

	// long_id hacia la factura o nota crédito la primera vez que se conoce, aunque llegue
	// en un poll posterior al primer Valid.
	if outcome.LongIDSet && s.Status == entity.SubmissionValid {
		err = r.txRunner.RunEInvoice(ctx, func(
			subs repository.EInvoiceSubmissionRepository,
			invoices repository.InvoiceRepository,
			creditNotes repository.CreditNoteRepository,
		) error {
			if err := subs.Update(ctx, s); err != nil {
				return err
			}
			if id, ok := s.Subject.InvoiceID(); ok {
				return invoices.SetEInvoiceLongID(ctx, id, s.LongID)
			}
			if id, ok := s.Subject.CreditNoteID(); ok {
				return creditNotes.SetEInvoiceLongID(ctx, id, s.LongID)
			}
			return nil
		})
	} else {
		err = r.submissions.Update(ctx, s)
	}
	if err != nil {
		return nil, false, fmt.Errorf("guardar resultado del poll: %w", err)
	}

	if outcome.Changed {
		r.log.Info().
			Str("submission_id", s.ID).
			Str("document_uid", s.DocumentUID).
			Str("status", string(s.Status)).
			Msg("estado de envío actualizado")
		publish(ctx, r.events, r.log, newSubmissionEvent(EventStatusChanged, s, now))
	}
	return s, false, nil
}

func (r *Reconciler) warnTransient(s *entity.EInvoiceSubmission, err error) {
	r.log.Warn().
		Err(fmt.Errorf("%w: %w", domain.ErrTransientPoll, err)).
		Str("submission_id", s.ID).
		Str("document_uid", s.DocumentUID).
		Msg("poll MyInvois falló; se reintentará en el próximo barrido")
}
