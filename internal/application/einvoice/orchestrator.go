package einvoice

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/buku-api/internal/domain"
	domaineinvoice "github.com/jhoicas/buku-api/internal/domain/einvoice"
	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/internal/domain/repository"
	"github.com/jhoicas/buku-api/internal/infrastructure/myinvois"
	"github.com/jhoicas/buku-api/pkg/logger"
	pkgmyinvois "github.com/jhoicas/buku-api/pkg/myinvois"
)

// documentFormat formato de envío del documento.
const documentFormat = "JSON"

// Orchestrator conduce el envío de documentos a MyInvois:
//
//	build → serializar → (firmar) → hash → fila pending → envío por lote → poll inmediato
//
// Los fallos del envío se propagan al llamador; los del poll posterior no.
type Orchestrator struct {
	tokens      *TokenManager
	authority   myinvois.Authority
	builder     *myinvois.DocumentBuilder
	reconciler  *Reconciler
	submissions repository.EInvoiceSubmissionRepository
	invoices    repository.InvoiceRepository
	creditNotes repository.CreditNoteRepository
	customers   repository.CustomerRepository
	profiles    repository.BusinessProfileRepository
	events      EventPublisher
	log         *logger.Logger
	now         func() time.Time

	signer pkgmyinvois.Signer // nil = documentos v1.0 sin firma
	cert   tls.Certificate
}

// NewOrchestrator construye el orquestador. events puede ser nil.
func NewOrchestrator(
	tokens *TokenManager,
	authority myinvois.Authority,
	builder *myinvois.DocumentBuilder,
	reconciler *Reconciler,
	submissions repository.EInvoiceSubmissionRepository,
	invoices repository.InvoiceRepository,
	creditNotes repository.CreditNoteRepository,
	customers repository.CustomerRepository,
	profiles repository.BusinessProfileRepository,
	events EventPublisher,
	log *logger.Logger,
) *Orchestrator {
	if events == nil {
		events = NoopPublisher{}
	}
	return &Orchestrator{
		tokens:      tokens,
		authority:   authority,
		builder:     builder,
		reconciler:  reconciler,
		submissions: submissions,
		invoices:    invoices,
		creditNotes: creditNotes,
		customers:   customers,
		profiles:    profiles,
		events:      events,
		log:         log,
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// WithSigner activa la firma digital (documentos v1.1) con el certificado dado.
func (o *Orchestrator) WithSigner(signer pkgmyinvois.Signer, cert tls.Certificate) *Orchestrator {
	o.signer = signer
	o.cert = cert
	return o
}

// ── Envío ─────────────────────────────────────────────────────────────────────

// Submit envía la factura o nota crédito referenciada.
//
// Con al menos un documento aceptado la fila queda en pending con document_uid y se consulta
// su estado de inmediato. Sin documentos aceptados la fila queda invalid y se devuelve junto
// con un *domain.RejectionError. Un fallo de red marca la fila invalid y devuelve el error.
func (o *Orchestrator) Submit(ctx context.Context, companyID string, subject entity.SubjectRef) (*entity.EInvoiceSubmission, error) {
	if subject.IsZero() {
		return nil, fmt.Errorf("%w: documento requerido", domain.ErrInvalidInput)
	}
	latest, err := o.submissions.GetLatestBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.CompanyID == companyID && latest.IsOutstanding() {
		return nil, fmt.Errorf("%w: el documento ya tiene un envío %s", domain.ErrConflict, latest.Status)
	}
	return o.submit(ctx, companyID, subject, 0)
}

// Retry reenvía el documento de un envío invalid o rejected. Crea una fila nueva con
// retry_count + 1; la fila original no se modifica.
func (o *Orchestrator) Retry(ctx context.Context, companyID, submissionID string) (*entity.EInvoiceSubmission, error) {
	prev, err := o.getOwned(ctx, companyID, submissionID)
	if err != nil {
		return nil, err
	}
	if !prev.IsRetryable() {
		return nil, fmt.Errorf("%w: solo se reintentan envíos inválidos o rechazados (estado %s)", domain.ErrConflict, prev.Status)
	}
	latest, err := o.submissions.GetLatestBySubject(ctx, prev.Subject)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.ID != prev.ID {
		return nil, fmt.Errorf("%w: existe un envío más reciente para el documento", domain.ErrConflict)
	}
	return o.submit(ctx, companyID, prev.Subject, prev.RetryCount+1)
}

func (o *Orchestrator) submit(ctx context.Context, companyID string, subject entity.SubjectRef, retryCount int) (*entity.EInvoiceSubmission, error) {
	doc, err := o.loadDocument(ctx, companyID, subject)
	if err != nil {
		return nil, err
	}
	session, err := o.tokens.Session(ctx, companyID, false)
	if err != nil {
		return nil, err
	}
	serialized, err := o.serialize(doc.build)
	if err != nil {
		return nil, err
	}
	digest, err := domaineinvoice.ComputeDigest(serialized)
	if err != nil {
		return nil, err
	}

	now := o.now()
	s := &entity.EInvoiceSubmission{
		ID:              uuid.New().String(),
		CompanyID:       companyID,
		Subject:         subject,
		ParentInvoiceID: doc.parentInvoiceID,
		Kind:            doc.kind,
		Status:          entity.SubmissionPending,
		DocumentHash:    digest.Hash,
		SubmittedAt:     &now,
		RetryCount:      retryCount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := o.submissions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("crear envío: %w", err)
	}

	resp, err := o.authority.SubmitDocuments(ctx, session.Environment, session.Token, []myinvois.SubmissionDocument{{
		Format:       documentFormat,
		DocumentHash: digest.Hash,
		CodeNumber:   doc.build.Number,
		Document:     digest.Payload,
	}})
	if err != nil {
		sendErr := fmt.Errorf("enviar documento %s: %w", doc.build.Number, err)
		s.Status = entity.SubmissionInvalid
		s.ErrorMessage = err.Error()
		s.UpdatedAt = o.now()
		if uerr := o.submissions.Update(ctx, s); uerr != nil {
			// la fila sigue pending sin document_uid en la base: no se devuelve
			o.log.Error().Err(uerr).Str("submission_id", s.ID).Msg("no se pudo marcar el envío como inválido")
			return nil, errors.Join(sendErr, fmt.Errorf("marcar envío %s como inválido: %w", s.ID, uerr))
		}
		publish(ctx, o.events, o.log, newSubmissionEvent(EventStatusChanged, s, s.UpdatedAt))
		return s, sendErr
	}

	s.SubmissionUID = resp.SubmissionUID
	s.LastResponse = resp.Raw
	s.UpdatedAt = o.now()
	if len(resp.AcceptedDocuments) == 0 {
		rejection := rejectionFrom(resp)
		s.Status = entity.SubmissionInvalid
		s.ErrorMessage = rejection.Error()
		if err := o.submissions.Update(ctx, s); err != nil {
			return nil, fmt.Errorf("guardar rechazo: %w", err)
		}
		o.log.Warn().
			Str("submission_id", s.ID).
			Str("number", doc.build.Number).
			Msg("MyInvois rechazó el documento")
		publish(ctx, o.events, o.log, newSubmissionEvent(EventStatusChanged, s, s.UpdatedAt))
		return s, rejection
	}

	s.DocumentUID = resp.AcceptedDocuments[0].UUID
	if err := o.submissions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("guardar aceptación: %w", err)
	}
	o.log.Info().
		Str("submission_id", s.ID).
		Str("document_uid", s.DocumentUID).
		Str("number", doc.build.Number).
		Msg("documento aceptado por MyInvois")
	publish(ctx, o.events, o.log, newSubmissionEvent(EventSubmitted, s, s.UpdatedAt))

	if polled, _, err := o.reconciler.poll(ctx, s); err != nil {
		o.log.Warn().Err(err).Str("submission_id", s.ID).Msg("poll inmediato falló")
	} else {
		s = polled
	}
	return s, nil
}

// ── Consolidado ───────────────────────────────────────────────────────────────

// ConsolidatedResult documento consolidado enviado y respuesta cruda de la autoridad.
type ConsolidatedResult struct {
	Number       string
	DocumentHash string
	Response     *myinvois.SubmitResponse
}

// SubmitConsolidated envía un consolidado B2C del periodo sin fila de seguimiento; el llamador
// registra el resultado. Sin documentos aceptados devuelve el resultado y un *domain.RejectionError.
func (o *Orchestrator) SubmitConsolidated(ctx context.Context, companyID string, period myinvois.Period, txs []myinvois.ConsolidatedTransaction) (*ConsolidatedResult, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("%w: el consolidado requiere al menos una transacción", domain.ErrInvalidInput)
	}
	if period.End.Before(period.Start) {
		return nil, fmt.Errorf("%w: periodo inválido", domain.ErrInvalidInput)
	}
	profile, err := o.profile(ctx, companyID)
	if err != nil {
		return nil, err
	}
	session, err := o.tokens.Session(ctx, companyID, false)
	if err != nil {
		return nil, err
	}

	number := "CONS-" + period.Start.Format("200601")
	build := myinvois.ConsolidatedContext(number, o.now(), period, txs, profile)
	serialized, err := o.serialize(build)
	if err != nil {
		return nil, err
	}
	digest, err := domaineinvoice.ComputeDigest(serialized)
	if err != nil {
		return nil, err
	}
	resp, err := o.authority.SubmitDocuments(ctx, session.Environment, session.Token, []myinvois.SubmissionDocument{{
		Format:       documentFormat,
		DocumentHash: digest.Hash,
		CodeNumber:   number,
		Document:     digest.Payload,
	}})
	if err != nil {
		return nil, fmt.Errorf("enviar consolidado %s: %w", number, err)
	}
	result := &ConsolidatedResult{Number: number, DocumentHash: digest.Hash, Response: resp}
	o.log.Info().
		Str("company_id", companyID).
		Str("number", number).
		Int("transactions", len(txs)).
		Int("accepted", len(resp.AcceptedDocuments)).
		Msg("consolidado enviado a MyInvois")
	if len(resp.AcceptedDocuments) == 0 {
		return result, rejectionFrom(resp)
	}
	return result, nil
}

// ── Anulación ─────────────────────────────────────────────────────────────────

// Cancel anula un envío válido ante la autoridad. Sin document_uid, o fuera del estado valid,
// falla con domain.ErrInvalidCancellation sin llamar a la red ni modificar la fila.
func (o *Orchestrator) Cancel(ctx context.Context, companyID, submissionID, reason string) (*entity.EInvoiceSubmission, error) {
	s, err := o.getOwned(ctx, companyID, submissionID)
	if err != nil {
		return nil, err
	}
	if !s.HasDocumentUID() {
		return nil, fmt.Errorf("%w: el envío no tiene documento aceptado por la autoridad", domain.ErrInvalidCancellation)
	}
	if !s.CanTransitionTo(entity.SubmissionCancelled) {
		return nil, fmt.Errorf("%w: solo se anulan documentos válidos (estado %s)", domain.ErrInvalidCancellation, s.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: motivo de anulación requerido", domain.ErrInvalidInput)
	}

	session, err := o.tokens.Session(ctx, companyID, false)
	if err != nil {
		return nil, err
	}
	resp, err := o.authority.CancelDocument(ctx, session.Environment, session.Token, s.DocumentUID, reason)
	if err != nil {
		return nil, fmt.Errorf("anular documento %s: %w", s.DocumentUID, err)
	}

	now := o.now()
	s.Status = entity.SubmissionCancelled
	s.CancelledAt = &now
	s.UpdatedAt = now
	if len(resp.Raw) > 0 {
		s.LastResponse = resp.Raw
	}
	if err := o.submissions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("guardar anulación: %w", err)
	}
	o.log.Info().
		Str("submission_id", s.ID).
		Str("document_uid", s.DocumentUID).
		Str("reason", reason).
		Msg("documento anulado en MyInvois")
	publish(ctx, o.events, o.log, newSubmissionEvent(EventCancelled, s, now))
	return s, nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

// CurrentStatus devuelve el envío más reciente del documento.
func (o *Orchestrator) CurrentStatus(ctx context.Context, companyID string, subject entity.SubjectRef) (*entity.EInvoiceSubmission, error) {
	if subject.IsZero() {
		return nil, fmt.Errorf("%w: documento requerido", domain.ErrInvalidInput)
	}
	s, err := o.submissions.GetLatestBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if s == nil || s.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

// History lista todos los envíos del documento, del más reciente al más antiguo.
func (o *Orchestrator) History(ctx context.Context, companyID string, subject entity.SubjectRef) ([]*entity.EInvoiceSubmission, error) {
	if subject.IsZero() {
		return nil, fmt.Errorf("%w: documento requerido", domain.ErrInvalidInput)
	}
	rows, err := o.submissions.ListBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.EInvoiceSubmission, 0, len(rows))
	for _, s := range rows {
		if s.CompanyID == companyID {
			out = append(out, s)
		}
	}
	return out, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

type sourceDocument struct {
	build           *myinvois.DocumentBuildContext
	kind            entity.SubmissionKind
	parentInvoiceID string
}

func (o *Orchestrator) loadDocument(ctx context.Context, companyID string, subject entity.SubjectRef) (*sourceDocument, error) {
	profile, err := o.profile(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if id, ok := subject.InvoiceID(); ok {
		return o.loadInvoice(ctx, companyID, id, profile)
	}
	if id, ok := subject.CreditNoteID(); ok {
		return o.loadCreditNote(ctx, companyID, id, profile)
	}
	return nil, fmt.Errorf("%w: documento requerido", domain.ErrInvalidInput)
}

func (o *Orchestrator) loadInvoice(ctx context.Context, companyID, id string, profile *entity.BusinessProfile) (*sourceDocument, error) {
	inv, err := o.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.CompanyID != companyID {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
	}
	items, err := o.invoices.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateTotals(inv.Number, domaineinvoice.Totals{Subtotal: inv.Subtotal, TaxTotal: inv.TaxTotal, Total: inv.Total}, items); err != nil {
		return nil, err
	}
	customer, err := o.customer(ctx, companyID, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	return &sourceDocument{
		build: myinvois.InvoiceContext(inv, items, customer, profile),
		kind:  entity.KindInvoice,
	}, nil
}

func (o *Orchestrator) loadCreditNote(ctx context.Context, companyID, id string, profile *entity.BusinessProfile) (*sourceDocument, error) {
	cn, err := o.creditNotes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cn == nil || cn.CompanyID != companyID {
		return nil, fmt.Errorf("%w: nota crédito %s", domain.ErrNotFound, id)
	}
	items, err := o.creditNotes.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateTotals(cn.Number, domaineinvoice.Totals{Subtotal: cn.Subtotal, TaxTotal: cn.TaxTotal, Total: cn.Total}, items); err != nil {
		return nil, err
	}
	customer, err := o.customer(ctx, companyID, cn.CustomerID)
	if err != nil {
		return nil, err
	}
	parent, err := o.invoices.GetByID(ctx, cn.InvoiceID)
	if err != nil {
		return nil, err
	}
	if parent == nil || parent.CompanyID != companyID {
		return nil, fmt.Errorf("%w: factura de origen %s", domain.ErrNotFound, cn.InvoiceID)
	}
	parentUID, err := o.parentDocumentUID(ctx, parent.ID)
	if err != nil {
		return nil, err
	}
	return &sourceDocument{
		build:           myinvois.CreditNoteContext(cn, items, customer, profile, parent, parentUID),
		kind:            entity.KindCreditNote,
		parentInvoiceID: parent.ID,
	}, nil
}

// parentDocumentUID UUID de MyInvois de la factura de origen: el del envío valid más reciente o,
// sin ninguno, el de un envío pending ya aceptado. Envíos negativos o cancelados no cuentan.
func (o *Orchestrator) parentDocumentUID(ctx context.Context, invoiceID string) (string, error) {
	history, err := o.submissions.ListBySubject(ctx, entity.InvoiceSubject(invoiceID))
	if err != nil {
		return "", err
	}
	var accepted string
	for _, s := range history {
		if !s.HasDocumentUID() {
			continue
		}
		switch s.Status {
		case entity.SubmissionValid:
			return s.DocumentUID, nil
		case entity.SubmissionPending:
			if accepted == "" {
				accepted = s.DocumentUID
			}
		}
	}
	return accepted, nil
}

func (o *Orchestrator) profile(ctx context.Context, companyID string) (*entity.BusinessProfile, error) {
	p, err := o.profiles.GetByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: perfil del emisor no registrado", domain.ErrEInvoiceNotConfigured)
	}
	return p, nil
}

func (o *Orchestrator) customer(ctx context.Context, companyID, id string) (*entity.Customer, error) {
	c, err := o.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || c.CompanyID != companyID {
		return nil, fmt.Errorf("%w: cliente %s no encontrado", domain.ErrInvalidInput, id)
	}
	return c, nil
}

func (o *Orchestrator) serialize(build *myinvois.DocumentBuildContext) ([]byte, error) {
	if o.signer == nil {
		build.Version = pkgmyinvois.DocumentVersionUnsigned
		return o.builder.BuildAndSerialize(build)
	}
	build.Version = pkgmyinvois.DocumentVersionSigned
	unsigned, err := o.builder.BuildAndSerialize(build)
	if err != nil {
		return nil, err
	}
	signed, err := o.signer.Sign(unsigned, o.cert, o.now())
	if err != nil {
		return nil, fmt.Errorf("firmar documento: %w", err)
	}
	return signed, nil
}

func (o *Orchestrator) getOwned(ctx context.Context, companyID, submissionID string) (*entity.EInvoiceSubmission, error) {
	s, err := o.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func validateTotals(number string, totals domaineinvoice.Totals, items []*entity.LineItem) error {
	if err := domaineinvoice.ValidateTotals(number, totals, items); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

func rejectionFrom(resp *myinvois.SubmitResponse) *domain.RejectionError {
	rej := &domain.RejectionError{SubmissionID: resp.SubmissionUID}
	for _, d := range resp.RejectedDocuments {
		doc := domain.RejectedDocument{CodeNumber: d.InvoiceCodeNumber}
		if d.Error != nil {
			doc.Code = d.Error.Code
			doc.Message = d.Error.Message
			if doc.Message == "" && len(d.Error.Details) > 0 {
				doc.Message = d.Error.Details[0].Message
			}
		}
		rej.Documents = append(rej.Documents, doc)
	}
	return rej
}

// IsRejection indica si err es un rechazo estructural y devuelve su detalle.
func IsRejection(err error) (*domain.RejectionError, bool) {
	var rej *domain.RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
