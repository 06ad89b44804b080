package einvoice

import (
	"context"
	"time"

	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/pkg/logger"
)

// Tipos de evento del ciclo de vida.
const (
	EventSubmitted     = "einvoice.submitted"
	EventStatusChanged = "einvoice.status_changed"
	EventCancelled     = "einvoice.cancelled"
)

// SubmissionEvent se publica cada vez que un envío persiste un estado nuevo.
type SubmissionEvent struct {
	Type         string    `json:"type"`
	SubmissionID string    `json:"submission_id"`
	CompanyID    string    `json:"company_id"`
	Subject      string    `json:"subject"` // invoice:<id> | credit_note:<id>
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	DocumentUID  string    `json:"document_uid,omitempty"`
	LongID       string    `json:"long_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func newSubmissionEvent(typ string, s *entity.EInvoiceSubmission, now time.Time) SubmissionEvent {
	return SubmissionEvent{
		Type:         typ,
		SubmissionID: s.ID,
		CompanyID:    s.CompanyID,
		Subject:      s.Subject.String(),
		Kind:         string(s.Kind),
		Status:       string(s.Status),
		DocumentUID:  s.DocumentUID,
		LongID:       s.LongID,
		OccurredAt:   now,
	}
}

// NoopPublisher descarta los eventos (Kafka deshabilitado).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, SubmissionEvent) error { return nil }

// publish nunca falla la operación: los errores solo se registran.
func publish(ctx context.Context, p EventPublisher, log *logger.Logger, evt SubmissionEvent) {
	if err := p.Publish(ctx, evt); err != nil {
		log.Warn().Err(err).
			Str("event", evt.Type).
			Str("submission_id", evt.SubmissionID).
			Msg("no se pudo publicar evento de factura electrónica")
	}
}
