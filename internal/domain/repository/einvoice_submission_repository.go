package repository

import (
	"context"

	"github.com/jhoicas/buku-api/internal/domain/entity"
)

// EInvoiceSubmissionRepository define el puerto de persistencia de los envíos (traza de auditoría).
type EInvoiceSubmissionRepository interface {
	Create(ctx context.Context, s *entity.EInvoiceSubmission) error
	Update(ctx context.Context, s *entity.EInvoiceSubmission) error
	GetByID(ctx context.Context, id string) (*entity.EInvoiceSubmission, error)

	// GetLatestBySubject devuelve el envío más reciente del documento fuente, o nil.
	GetLatestBySubject(ctx context.Context, subject entity.SubjectRef) (*entity.EInvoiceSubmission, error)
	ListBySubject(ctx context.Context, subject entity.SubjectRef) ([]*entity.EInvoiceSubmission, error)

	// ListPending devuelve hasta limit envíos en pending, del más reciente al más antiguo.
	ListPending(ctx context.Context, limit int) ([]*entity.EInvoiceSubmission, error)
}
