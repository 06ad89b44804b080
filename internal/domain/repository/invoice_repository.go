package repository

import (
	"context"

	"github.com/jhoicas/buku-api/internal/domain/entity"
)

// InvoiceRepository acceso de lectura a facturas finalizadas más la escritura del Long ID.
type InvoiceRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetItems(ctx context.Context, invoiceID string) ([]*entity.LineItem, error)
	SetEInvoiceLongID(ctx context.Context, invoiceID, longID string) error
}

// CreditNoteRepository acceso de lectura a notas crédito más la escritura del Long ID.
type CreditNoteRepository interface {
	GetByID(ctx context.Context, id string) (*entity.CreditNote, error)
	GetItems(ctx context.Context, creditNoteID string) ([]*entity.LineItem, error)
	SetEInvoiceLongID(ctx context.Context, creditNoteID, longID string) error
}
