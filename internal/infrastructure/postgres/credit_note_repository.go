package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/buku-api/internal/domain"
	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/internal/domain/repository"
)

var _ repository.CreditNoteRepository = (*CreditNoteRepo)(nil)

// CreditNoteRepo implementación de CreditNoteRepository (usable con pool o tx).
type CreditNoteRepo struct {
	q Querier
}

// NewCreditNoteRepository construye el adaptador.
func NewCreditNoteRepository(q Querier) *CreditNoteRepo {
	return &CreditNoteRepo{q: q}
}

func (r *CreditNoteRepo) GetByID(ctx context.Context, id string) (*entity.CreditNote, error) {
	const query = `
		SELECT id, company_id, invoice_id, customer_id, number, issue_date, currency,
		       COALESCE(reason, ''), subtotal, tax_total, grand_total,
		       COALESCE(einvoice_long_id, ''), created_at, updated_at
		FROM credit_notes WHERE id = $1`
	var cn entity.CreditNote
	err := r.q.QueryRow(ctx, query, id).Scan(
		&cn.ID, &cn.CompanyID, &cn.InvoiceID, &cn.CustomerID, &cn.Number, &cn.IssueDate, &cn.Currency,
		&cn.Reason, &cn.Subtotal, &cn.TaxTotal, &cn.Total,
		&cn.EInvoiceLongID, &cn.CreatedAt, &cn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credit_note: %w", err)
	}
	return &cn, nil
}

func (r *CreditNoteRepo) GetItems(ctx context.Context, creditNoteID string) ([]*entity.LineItem, error) {
	const query = `
		SELECT id, credit_note_id, description, quantity, COALESCE(unit_code, ''), unit_price,
		       tax_rate, tax_amount, subtotal, COALESCE(classification_code, '')
		FROM credit_note_items WHERE credit_note_id = $1 ORDER BY position, id`
	return listLineItems(ctx, r.q, query, creditNoteID)
}

func (r *CreditNoteRepo) SetEInvoiceLongID(ctx context.Context, creditNoteID, longID string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE credit_notes SET einvoice_long_id = $2, updated_at = now() WHERE id = $1`,
		creditNoteID, longID,
	)
	if err != nil {
		return fmt.Errorf("update credit_note einvoice_long_id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
