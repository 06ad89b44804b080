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

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// GetByID obtiene la cabecera de una factura por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	const query = `
		SELECT id, company_id, customer_id, number, issue_date, currency,
		       subtotal, tax_total, grand_total, amount_due,
		       COALESCE(einvoice_long_id, ''), created_at, updated_at
		FROM invoices WHERE id = $1`
	var inv entity.Invoice
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.Number, &inv.IssueDate, &inv.Currency,
		&inv.Subtotal, &inv.TaxTotal, &inv.Total, &inv.AmountDue,
		&inv.EInvoiceLongID, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

// GetItems obtiene todas las líneas de una factura.
func (r *InvoiceRepo) GetItems(ctx context.Context, invoiceID string) ([]*entity.LineItem, error) {
	const query = `
		SELECT id, invoice_id, description, quantity, COALESCE(unit_code, ''), unit_price,
		       tax_rate, tax_amount, subtotal, COALESCE(classification_code, '')
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position, id`
	return listLineItems(ctx, r.q, query, invoiceID)
}

// SetEInvoiceLongID escribe el Long ID validado sobre la factura.
func (r *InvoiceRepo) SetEInvoiceLongID(ctx context.Context, invoiceID, longID string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE invoices SET einvoice_long_id = $2, updated_at = now() WHERE id = $1`,
		invoiceID, longID,
	)
	if err != nil {
		return fmt.Errorf("update invoice einvoice_long_id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// listLineItems comparte el scan de líneas entre facturas y notas crédito.
func listLineItems(ctx context.Context, q Querier, query string, documentID string) ([]*entity.LineItem, error) {
	rows, err := q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()
	var list []*entity.LineItem
	for rows.Next() {
		var it entity.LineItem
		if err := rows.Scan(
			&it.ID, &it.DocumentID, &it.Description, &it.Quantity, &it.UnitCode, &it.UnitPrice,
			&it.TaxRate, &it.TaxAmount, &it.Subtotal, &it.ClassificationCode,
		); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}
