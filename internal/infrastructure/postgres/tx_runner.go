package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/buku-api/internal/application/einvoice"
	"github.com/jhoicas/buku-api/internal/domain/repository"
)

// Ensure TxRunner implements einvoice.TxRunner.
var _ einvoice.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunEInvoice inicia una transacción con los repos de envíos y documentos fuente
// (write-through del Long ID) y hace Commit o Rollback.
func (r *TxRunner) RunEInvoice(ctx context.Context, fn func(
	submissionRepo repository.EInvoiceSubmissionRepository,
	invoiceRepo repository.InvoiceRepository,
	creditNoteRepo repository.CreditNoteRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	submissionRepo := NewEInvoiceSubmissionRepository(tx)
	invoiceRepo := NewInvoiceRepository(tx)
	creditNoteRepo := NewCreditNoteRepository(tx)

	if err := fn(submissionRepo, invoiceRepo, creditNoteRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
