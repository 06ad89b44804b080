package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/buku-api/internal/domain"
	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/internal/infrastructure/postgres"
)

// execErrQuerier devuelve err en cada Exec; Query/QueryRow no se usan en Create.
type execErrQuerier struct {
	err error
}

func (q execErrQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, q.err
}

func (q execErrQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("no usado")
}

func (q execErrQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func pendingSubmission() *entity.EInvoiceSubmission {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	return &entity.EInvoiceSubmission{
		ID: "0b8d3f4e-0000-4000-8000-000000000001", CompanyID: "0b8d3f4e-0000-4000-8000-000000000002",
		Subject: entity.InvoiceSubject("0b8d3f4e-0000-4000-8000-000000000003"),
		Kind:    entity.KindInvoice, Status: entity.SubmissionPending,
		SubmittedAt: &now, CreatedAt: now, UpdatedAt: now,
	}
}

func TestEInvoiceSubmissionRepo_Create_EnvioVigenteEsConflicto(t *testing.T) {
	for _, idx := range []string{"uq_einvoice_submissions_open_invoice", "uq_einvoice_submissions_open_credit_note"} {
		repo := postgres.NewEInvoiceSubmissionRepository(execErrQuerier{
			err: &pgconn.PgError{Code: "23505", ConstraintName: idx},
		})
		err := repo.Create(context.Background(), pendingSubmission())
		assert.ErrorIs(t, err, domain.ErrConflict, idx)
	}
}

func TestEInvoiceSubmissionRepo_Create_PrimaryKeyDuplicada(t *testing.T) {
	repo := postgres.NewEInvoiceSubmissionRepository(execErrQuerier{
		err: &pgconn.PgError{Code: "23505", ConstraintName: "einvoice_submissions_pkey"},
	})
	err := repo.Create(context.Background(), pendingSubmission())
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

func TestEInvoiceSubmissionRepo_Create_OtrosErroresSePropagan(t *testing.T) {
	boom := errors.New("conn reset")
	repo := postgres.NewEInvoiceSubmissionRepository(execErrQuerier{err: boom})
	err := repo.Create(context.Background(), pendingSubmission())
	assert.ErrorIs(t, err, boom)
}
