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

var _ repository.EInvoiceSubmissionRepository = (*EInvoiceSubmissionRepo)(nil)

// EInvoiceSubmissionRepo implementa EInvoiceSubmissionRepository (usable con pool o tx).
// El SubjectRef se guarda en invoice_id o credit_note_id; el CHECK de la tabla exige exactamente uno.
type EInvoiceSubmissionRepo struct {
	q Querier
}

// NewEInvoiceSubmissionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEInvoiceSubmissionRepository(q Querier) *EInvoiceSubmissionRepo {
	return &EInvoiceSubmissionRepo{q: q}
}

const einvoiceSubmissionColumns = `
	id, company_id, invoice_id, credit_note_id, parent_invoice_id, kind, status,
	submission_uid, document_uid, long_id, document_hash, last_response,
	submitted_at, validated_at, cancelled_at, retry_count, error_message,
	created_at, updated_at`

// índices únicos parciales: un solo envío pending/valid por factura o nota crédito.
var openSubmissionIndexes = map[string]bool{
	"uq_einvoice_submissions_open_invoice":     true,
	"uq_einvoice_submissions_open_credit_note": true,
}

// Create inserta el envío. Otro envío vigente del mismo documento devuelve domain.ErrConflict.
func (r *EInvoiceSubmissionRepo) Create(ctx context.Context, s *entity.EInvoiceSubmission) error {
	if s.Subject.IsZero() {
		return fmt.Errorf("%w: envío sin documento fuente", domain.ErrInvalidInput)
	}
	invoiceID, creditNoteID := subjectColumns(s.Subject)
	const q = `
		INSERT INTO einvoice_submissions
			(id, company_id, invoice_id, credit_note_id, parent_invoice_id, kind, status,
			 submission_uid, document_uid, long_id, document_hash, last_response,
			 submitted_at, validated_at, cancelled_at, retry_count, error_message,
			 created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.q.Exec(ctx, q,
		s.ID, s.CompanyID, invoiceID, creditNoteID, nullIfEmpty(s.ParentInvoiceID),
		string(s.Kind), string(s.Status),
		nullIfEmpty(s.SubmissionUID), nullIfEmpty(s.DocumentUID), nullIfEmpty(s.LongID),
		nullIfEmpty(s.DocumentHash), jsonOrNil(s.LastResponse),
		s.SubmittedAt, s.ValidatedAt, s.CancelledAt, s.RetryCount, nullIfEmpty(s.ErrorMessage),
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if openSubmissionIndexes[violatedConstraint(err)] {
				return fmt.Errorf("%w: el documento %s ya tiene un envío vigente", domain.ErrConflict, s.Subject)
			}
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert einvoice_submission: %w", err)
	}
	return nil
}

// Update reescribe el estado mutable del envío. El documento fuente no cambia nunca.
func (r *EInvoiceSubmissionRepo) Update(ctx context.Context, s *entity.EInvoiceSubmission) error {
	const q = `
		UPDATE einvoice_submissions
		SET status = $2, submission_uid = $3, document_uid = $4, long_id = $5,
		    document_hash = $6, last_response = $7, submitted_at = $8, validated_at = $9,
		    cancelled_at = $10, retry_count = $11, error_message = $12, updated_at = $13
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, q,
		s.ID, string(s.Status),
		nullIfEmpty(s.SubmissionUID), nullIfEmpty(s.DocumentUID), nullIfEmpty(s.LongID),
		nullIfEmpty(s.DocumentHash), jsonOrNil(s.LastResponse),
		s.SubmittedAt, s.ValidatedAt, s.CancelledAt, s.RetryCount, nullIfEmpty(s.ErrorMessage),
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update einvoice_submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EInvoiceSubmissionRepo) GetByID(ctx context.Context, id string) (*entity.EInvoiceSubmission, error) {
	q := `SELECT ` + einvoiceSubmissionColumns + ` FROM einvoice_submissions WHERE id = $1`
	s, err := scanEInvoiceSubmission(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get einvoice_submission: %w", err)
	}
	return s, nil
}

func (r *EInvoiceSubmissionRepo) GetLatestBySubject(ctx context.Context, subject entity.SubjectRef) (*entity.EInvoiceSubmission, error) {
	column, err := subjectColumn(subject)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + einvoiceSubmissionColumns + `
		FROM einvoice_submissions
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC
		LIMIT 1`
	s, err := scanEInvoiceSubmission(r.q.QueryRow(ctx, q, subject.ID()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest einvoice_submission: %w", err)
	}
	return s, nil
}

// ListBySubject historial del documento, del más reciente al más antiguo.
func (r *EInvoiceSubmissionRepo) ListBySubject(ctx context.Context, subject entity.SubjectRef) ([]*entity.EInvoiceSubmission, error) {
	column, err := subjectColumn(subject)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + einvoiceSubmissionColumns + `
		FROM einvoice_submissions
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC`
	return r.list(ctx, q, subject.ID())
}

func (r *EInvoiceSubmissionRepo) ListPending(ctx context.Context, limit int) ([]*entity.EInvoiceSubmission, error) {
	q := `SELECT ` + einvoiceSubmissionColumns + `
		FROM einvoice_submissions
		WHERE status = 'pending'
		ORDER BY created_at DESC
		LIMIT $1`
	return r.list(ctx, q, limit)
}

func (r *EInvoiceSubmissionRepo) list(ctx context.Context, q string, args ...any) ([]*entity.EInvoiceSubmission, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list einvoice_submissions: %w", err)
	}
	defer rows.Close()
	var list []*entity.EInvoiceSubmission
	for rows.Next() {
		s, err := scanEInvoiceSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan einvoice_submission: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func subjectColumns(ref entity.SubjectRef) (invoiceID, creditNoteID *string) {
	if id, ok := ref.InvoiceID(); ok {
		return &id, nil
	}
	if id, ok := ref.CreditNoteID(); ok {
		return nil, &id
	}
	return nil, nil
}

func subjectColumn(ref entity.SubjectRef) (string, error) {
	switch ref.Kind() {
	case entity.SubjectInvoice:
		return "invoice_id", nil
	case entity.SubjectCreditNote:
		return "credit_note_id", nil
	default:
		return "", fmt.Errorf("%w: referencia de documento vacía", domain.ErrInvalidInput)
	}
}

func jsonOrNil(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func scanEInvoiceSubmission(row pgxScanner) (*entity.EInvoiceSubmission, error) {
	var (
		s                                  entity.EInvoiceSubmission
		invoiceID, creditNoteID, parentID  *string
		kind, status                       string
		submissionUID, documentUID, longID *string
		documentHash, errorMessage         *string
		lastResponse                       []byte
	)
	err := row.Scan(
		&s.ID, &s.CompanyID, &invoiceID, &creditNoteID, &parentID, &kind, &status,
		&submissionUID, &documentUID, &longID, &documentHash, &lastResponse,
		&s.SubmittedAt, &s.ValidatedAt, &s.CancelledAt, &s.RetryCount, &errorMessage,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	switch {
	case invoiceID != nil:
		s.Subject = entity.InvoiceSubject(*invoiceID)
	case creditNoteID != nil:
		s.Subject = entity.CreditNoteSubject(*creditNoteID)
	}
	s.ParentInvoiceID = derefString(parentID)
	s.Kind = entity.SubmissionKind(kind)
	s.Status = entity.SubmissionStatus(status)
	s.SubmissionUID = derefString(submissionUID)
	s.DocumentUID = derefString(documentUID)
	s.LongID = derefString(longID)
	s.DocumentHash = derefString(documentHash)
	s.ErrorMessage = derefString(errorMessage)
	if len(lastResponse) > 0 {
		s.LastResponse = lastResponse
	}
	return &s, nil
}
