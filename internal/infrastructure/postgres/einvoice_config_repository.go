package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/buku-api/internal/domain"
	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/internal/domain/repository"
)

var _ repository.EInvoiceConfigRepository = (*EInvoiceConfigRepo)(nil)

// EInvoiceConfigRepo implementa EInvoiceConfigRepository sobre PostgreSQL.
type EInvoiceConfigRepo struct {
	q Querier
}

// NewEInvoiceConfigRepository construye el repositorio.
func NewEInvoiceConfigRepository(q Querier) *EInvoiceConfigRepo {
	return &EInvoiceConfigRepo{q: q}
}

const einvoiceConfigColumns = `
	id, company_id, tin, client_id, client_secret_encrypted, environment,
	access_token, token_expires_at, last_tested_at, last_test_ok, last_test_message,
	created_at, updated_at`

// GetActive devuelve nil, nil si la empresa no tiene configuración.
func (r *EInvoiceConfigRepo) GetActive(ctx context.Context, companyID string) (*entity.EInvoiceConfig, error) {
	q := `SELECT ` + einvoiceConfigColumns + `
		FROM einvoice_configs
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	cfg, err := scanEInvoiceConfig(r.q.QueryRow(ctx, q, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active einvoice_config: %w", err)
	}
	return cfg, nil
}

func (r *EInvoiceConfigRepo) Create(ctx context.Context, cfg *entity.EInvoiceConfig) error {
	const q = `
		INSERT INTO einvoice_configs
			(id, company_id, tin, client_id, client_secret_encrypted, environment,
			 access_token, token_expires_at, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, q,
		cfg.ID, cfg.CompanyID, cfg.TIN, cfg.ClientID, cfg.ClientSecretEncrypted, cfg.Environment,
		nullIfEmpty(cfg.AccessToken), cfg.TokenExpiresAt, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert einvoice_config: %w", err)
	}
	return nil
}

func (r *EInvoiceConfigRepo) Update(ctx context.Context, cfg *entity.EInvoiceConfig) error {
	const q = `
		UPDATE einvoice_configs
		SET tin = $2, client_id = $3, client_secret_encrypted = $4, environment = $5,
		    access_token = $6, token_expires_at = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, q,
		cfg.ID, cfg.TIN, cfg.ClientID, cfg.ClientSecretEncrypted, cfg.Environment,
		nullIfEmpty(cfg.AccessToken), cfg.TokenExpiresAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update einvoice_config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EInvoiceConfigRepo) UpdateToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	const q = `
		UPDATE einvoice_configs
		SET access_token = $2, token_expires_at = $3, updated_at = now()
		WHERE id = $1`
	if _, err := r.q.Exec(ctx, q, id, token, expiresAt); err != nil {
		return fmt.Errorf("update einvoice_config token: %w", err)
	}
	return nil
}

func (r *EInvoiceConfigRepo) UpdateTestResult(ctx context.Context, id string, testedAt time.Time, ok bool, message string) error {
	const q = `
		UPDATE einvoice_configs
		SET last_tested_at = $2, last_test_ok = $3, last_test_message = $4, updated_at = now()
		WHERE id = $1`
	if _, err := r.q.Exec(ctx, q, id, testedAt, ok, nullIfEmpty(message)); err != nil {
		return fmt.Errorf("update einvoice_config test result: %w", err)
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func scanEInvoiceConfig(row pgxScanner) (*entity.EInvoiceConfig, error) {
	var (
		cfg         entity.EInvoiceConfig
		accessToken *string
		testMessage *string
	)
	err := row.Scan(
		&cfg.ID, &cfg.CompanyID, &cfg.TIN, &cfg.ClientID, &cfg.ClientSecretEncrypted, &cfg.Environment,
		&accessToken, &cfg.TokenExpiresAt, &cfg.LastTestedAt, &cfg.LastTestOK, &testMessage,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cfg.AccessToken = derefString(accessToken)
	cfg.LastTestMessage = derefString(testMessage)
	return &cfg, nil
}
