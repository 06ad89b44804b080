package repository

import (
	"context"
	"time"

	"github.com/jhoicas/buku-api/internal/domain/entity"
)

// EInvoiceConfigRepository define el puerto de persistencia de la configuración MyInvois.
type EInvoiceConfigRepository interface {
	// GetActive devuelve la configuración más reciente (created_at) de la empresa, o nil si no hay.
	GetActive(ctx context.Context, companyID string) (*entity.EInvoiceConfig, error)
	Create(ctx context.Context, cfg *entity.EInvoiceConfig) error
	Update(ctx context.Context, cfg *entity.EInvoiceConfig) error

	// UpdateToken escribe solo los campos de caché del token.
	UpdateToken(ctx context.Context, id, token string, expiresAt time.Time) error

	// UpdateTestResult registra el resultado de la última prueba de conectividad.
	UpdateTestResult(ctx context.Context, id string, testedAt time.Time, ok bool, message string) error
}
