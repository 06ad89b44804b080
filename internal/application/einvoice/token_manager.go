package einvoice

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/buku-api/internal/domain"
	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/internal/domain/repository"
	"github.com/jhoicas/buku-api/internal/infrastructure/myinvois"
	"github.com/jhoicas/buku-api/pkg/logger"
)

// TokenRefreshMargin un token que vence antes de now+margen se considera vencido.
const TokenRefreshMargin = 5 * time.Minute

// Session token vigente y ambiente al que deben ir las llamadas.
type Session struct {
	Token       string
	Environment string
}

// TokenManager obtiene y cachea el bearer token OAuth2 (client credentials) de cada empresa.
// Los refrescos concurrentes de una misma empresa se colapsan en una sola llamada a la autoridad.
type TokenManager struct {
	configs   repository.EInvoiceConfigRepository
	authority myinvois.Authority
	cipher    SecretCipher
	log       *logger.Logger
	now       func() time.Time
	group     singleflight.Group
}

// NewTokenManager construye el gestor de tokens.
func NewTokenManager(
	configs repository.EInvoiceConfigRepository,
	authority myinvois.Authority,
	cipher SecretCipher,
	log *logger.Logger,
) *TokenManager {
	return &TokenManager{
		configs:   configs,
		authority: authority,
		cipher:    cipher,
		log:       log,
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// GetAccessToken devuelve el token en caché si vence después del margen de seguridad;
// si no (o con forceRefresh) solicita uno nuevo y lo persiste.
func (m *TokenManager) GetAccessToken(ctx context.Context, companyID string, forceRefresh bool) (string, error) {
	s, err := m.Session(ctx, companyID, forceRefresh)
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

// Session igual que GetAccessToken pero incluye el ambiente de la configuración.
func (m *TokenManager) Session(ctx context.Context, companyID string, forceRefresh bool) (Session, error) {
	cfg, err := m.loadConfig(ctx, companyID)
	if err != nil {
		return Session{}, err
	}
	if !forceRefresh && cfg.HasValidToken(m.now(), TokenRefreshMargin) {
		return Session{Token: cfg.AccessToken, Environment: cfg.Environment}, nil
	}

	key := companyID
	if forceRefresh {
		key += ":force"
	}
	// El vuelo compartido no depende de la cancelación del primer llamador.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		return m.refresh(flightCtx, companyID, forceRefresh)
	})
	select {
	case <-ctx.Done():
		return Session{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Session{}, res.Err
		}
		return res.Val.(Session), nil
	}
}

func (m *TokenManager) refresh(ctx context.Context, companyID string, force bool) (Session, error) {
	// Releer: otro vuelo pudo haber refrescado el token mientras esperábamos.
	cfg, err := m.loadConfig(ctx, companyID)
	if err != nil {
		return Session{}, err
	}
	if !force && cfg.HasValidToken(m.now(), TokenRefreshMargin) {
		return Session{Token: cfg.AccessToken, Environment: cfg.Environment}, nil
	}

	secret, err := m.cipher.Decrypt(cfg.ClientSecretEncrypted)
	if err != nil {
		return Session{}, fmt.Errorf("client secret: %w", err)
	}
	resp, err := m.authority.RequestToken(ctx, cfg.Environment, cfg.ClientID, secret)
	if err != nil {
		return Session{}, fmt.Errorf("solicitar token: %w", err)
	}
	if resp.AccessToken == "" {
		return Session{}, fmt.Errorf("%w: respuesta sin access_token", domain.ErrAuthentication)
	}

	expiresAt := m.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	if err := m.configs.UpdateToken(ctx, cfg.ID, resp.AccessToken, expiresAt); err != nil {
		return Session{}, fmt.Errorf("guardar token: %w", err)
	}
	m.log.Debug().
		Str("company_id", companyID).
		Str("environment", cfg.Environment).
		Time("expires_at", expiresAt).
		Msg("token MyInvois renovado")
	return Session{Token: resp.AccessToken, Environment: cfg.Environment}, nil
}

func (m *TokenManager) loadConfig(ctx context.Context, companyID string) (*entity.EInvoiceConfig, error) {
	cfg, err := m.configs.GetActive(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	if cfg == nil {
		return nil, domain.ErrEInvoiceNotConfigured
	}
	return cfg, nil
}
