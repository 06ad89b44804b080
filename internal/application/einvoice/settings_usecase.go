package einvoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/buku-api/internal/application/dto"
	"github.com/jhoicas/buku-api/internal/domain"
	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/internal/domain/repository"
	"github.com/jhoicas/buku-api/internal/infrastructure/myinvois"
	pkgmyinvois "github.com/jhoicas/buku-api/pkg/myinvois"
)

// SettingsUseCase administra la configuración MyInvois de la empresa.
type SettingsUseCase struct {
	configs   repository.EInvoiceConfigRepository
	cipher    SecretCipher
	tokens    *TokenManager
	authority myinvois.Authority
	now       func() time.Time
}

// NewSettingsUseCase construye el caso de uso.
func NewSettingsUseCase(
	configs repository.EInvoiceConfigRepository,
	cipher SecretCipher,
	tokens *TokenManager,
	authority myinvois.Authority,
) *SettingsUseCase {
	return &SettingsUseCase{
		configs:   configs,
		cipher:    cipher,
		tokens:    tokens,
		authority: authority,
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *SettingsUseCase) WithClock(now func() time.Time) *SettingsUseCase {
	uc.now = now
	return uc
}

// GetSettings devuelve la configuración activa sin el secreto.
func (uc *SettingsUseCase) GetSettings(ctx context.Context, companyID string) (*dto.EInvoiceSettingsResponse, error) {
	cfg, err := uc.configs.GetActive(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return dto.SettingsFromEntity(cfg), nil
}

// SaveSettings crea o actualiza la configuración. El secreto se guarda cifrado; si el request
// no lo trae se conserva el anterior. Cambiar credenciales o ambiente invalida el token en caché.
func (uc *SettingsUseCase) SaveSettings(ctx context.Context, companyID string, in dto.EInvoiceSettingsRequest) (*dto.EInvoiceSettingsResponse, error) {
	tin := pkgmyinvois.NormalizeTIN(in.TIN)
	if err := pkgmyinvois.ValidateTINFormat(tin); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id requerido", domain.ErrInvalidInput)
	}
	env := strings.ToLower(strings.TrimSpace(in.Environment))
	if env == "" {
		env = entity.EInvoiceEnvSandbox
	}
	if !entity.ValidEInvoiceEnvironment(env) {
		return nil, fmt.Errorf("%w: ambiente %q no soportado", domain.ErrInvalidInput, in.Environment)
	}

	var encrypted string
	if in.ClientSecret != "" {
		var err error
		if encrypted, err = uc.cipher.Encrypt(in.ClientSecret); err != nil {
			return nil, fmt.Errorf("cifrar client secret: %w", err)
		}
	}

	now := uc.now()
	cfg, err := uc.configs.GetActive(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		if encrypted == "" {
			return nil, fmt.Errorf("%w: client_secret requerido", domain.ErrInvalidInput)
		}
		cfg = &entity.EInvoiceConfig{
			ID:                    uuid.New().String(),
			CompanyID:             companyID,
			TIN:                   tin,
			ClientID:              clientID,
			ClientSecretEncrypted: encrypted,
			Environment:           env,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := uc.configs.Create(ctx, cfg); err != nil {
			return nil, err
		}
		return dto.SettingsFromEntity(cfg), nil
	}

	if encrypted != "" || cfg.ClientID != clientID || cfg.Environment != env {
		cfg.ClearToken()
	}
	if encrypted != "" {
		cfg.ClientSecretEncrypted = encrypted
	}
	cfg.TIN = tin
	cfg.ClientID = clientID
	cfg.Environment = env
	cfg.UpdatedAt = now
	if err := uc.configs.Update(ctx, cfg); err != nil {
		return nil, err
	}
	return dto.SettingsFromEntity(cfg), nil
}

// TestConnection fuerza la obtención de un token y registra el resultado.
// Un rechazo de credenciales no es error del caso de uso: se informa en la respuesta.
func (uc *SettingsUseCase) TestConnection(ctx context.Context, companyID string) (*dto.ConnectionTestResponse, error) {
	cfg, err := uc.configs.GetActive(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrEInvoiceNotConfigured
	}

	res := &dto.ConnectionTestResponse{OK: true, Message: "conexión exitosa con MyInvois (" + cfg.Environment + ")"}
	if _, err := uc.tokens.GetAccessToken(ctx, companyID, true); err != nil {
		res.OK = false
		res.Message = err.Error()
	}
	res.TestedAt = uc.now()
	if err := uc.configs.UpdateTestResult(ctx, cfg.ID, res.TestedAt, res.OK, res.Message); err != nil {
		return nil, err
	}
	return res, nil
}

// ValidateTaxpayer consulta a la autoridad si el TIN corresponde al documento de identidad dado.
func (uc *SettingsUseCase) ValidateTaxpayer(ctx context.Context, companyID, tin, idType, idValue string) (*dto.TaxpayerValidationResponse, error) {
	tin = pkgmyinvois.NormalizeTIN(tin)
	if err := pkgmyinvois.ValidateTINFormat(tin); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	idType = strings.ToUpper(strings.TrimSpace(idType))
	if !pkgmyinvois.ValidIDTypes[idType] {
		return nil, fmt.Errorf("%w: tipo de identificación %q no soportado", domain.ErrInvalidInput, idType)
	}
	idValue = strings.TrimSpace(idValue)
	if idValue == "" {
		return nil, fmt.Errorf("%w: número de identificación requerido", domain.ErrInvalidInput)
	}

	session, err := uc.tokens.Session(ctx, companyID, false)
	if err != nil {
		return nil, err
	}
	ok, err := uc.authority.ValidateTaxpayer(ctx, session.Environment, session.Token, tin, idType, idValue)
	if err != nil {
		return nil, fmt.Errorf("validar contribuyente: %w", err)
	}
	return &dto.TaxpayerValidationResponse{TIN: tin, IDType: idType, IDValue: idValue, Valid: ok}, nil
}
