package entity

import "time"

// Ambientes de MyInvois.
const (
	EInvoiceEnvSandbox    = "sandbox"
	EInvoiceEnvProduction = "production"
)

// EInvoiceConfig credenciales y caché de token de MyInvois para una empresa.
// Si existen varias filas se consulta solo la más reciente por created_at.
type EInvoiceConfig struct {
	ID                    string
	CompanyID             string
	TIN                   string
	ClientID              string
	ClientSecretEncrypted string // formato {ivHex}:{cipherHex}
	Environment           string // sandbox | production
	AccessToken           string
	TokenExpiresAt        *time.Time
	LastTestedAt          *time.Time
	LastTestOK            *bool
	LastTestMessage       string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsProduction true si las llamadas deben ir al host productivo.
func (c *EInvoiceConfig) IsProduction() bool {
	return c.Environment == EInvoiceEnvProduction
}

// HasValidToken true si hay token en caché que vence después de now+margin.
func (c *EInvoiceConfig) HasValidToken(now time.Time, margin time.Duration) bool {
	if c.AccessToken == "" || c.TokenExpiresAt == nil {
		return false
	}
	return c.TokenExpiresAt.After(now.Add(margin))
}

// ClearToken invalida el token en caché (p. ej. al cambiar credenciales).
func (c *EInvoiceConfig) ClearToken() {
	c.AccessToken = ""
	c.TokenExpiresAt = nil
}

// ValidEInvoiceEnvironment indica si env es un ambiente soportado.
func ValidEInvoiceEnvironment(env string) bool {
	return env == EInvoiceEnvSandbox || env == EInvoiceEnvProduction
}
