package myinvois

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jhoicas/buku-api/internal/domain"
	"github.com/jhoicas/buku-api/internal/domain/entity"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	BaseURLSandbox    = "https://preprod-api.myinvois.hasil.gov.my"
	BaseURLProduction = "https://api.myinvois.hasil.gov.my"

	apiPrefix    = "/api/v1.0"
	tokenScope   = "InvoicingAPI"
	maxBodyBytes = 4 << 20

	// DefaultTimeout tope por llamada; un endpoint colgado no debe bloquear el barrido.
	DefaultTimeout = 30 * time.Second
)

// ── Puerto (interfaz) ──────────────────────────────────────────────────────────

// Authority define el puerto de salida hacia MyInvois. env es "sandbox" o "production".
// Para tests se puede inyectar un fake.
type Authority interface {
	RequestToken(ctx context.Context, env, clientID, clientSecret string) (*TokenResponse, error)
	SubmitDocuments(ctx context.Context, env, token string, docs []SubmissionDocument) (*SubmitResponse, error)
	GetDocumentDetails(ctx context.Context, env, token, documentUID string) (*DocumentDetails, error)
	CancelDocument(ctx context.Context, env, token, documentUID, reason string) (*StateResponse, error)
	ValidateTaxpayer(ctx context.Context, env, token, tin, idType, idValue string) (bool, error)
}

// ── Implementación HTTP ────────────────────────────────────────────────────────

// ClientConfig hosts y timeout del cliente.
type ClientConfig struct {
	SandboxBaseURL    string
	ProductionBaseURL string
	Timeout           time.Duration
}

// Client implementa Authority con la API REST de MyInvois.
type Client struct {
	httpClient    *http.Client
	sandboxURL    string
	productionURL string
}

var _ Authority = (*Client)(nil)

// NewClient construye el cliente. Campos vacíos toman los valores por defecto.
func NewClient(cfg ClientConfig) *Client {
	if cfg.SandboxBaseURL == "" {
		cfg.SandboxBaseURL = BaseURLSandbox
	}
	if cfg.ProductionBaseURL == "" {
		cfg.ProductionBaseURL = BaseURLProduction
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		sandboxURL:    strings.TrimRight(cfg.SandboxBaseURL, "/"),
		productionURL: strings.TrimRight(cfg.ProductionBaseURL, "/"),
	}
}

func (c *Client) baseURL(env string) string {
	if env == entity.EInvoiceEnvProduction {
		return c.productionURL
	}
	return c.sandboxURL
}

// ── Token ─────────────────────────────────────────────────────────────────────

// RequestToken flujo OAuth2 client-credentials. Un estado HTTP de error se reporta como
// domain.ErrAuthentication.
func (c *Client) RequestToken(ctx context.Context, env, clientID, clientSecret string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("scope", tokenScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL(env)+"/connect/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("myinvois: crear request token: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthentication, &HTTPError{Op: "token", StatusCode: status, Body: truncate(body)})
	}
	var out TokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("myinvois: decodificar token: %w", err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("%w: respuesta sin access_token", domain.ErrAuthentication)
	}
	return &out, nil
}

// ── Envío ─────────────────────────────────────────────────────────────────────

// SubmitDocuments envía un lote de documentos. MyInvois responde 202 aunque haya rechazados.
func (c *Client) SubmitDocuments(ctx context.Context, env, token string, docs []SubmissionDocument) (*SubmitResponse, error) {
	payload, err := json.Marshal(submitRequest{Documents: docs})
	if err != nil {
		return nil, fmt.Errorf("myinvois: serializar envío: %w", err)
	}
	status, body, err := c.call(ctx, http.MethodPost, c.baseURL(env)+apiPrefix+"/documentsubmissions", token, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusAccepted && status != http.StatusOK {
		return nil, &HTTPError{Op: "documentsubmissions", StatusCode: status, Body: truncate(body)}
	}
	var out SubmitResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("myinvois: decodificar envío: %w", err)
	}
	out.Raw = body
	return &out, nil
}

// GetDocumentDetails consulta el estado de validación de un documento.
func (c *Client) GetDocumentDetails(ctx context.Context, env, token, documentUID string) (*DocumentDetails, error) {
	endpoint := c.baseURL(env) + apiPrefix + "/documents/" + url.PathEscape(documentUID) + "/details"
	status, body, err := c.call(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &HTTPError{Op: "documents/details", StatusCode: status, Body: truncate(body)}
	}
	var out DocumentDetails
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("myinvois: decodificar detalle: %w", err)
	}
	out.Raw = body
	return &out, nil
}

// CancelDocument cambia el estado del documento a cancelled.
func (c *Client) CancelDocument(ctx context.Context, env, token, documentUID, reason string) (*StateResponse, error) {
	payload, err := json.Marshal(stateRequest{Status: "cancelled", Reason: reason})
	if err != nil {
		return nil, fmt.Errorf("myinvois: serializar anulación: %w", err)
	}
	endpoint := c.baseURL(env) + apiPrefix + "/documents/state/" + url.PathEscape(documentUID) + "/state"
	status, body, err := c.call(ctx, http.MethodPut, endpoint, token, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &HTTPError{Op: "documents/state", StatusCode: status, Body: truncate(body)}
	}
	out := StateResponse{Raw: body}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("myinvois: decodificar anulación: %w", err)
		}
		out.Raw = body
	}
	return &out, nil
}

// ValidateTaxpayer verifica que el TIN corresponda al documento de identidad.
// 200 = válido, 404 = no coincide; cualquier otro estado es error.
func (c *Client) ValidateTaxpayer(ctx context.Context, env, token, tin, idType, idValue string) (bool, error) {
	q := url.Values{}
	q.Set("idType", idType)
	q.Set("idValue", idValue)
	endpoint := c.baseURL(env) + apiPrefix + "/taxpayer/validate/" + url.PathEscape(tin) + "?" + q.Encode()
	status, body, err := c.call(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound, http.StatusBadRequest:
		return false, nil
	default:
		return false, &HTTPError{Op: "taxpayer/validate", StatusCode: status, Body: truncate(body)}
	}
}

// ── Transporte ────────────────────────────────────────────────────────────────

func (c *Client) call(ctx context.Context, method, endpoint, token string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("myinvois: crear request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return 0, nil, fmt.Errorf("myinvois: timeout o cancelación: %w", ctxErr)
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, nil, fmt.Errorf("myinvois: timeout: %w", err)
		}
		return 0, nil, fmt.Errorf("myinvois: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("myinvois: leer respuesta: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func truncate(b []byte) string {
	const max = 2048
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
