package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/buku-api/internal/domain/entity"
)

// ── Configuración ─────────────────────────────────────────────────────────────

// EInvoiceSettingsRequest body para PUT /api/einvoice/settings.
// ClientSecret vacío conserva el secreto ya guardado.
type EInvoiceSettingsRequest struct {
	TIN          string `json:"tin"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Environment  string `json:"environment"` // sandbox | production
}

// EInvoiceSettingsResponse configuración visible (nunca incluye el secreto).
type EInvoiceSettingsResponse struct {
	Configured      bool       `json:"configured"`
	TIN             string     `json:"tin,omitempty"`
	ClientID        string     `json:"client_id,omitempty"`
	Environment     string     `json:"environment,omitempty"`
	HasClientSecret bool       `json:"has_client_secret"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	LastTestedAt    *time.Time `json:"last_tested_at,omitempty"`
	LastTestOK      *bool      `json:"last_test_ok,omitempty"`
	LastTestMessage string     `json:"last_test_message,omitempty"`
}

// SettingsFromEntity arma la respuesta sin exponer credenciales.
func SettingsFromEntity(cfg *entity.EInvoiceConfig) *EInvoiceSettingsResponse {
	if cfg == nil {
		return &EInvoiceSettingsResponse{Configured: false}
	}
	return &EInvoiceSettingsResponse{
		Configured:      true,
		TIN:             cfg.TIN,
		ClientID:        cfg.ClientID,
		Environment:     cfg.Environment,
		HasClientSecret: cfg.ClientSecretEncrypted != "",
		TokenExpiresAt:  cfg.TokenExpiresAt,
		LastTestedAt:    cfg.LastTestedAt,
		LastTestOK:      cfg.LastTestOK,
		LastTestMessage: cfg.LastTestMessage,
	}
}

// ConnectionTestResponse resultado de POST /api/einvoice/settings/test.
type ConnectionTestResponse struct {
	OK       bool      `json:"ok"`
	Message  string    `json:"message"`
	TestedAt time.Time `json:"tested_at"`
}

// TaxpayerValidationResponse resultado de GET /api/einvoice/taxpayers/:tin/validate.
type TaxpayerValidationResponse struct {
	TIN     string `json:"tin"`
	IDType  string `json:"id_type"`
	IDValue string `json:"id_value"`
	Valid   bool   `json:"valid"`
}

// ── Envíos ────────────────────────────────────────────────────────────────────

// CancelSubmissionRequest body para POST /api/einvoice/submissions/:id/cancel.
type CancelSubmissionRequest struct {
	Reason string `json:"reason"`
}

// SubmissionResponse un envío en respuestas.
type SubmissionResponse struct {
	ID              string          `json:"id"`
	InvoiceID       string          `json:"invoice_id,omitempty"`
	CreditNoteID    string          `json:"credit_note_id,omitempty"`
	ParentInvoiceID string          `json:"parent_invoice_id,omitempty"`
	Kind            string          `json:"kind"`
	Status          string          `json:"status"`
	SubmissionUID   string          `json:"submission_uid,omitempty"`
	DocumentUID     string          `json:"document_uid,omitempty"`
	LongID          string          `json:"long_id,omitempty"`
	DocumentHash    string          `json:"document_hash,omitempty"`
	LastResponse    json.RawMessage `json:"last_response,omitempty"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty"`
	ValidatedAt     *time.Time      `json:"validated_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	RetryCount      int             `json:"retry_count"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// SubmissionFromEntity convierte la entidad a la respuesta HTTP.
func SubmissionFromEntity(s *entity.EInvoiceSubmission) SubmissionResponse {
	out := SubmissionResponse{
		ID:              s.ID,
		ParentInvoiceID: s.ParentInvoiceID,
		Kind:            string(s.Kind),
		Status:          string(s.Status),
		SubmissionUID:   s.SubmissionUID,
		DocumentUID:     s.DocumentUID,
		LongID:          s.LongID,
		DocumentHash:    s.DocumentHash,
		LastResponse:    s.LastResponse,
		SubmittedAt:     s.SubmittedAt,
		ValidatedAt:     s.ValidatedAt,
		CancelledAt:     s.CancelledAt,
		RetryCount:      s.RetryCount,
		ErrorMessage:    s.ErrorMessage,
		CreatedAt:       s.CreatedAt,
	}
	if id, ok := s.Subject.InvoiceID(); ok {
		out.InvoiceID = id
	}
	if id, ok := s.Subject.CreditNoteID(); ok {
		out.CreditNoteID = id
	}
	return out
}

// ── Consolidado ───────────────────────────────────────────────────────────────

// ConsolidatedTransactionRequest transacción B2C incluida en el consolidado.
type ConsolidatedTransactionRequest struct {
	Reference string          `json:"reference"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

// ConsolidatedRequest body para POST /api/einvoice/consolidated.
type ConsolidatedRequest struct {
	PeriodStart  string                           `json:"period_start"` // YYYY-MM-DD
	PeriodEnd    string                           `json:"period_end"`   // YYYY-MM-DD
	Transactions []ConsolidatedTransactionRequest `json:"transactions"`
}

// ConsolidatedResponse respuesta cruda de la autoridad más los datos del documento enviado.
type ConsolidatedResponse struct {
	Number        string          `json:"number"`
	DocumentHash  string          `json:"document_hash"`
	SubmissionUID string          `json:"submission_uid,omitempty"`
	DocumentUID   string          `json:"document_uid,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// ── Rechazos ──────────────────────────────────────────────────────────────────

// RejectedDocumentResponse detalle de un documento rechazado por la autoridad.
type RejectedDocumentResponse struct {
	CodeNumber string `json:"code_number"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// RejectionResponse cuerpo 422 cuando la autoridad no acepta ningún documento.
// Submission va vacío en los consolidados (no tienen fila de seguimiento).
type RejectionResponse struct {
	Code       string                     `json:"code"`
	Message    string                     `json:"message"`
	Documents  []RejectedDocumentResponse `json:"documents"`
	Submission *SubmissionResponse        `json:"submission,omitempty"`
}
