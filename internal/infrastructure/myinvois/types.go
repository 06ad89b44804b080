package myinvois

import (
	"encoding/json"
	"fmt"
)

// ── Tipos de la API de MyInvois ───────────────────────────────────────────────

// TokenResponse respuesta del endpoint /connect/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // segundos
	Scope       string `json:"scope"`
}

// SubmissionDocument un documento dentro de un envío por lote.
type SubmissionDocument struct {
	Format       string `json:"format"` // JSON
	DocumentHash string `json:"documentHash"`
	CodeNumber   string `json:"codeNumber"`
	Document     string `json:"document"` // base64 del UBL-JSON
}

type submitRequest struct {
	Documents []SubmissionDocument `json:"documents"`
}

// AcceptedDocument documento aceptado para validación.
type AcceptedDocument struct {
	UUID              string `json:"uuid"`
	InvoiceCodeNumber string `json:"invoiceCodeNumber"`
}

// ErrorDetail error estructurado devuelto por MyInvois.
type ErrorDetail struct {
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	Target       string        `json:"target,omitempty"`
	PropertyPath string        `json:"propertyPath,omitempty"`
	Details      []ErrorDetail `json:"details,omitempty"`
}

// RejectedDocument documento rechazado estructuralmente en el envío.
type RejectedDocument struct {
	InvoiceCodeNumber string       `json:"invoiceCodeNumber"`
	Error             *ErrorDetail `json:"error,omitempty"`
}

// SubmitResponse respuesta de POST /documentsubmissions.
type SubmitResponse struct {
	SubmissionUID     string             `json:"submissionUid"`
	AcceptedDocuments []AcceptedDocument `json:"acceptedDocuments"`
	RejectedDocuments []RejectedDocument `json:"rejectedDocuments"`
	Raw               json.RawMessage    `json:"-"`
}

// DocumentDetails respuesta de GET /documents/{uuid}/details (subconjunto).
type DocumentDetails struct {
	UUID                 string          `json:"uuid"`
	SubmissionUID        string          `json:"submissionUid"`
	LongID               string          `json:"longId"`
	InternalID           string          `json:"internalId"`
	Status               string          `json:"status"` // Submitted | Valid | Invalid | Rejected | Cancelled
	DocumentStatusReason string          `json:"documentStatusReason,omitempty"`
	DateTimeValidated    string          `json:"dateTimeValidated,omitempty"`
	Raw                  json.RawMessage `json:"-"`
}

type stateRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// StateResponse respuesta de PUT /documents/state/{uuid}/state.
type StateResponse struct {
	UUID   string          `json:"uuid"`
	Status string          `json:"status"`
	Raw    json.RawMessage `json:"-"`
}

// ── Errores HTTP ──────────────────────────────────────────────────────────────

// HTTPError respuesta no exitosa de MyInvois.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("myinvois: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}
