package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// ── Factura electrónica (MyInvois) ──────────────────────────────────────────

var (
	// ErrEInvoiceNotConfigured no existe configuración activa para el tenant.
	ErrEInvoiceNotConfigured = errors.New("factura electrónica no configurada")
	// ErrAuthentication el endpoint de identidad rechazó las credenciales.
	ErrAuthentication = errors.New("autenticación rechazada por la autoridad tributaria")
	// ErrSubmissionRejected la autoridad no aceptó ningún documento del envío.
	ErrSubmissionRejected = errors.New("envío rechazado por la autoridad tributaria")
	// ErrTransientPoll fallo de red/HTTP durante la consulta de estado.
	ErrTransientPoll = errors.New("fallo transitorio consultando estado")
	// ErrInvalidCancellation la anulación no es válida para el estado del envío.
	ErrInvalidCancellation = errors.New("anulación no permitida")
	// ErrDecryption no se pudo descifrar el secreto almacenado.
	ErrDecryption = errors.New("no se pudo descifrar el secreto")
)

// RejectedDocument detalle de un documento rechazado por la autoridad.
type RejectedDocument struct {
	CodeNumber string
	Code       string
	Message    string
}

// RejectionError envío sin documentos aceptados; conserva el detalle devuelto por la autoridad.
// errors.Is(err, ErrSubmissionRejected) es verdadero.
type RejectionError struct {
	SubmissionID string
	Documents    []RejectedDocument
}

func (e *RejectionError) Error() string {
	if len(e.Documents) == 0 {
		return ErrSubmissionRejected.Error()
	}
	parts := make([]string, 0, len(e.Documents))
	for _, d := range e.Documents {
		parts = append(parts, fmt.Sprintf("%s: [%s] %s", d.CodeNumber, d.Code, d.Message))
	}
	return ErrSubmissionRejected.Error() + ": " + strings.Join(parts, "; ")
}

func (e *RejectionError) Unwrap() error { return ErrSubmissionRejected }
