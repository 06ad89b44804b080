package entity

import (
	"encoding/json"
	"time"
)

// SubmissionStatus estado del ciclo de vida de un envío a MyInvois.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionValid     SubmissionStatus = "valid"
	SubmissionInvalid   SubmissionStatus = "invalid"
	SubmissionRejected  SubmissionStatus = "rejected"
	SubmissionCancelled SubmissionStatus = "cancelled"
)

// SubmissionKind tipo de documento enviado.
type SubmissionKind string

const (
	KindInvoice      SubmissionKind = "invoice"
	KindCreditNote   SubmissionKind = "credit_note"
	KindDebitNote    SubmissionKind = "debit_note"
	KindSelfBilled   SubmissionKind = "self_billed"
	KindConsolidated SubmissionKind = "consolidated"
)

// transiciones locales permitidas. Las resincronizaciones del polling (ApplyAuthorityStatus)
// solo afectan filas pending o valid.
var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionPending: {SubmissionValid, SubmissionInvalid, SubmissionRejected},
	SubmissionValid:   {SubmissionCancelled},
}

// ── SubjectRef ──────────────────────────────────────────────────────────────

// SubjectKind variante de SubjectRef.
type SubjectKind string

const (
	SubjectInvoice    SubjectKind = "invoice"
	SubjectCreditNote SubjectKind = "credit_note"
)

// SubjectRef documento fuente de un envío: Invoice(id) o CreditNote(id), nunca ambos.
// El valor cero no referencia nada.
type SubjectRef struct {
	kind SubjectKind
	id   string
}

// InvoiceSubject referencia a una factura.
func InvoiceSubject(id string) SubjectRef {
	return SubjectRef{kind: SubjectInvoice, id: id}
}

// CreditNoteSubject referencia a una nota crédito.
func CreditNoteSubject(id string) SubjectRef {
	return SubjectRef{kind: SubjectCreditNote, id: id}
}

func (r SubjectRef) Kind() SubjectKind { return r.kind }
func (r SubjectRef) ID() string        { return r.id }
func (r SubjectRef) IsZero() bool      { return r.kind == "" || r.id == "" }

// InvoiceID devuelve el id si la referencia es a una factura.
func (r SubjectRef) InvoiceID() (string, bool) {
	if r.kind != SubjectInvoice {
		return "", false
	}
	return r.id, true
}

// CreditNoteID devuelve el id si la referencia es a una nota crédito.
func (r SubjectRef) CreditNoteID() (string, bool) {
	if r.kind != SubjectCreditNote {
		return "", false
	}
	return r.id, true
}

func (r SubjectRef) String() string {
	if r.IsZero() {
		return ""
	}
	return string(r.kind) + ":" + r.id
}

// ── EInvoiceSubmission ──────────────────────────────────────────────────────

// EInvoiceSubmission un intento de registrar un documento ante MyInvois. Nunca se borra.
type EInvoiceSubmission struct {
	ID              string
	CompanyID       string
	Subject         SubjectRef
	ParentInvoiceID string // solo notas crédito: factura de origen (contexto)
	Kind            SubmissionKind
	Status          SubmissionStatus
	SubmissionUID   string
	DocumentUID     string
	LongID          string
	DocumentHash    string
	LastResponse    json.RawMessage
	SubmittedAt     *time.Time
	ValidatedAt     *time.Time
	CancelledAt     *time.Time
	RetryCount      int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasDocumentUID true si la autoridad ya aceptó el documento.
func (s *EInvoiceSubmission) HasDocumentUID() bool {
	return s.DocumentUID != ""
}

// CanTransitionTo valida una transición local del ciclo de vida.
func (s *EInvoiceSubmission) CanTransitionTo(next SubmissionStatus) bool {
	for _, allowed := range submissionTransitions[s.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsRetryable true para los estados negativos terminales que admiten reenvío manual.
func (s *EInvoiceSubmission) IsRetryable() bool {
	return s.Status == SubmissionInvalid || s.Status == SubmissionRejected
}

// IsOutstanding true si el envío está vigente (pendiente o válido) y bloquea un nuevo envío.
func (s *EInvoiceSubmission) IsOutstanding() bool {
	return s.Status == SubmissionPending || s.Status == SubmissionValid
}

// PollOutcome efecto de un estado informado por la autoridad sobre la fila.
type PollOutcome struct {
	Changed   bool // el estado de la fila cambió
	LongIDSet bool // long_id quedó fijado en este poll
}

// AcceptsAuthorityStatus true si un poll puede resincronizar el estado de la fila.
// cancelled, invalid y rejected son finales: un reenvío crea otra fila.
func (s *EInvoiceSubmission) AcceptsAuthorityStatus() bool {
	return s.Status == SubmissionPending || s.Status == SubmissionValid
}

// ApplyAuthorityStatus aplica el estado informado por la autoridad en un poll.
// En filas finales no hace nada. validated_at y long_id solo se fijan una vez; un long_id que
// llega en un poll posterior al primer Valid también se fija.
func (s *EInvoiceSubmission) ApplyAuthorityStatus(status SubmissionStatus, longID string, now time.Time) PollOutcome {
	if !s.AcceptsAuthorityStatus() {
		return PollOutcome{}
	}
	out := PollOutcome{Changed: s.Status != status}
	s.Status = status
	if status == SubmissionValid {
		if s.ValidatedAt == nil {
			t := now
			s.ValidatedAt = &t
		}
		if s.LongID == "" && longID != "" {
			s.LongID = longID
			out.LongIDSet = true
		}
	}
	if status == SubmissionCancelled && s.CancelledAt == nil {
		t := now
		s.CancelledAt = &t
	}
	return out
}

// AuthorityStatus convierte el estado textual de MyInvois al estado local.
// "Submitted" sigue siendo pending. Devuelve false para valores desconocidos.
func AuthorityStatus(raw string) (SubmissionStatus, bool) {
	switch raw {
	case "submitted", "pending", "inprogress":
		return SubmissionPending, true
	case "valid":
		return SubmissionValid, true
	case "invalid":
		return SubmissionInvalid, true
	case "rejected":
		return SubmissionRejected, true
	case "cancelled":
		return SubmissionCancelled, true
	default:
		return "", false
	}
}
