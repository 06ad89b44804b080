package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/buku-api/internal/application/dto"
	"github.com/jhoicas/buku-api/internal/application/einvoice"
	"github.com/jhoicas/buku-api/internal/domain"
	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/internal/infrastructure/myinvois"
)

// submissionService contrato del orquestador usado por el handler (lo implementa *einvoice.Orchestrator).
type submissionService interface {
	Submit(ctx context.Context, companyID string, subject entity.SubjectRef) (*entity.EInvoiceSubmission, error)
	Retry(ctx context.Context, companyID, submissionID string) (*entity.EInvoiceSubmission, error)
	Cancel(ctx context.Context, companyID, submissionID, reason string) (*entity.EInvoiceSubmission, error)
	CurrentStatus(ctx context.Context, companyID string, subject entity.SubjectRef) (*entity.EInvoiceSubmission, error)
	History(ctx context.Context, companyID string, subject entity.SubjectRef) ([]*entity.EInvoiceSubmission, error)
	SubmitConsolidated(ctx context.Context, companyID string, period myinvois.Period, txs []myinvois.ConsolidatedTransaction) (*einvoice.ConsolidatedResult, error)
}

// statusPoller lo implementa *einvoice.Reconciler.
type statusPoller interface {
	Poll(ctx context.Context, companyID, submissionID string) (*entity.EInvoiceSubmission, error)
}

// settingsService lo implementa *einvoice.SettingsUseCase.
type settingsService interface {
	GetSettings(ctx context.Context, companyID string) (*dto.EInvoiceSettingsResponse, error)
	SaveSettings(ctx context.Context, companyID string, in dto.EInvoiceSettingsRequest) (*dto.EInvoiceSettingsResponse, error)
	TestConnection(ctx context.Context, companyID string) (*dto.ConnectionTestResponse, error)
	ValidateTaxpayer(ctx context.Context, companyID, tin, idType, idValue string) (*dto.TaxpayerValidationResponse, error)
}

// EInvoiceHandler maneja las peticiones HTTP de factura electrónica MyInvois (protegido).
type EInvoiceHandler struct {
	submissions submissionService
	poller      statusPoller
	settings    settingsService
}

// NewEInvoiceHandler construye el handler.
func NewEInvoiceHandler(submissions submissionService, poller statusPoller, settings settingsService) *EInvoiceHandler {
	return &EInvoiceHandler{submissions: submissions, poller: poller, settings: settings}
}

// ── Configuración ─────────────────────────────────────────────────────────────

// GetSettings devuelve la configuración MyInvois de la empresa.
// GET /api/einvoice/settings
func (h *EInvoiceHandler) GetSettings(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	res, err := h.settings.GetSettings(c.Context(), companyID)
	if err != nil {
		return writeEInvoiceError(c, err)
	}
	return c.JSON(res)
}

// SaveSettings crea o actualiza la configuración.
// PUT /api/einvoice/settings
func (h *EInvoiceHandler) SaveSettings(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.EInvoiceSettingsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.settings.SaveSettings(c.Context(), companyID, in)
	if err != nil {
		return writeEInvoiceError(c, err)
	}
	return c.JSON(res)
}

// TestConnection prueba las credenciales contra el endpoint de identidad.
// POST /api/einvoice/settings/test
func (h *EInvoiceHandler) TestConnection(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	res, err := h.settings.TestConnection(c.Context(), companyID)
	if err != nil {
		return writeEInvoiceError(c, err)
	}
	return c.JSON(res)
}

// ValidateTaxpayer valida un TIN contra el documento de identidad.
// GET /api/einvoice/taxpayers/:tin/validate?id_type=BRN&id_value=...
func (h *EInvoiceHandler) ValidateTaxpayer(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	res, err := h.settings.ValidateTaxpayer(c.Context(), companyID, c.Params("tin"), c.Query("id_type"), c.Query("id_value"))
	if err != nil {
		return writeEInvoiceError(c, err)
	}
	return c.JSON(res)
}

// ── Envíos ────────────────────────────────────────────────────────────────────

// SubmitInvoice envía una factura a MyInvois.
// POST /api/einvoice/invoices/:id/submit
func (h *EInvoiceHandler) SubmitInvoice(c *fiber.Ctx) error {
	return h.submit(c, entity.InvoiceSubject(c.Params("id")))
}

// SubmitCreditNote envía una nota crédito a MyInvois.
// POST /api/einvoice/credit-notes/:id/submit
func (h *EInvoiceHandler) SubmitCreditNote(c *fiber.Ctx) error {
	return h.submit(c, entity.CreditNoteSubject(c.Params("id")))
}

func (h *EInvoiceHandler) submit(c *fiber.Ctx, subject entity.SubjectRef) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	s, err := h.submissions.Submit(c.Context(), companyID, subject)
	if err != nil {
		return writeSubmissionError(c, s, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.SubmissionFromEntity(s))
}

// Retry reenvía el documento de un envío inválido o rechazado.
// POST /api/einvoice/submissions/:id/retry
func (h *EInvoiceHandler) Retry(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	s, err := h.submissions.Retry(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeSubmissionError(c, s, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.SubmissionFromEntity(s))
}

// Poll consulta a la autoridad el estado de un envío.
// POST /api/einvoice/submissions/:id/poll
func (h *EInvoiceHandler) Poll(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	s, err := h.poller.Poll(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeEInvoiceError(c, err)
	}
	return c.JSON(dto.SubmissionFromEntity(s))
}

// Cancel anula un documento válido.
// POST /api/einvoice/submissions/:id/cancel
func (h *EInvoiceHandler) Cancel(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.CancelSubmissionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	s, err := h.submissions.Cancel(c.Context(), companyID, c.Params("id"), in.Reason)
	if err != nil {
		return writeEInvoiceError(c, err)
	}
	return c.JSON(dto.SubmissionFromEntity(s))
}

// InvoiceStatus GET /api/einvoice/invoices/:id/status
func (h *EInvoiceHandler) InvoiceStatus(c *fiber.Ctx) error {
	return h.status(c, entity.InvoiceSubject(c.Params("id")))
}

// CreditNoteStatus GET /api/einvoice/credit-notes/:id/status
func (h *EInvoiceHandler) CreditNoteStatus(c *fiber.Ctx) error {
	return h.status(c, entity.CreditNoteSubject(c.Params("id")))
}

func (h *EInvoiceHandler) status(c *fiber.Ctx, subject entity.SubjectRef) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	s, err := h.submissions.CurrentStatus(c.Context(), companyID, subject)
	if err != nil {
		return writeEInvoiceError(c, err)
	}
	return c.JSON(dto.SubmissionFromEntity(s))
}

// InvoiceHistory GET /api/einvoice/invoices/:id/submissions
func (h *EInvoiceHandler) InvoiceHistory(c *fiber.Ctx) error {
	return h.history(c, entity.InvoiceSubject(c.Params("id")))
}

// CreditNoteHistory GET /api/einvoice/credit-notes/:id/submissions
func (h *EInvoiceHandler) CreditNoteHistory(c *fiber.Ctx) error {
	return h.history(c, entity.CreditNoteSubject(c.Params("id")))
}

func (h *EInvoiceHandler) history(c *fiber.Ctx, subject entity.SubjectRef) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	rows, err := h.submissions.History(c.Context(), companyID, subject)
	if err != nil {
		return writeEInvoiceError(c, err)
	}
	out := make([]dto.SubmissionResponse, 0, len(rows))
	for _, s := range rows {
		out = append(out, dto.SubmissionFromEntity(s))
	}
	return c.JSON(out)
}

// ── Consolidado ───────────────────────────────────────────────────────────────

// SubmitConsolidated envía el consolidado B2C de un periodo.
// POST /api/einvoice/consolidated
func (h *EInvoiceHandler) SubmitConsolidated(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.ConsolidatedRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	start, errStart := time.Parse(time.DateOnly, in.PeriodStart)
	end, errEnd := time.Parse(time.DateOnly, in.PeriodEnd)
	if errStart != nil || errEnd != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "period_start y period_end deben tener formato YYYY-MM-DD"})
	}
	txs := make([]myinvois.ConsolidatedTransaction, 0, len(in.Transactions))
	for _, t := range in.Transactions {
		txs = append(txs, myinvois.ConsolidatedTransaction{Reference: t.Reference, Subtotal: t.Subtotal, TaxAmount: t.TaxAmount})
	}

	res, err := h.submissions.SubmitConsolidated(c.Context(), companyID, myinvois.Period{Start: start, End: end}, txs)
	if err != nil {
		if rej, ok := einvoice.IsRejection(err); ok {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(rejectionBody(rej, nil))
		}
		return writeEInvoiceError(c, err)
	}
	out := dto.ConsolidatedResponse{Number: res.Number, DocumentHash: res.DocumentHash}
	if r := res.Response; r != nil {
		out.SubmissionUID = r.SubmissionUID
		out.Raw = r.Raw
		if len(r.AcceptedDocuments) > 0 {
			out.DocumentUID = r.AcceptedDocuments[0].UUID
		}
	}
	return c.Status(fiber.StatusAccepted).JSON(out)
}

// ── errores ───────────────────────────────────────────────────────────────────

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

// writeSubmissionError un rechazo estructural responde 422 con la fila invalid y el detalle.
func writeSubmissionError(c *fiber.Ctx, s *entity.EInvoiceSubmission, err error) error {
	if rej, ok := einvoice.IsRejection(err); ok {
		var sub *dto.SubmissionResponse
		if s != nil {
			r := dto.SubmissionFromEntity(s)
			sub = &r
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(rejectionBody(rej, sub))
	}
	if s != nil {
		// la fila existe: falló la llamada a la autoridad y quedó invalid
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "AUTHORITY_ERROR", Message: err.Error()})
	}
	return writeEInvoiceError(c, err)
}

func rejectionBody(rej *domain.RejectionError, sub *dto.SubmissionResponse) dto.RejectionResponse {
	docs := make([]dto.RejectedDocumentResponse, 0, len(rej.Documents))
	for _, d := range rej.Documents {
		docs = append(docs, dto.RejectedDocumentResponse{CodeNumber: d.CodeNumber, Code: d.Code, Message: d.Message})
	}
	return dto.RejectionResponse{
		Code:       "SUBMISSION_REJECTED",
		Message:    rej.Error(),
		Documents:  docs,
		Submission: sub,
	}
}

// writeEInvoiceError traduce los errores de dominio a códigos HTTP.
func writeEInvoiceError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	var httpErr *myinvois.HTTPError
	switch {
	case errors.Is(err, domain.ErrEInvoiceNotConfigured):
		status, code = fiber.StatusPreconditionFailed, "EINVOICE_NOT_CONFIGURED"
	case errors.Is(err, domain.ErrAuthentication):
		status, code = fiber.StatusBadGateway, "AUTHENTICATION_FAILED"
	case errors.Is(err, domain.ErrSubmissionRejected):
		status, code = fiber.StatusUnprocessableEntity, "SUBMISSION_REJECTED"
	case errors.Is(err, domain.ErrInvalidCancellation):
		status, code = fiber.StatusConflict, "INVALID_CANCELLATION"
	case errors.Is(err, domain.ErrConflict):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrDecryption):
		status, code = fiber.StatusInternalServerError, "SECRET_UNREADABLE"
	case errors.As(err, &httpErr):
		status, code = fiber.StatusBadGateway, "AUTHORITY_ERROR"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: strings.TrimSpace(err.Error())})
}
