package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/buku-api/internal/application/einvoice"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Orchestrator *einvoice.Orchestrator
	Reconciler   *einvoice.Reconciler
	Settings     *einvoice.SettingsUseCase
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	RegisterEInvoiceRoutes(protected, NewEInvoiceHandler(deps.Orchestrator, deps.Reconciler, deps.Settings))
}

// RegisterEInvoiceRoutes monta /einvoice sobre un grupo ya autenticado.
// Configuración: solo admin. Envíos, reintentos, anulaciones y consolidados: admin o contador.
// Consultas y poll: cualquier rol.
func RegisterEInvoiceRoutes(r fiber.Router, h *EInvoiceHandler) {
	g := r.Group("/einvoice")
	adminOnly := RequireRole(RoleAdmin)
	issuers := RequireRole(RoleAdmin, RoleContador)

	// Configuración MyInvois
	g.Get("/settings", h.GetSettings)
	g.Put("/settings", adminOnly, h.SaveSettings)
	g.Post("/settings/test", adminOnly, h.TestConnection)
	g.Get("/taxpayers/:tin/validate", h.ValidateTaxpayer)

	// Facturas
	g.Post("/invoices/:id/submit", issuers, h.SubmitInvoice)
	g.Get("/invoices/:id/status", h.InvoiceStatus)
	g.Get("/invoices/:id/submissions", h.InvoiceHistory)

	// Notas crédito
	g.Post("/credit-notes/:id/submit", issuers, h.SubmitCreditNote)
	g.Get("/credit-notes/:id/status", h.CreditNoteStatus)
	g.Get("/credit-notes/:id/submissions", h.CreditNoteHistory)

	// Envíos
	g.Post("/submissions/:id/poll", h.Poll)
	g.Post("/submissions/:id/cancel", issuers, h.Cancel)
	g.Post("/submissions/:id/retry", issuers, h.Retry)

	// Consolidado B2C
	g.Post("/consolidated", issuers, h.SubmitConsolidated)
}
