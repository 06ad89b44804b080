package einvoice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/buku-api/internal/application/einvoice"
	"github.com/jhoicas/buku-api/internal/domain"
	"github.com/jhoicas/buku-api/internal/domain/entity"
)

// ── Escenario B ───────────────────────────────────────────────────────────────

func TestPoll_ValidFijaLongIDYEsIdempotente(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionPending, DocumentUID: "doc-abc"})
	h.authority.setStatus("doc-abc", "Valid", "LID-999")
	h.clock.Advance(10 * time.Minute)
	ctx := context.Background()

	got, err := h.reconciler.Poll(ctx, testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionValid, got.Status)
	assert.Equal(t, "LID-999", got.LongID)
	require.NotNil(t, got.ValidatedAt)
	firstValidated := *got.ValidatedAt
	assert.True(t, firstValidated.Equal(t0.Add(10*time.Minute)))
	assert.Equal(t, "LID-999", h.invoices.invoices["inv-1"].EInvoiceLongID)
	assert.Equal(t, 1, h.tx.calls)
	assert.Equal(t, []string{einvoice.EventStatusChanged}, h.events.types())

	h.clock.Advance(time.Hour)
	h.authority.setStatus("doc-abc", "Valid", "LID-OTRO")
	again, err := h.reconciler.Poll(ctx, testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionValid, again.Status)
	assert.Equal(t, "LID-999", again.LongID)
	assert.True(t, again.ValidatedAt.Equal(firstValidated))
	assert.Equal(t, 1, h.tx.calls, "sin cambio de estado no se reescribe la factura")
	assert.Len(t, h.events.types(), 1)
}

func TestPoll_InvalidGuardaMotivo(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionPending, DocumentUID: "doc-abc"})
	h.authority.setStatus("doc-abc", "Invalid", "")
	h.authority.details["doc-abc"].DocumentStatusReason = "Buyer TIN mismatch"

	got, err := h.reconciler.Poll(context.Background(), testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionInvalid, got.Status)
	assert.Equal(t, "Buyer TIN mismatch", got.ErrorMessage)
	assert.Nil(t, got.ValidatedAt)
	assert.Empty(t, h.invoices.invoices["inv-1"].EInvoiceLongID)
	assert.JSONEq(t, `{"uuid":"doc-abc","status":"Invalid"}`, string(h.subs.stored(t, s.ID).LastResponse))
}

func TestPoll_CancelacionExternaSeSincroniza(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionValid, DocumentUID: "doc-abc", LongID: "LID-1"})
	h.authority.setStatus("doc-abc", "Cancelled", "")

	got, err := h.reconciler.Poll(context.Background(), testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
}

func TestPoll_SinDocumentUIDNoConsulta(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionInvalid})

	got, err := h.reconciler.Poll(context.Background(), testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionInvalid, got.Status)
	tokenCalls, _, detailCalls, _ := h.authority.calls()
	assert.Zero(t, tokenCalls)
	assert.Zero(t, detailCalls)
}

func TestPoll_FalloTransitorioSeIgnora(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionPending, DocumentUID: "doc-abc"})
	h.authority.detailsErr = errNetwork

	got, err := h.reconciler.Poll(context.Background(), testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionPending, got.Status)

	stored := h.subs.stored(t, s.ID)
	assert.Equal(t, entity.SubmissionPending, stored.Status)
	assert.Zero(t, stored.RetryCount)
	assert.Empty(t, stored.ErrorMessage)
}

func TestPoll_FalloDeTokenSeIgnora(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionPending, DocumentUID: "doc-abc"})
	h.authority.tokenErr = domain.ErrAuthentication

	got, err := h.reconciler.Poll(context.Background(), testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionPending, got.Status)
	_, _, detailCalls, _ := h.authority.calls()
	assert.Zero(t, detailCalls)
}

func TestPoll_EstadoDesconocidoConservaElActual(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionPending, DocumentUID: "doc-abc"})
	h.authority.setStatus("doc-abc", "Quarantined", "")

	got, err := h.reconciler.Poll(context.Background(), testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionPending, got.Status)
	assert.Empty(t, h.events.types())
}

func TestPoll_ErrorDePersistenciaSePropaga(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionPending, DocumentUID: "doc-abc"})
	h.authority.setStatus("doc-abc", "Invalid", "")
	h.subs.updateErr = errors.New("conexión cerrada")

	_, err := h.reconciler.Poll(context.Background(), testCompany, s.ID)
	require.Error(t, err)
}

func TestPoll_EnvioDeOtraEmpresa(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionPending, DocumentUID: "doc-abc"})

	_, err := h.reconciler.Poll(context.Background(), otherCompany, s.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.reconciler.Poll(context.Background(), testCompany, "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// ── Barrido ───────────────────────────────────────────────────────────────────

func TestPollPending_ContabilizaCadaEnvio(t *testing.T) {
	h := newHarness(t)
	h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionPending, DocumentUID: "doc-1"})
	h.seedSubmission(entity.EInvoiceSubmission{
		ID: "s-2", Status: entity.SubmissionPending, DocumentUID: "doc-2", Subject: entity.CreditNoteSubject("cn-1"),
		Kind: entity.KindCreditNote,
	})
	h.seedSubmission(entity.EInvoiceSubmission{
		ID: "s-3", Status: entity.SubmissionPending, DocumentUID: "doc-3", Subject: entity.InvoiceSubject("inv-9"),
	})
	h.seedSubmission(entity.EInvoiceSubmission{ID: "s-4", Status: entity.SubmissionValid, DocumentUID: "doc-4"})
	h.authority.setStatus("doc-1", "Valid", "LID-1")
	// doc-2 no existe en la autoridad: 404
	h.authority.setStatus("doc-3", "Invalid", "")

	summary, err := h.reconciler.PollPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, einvoice.PollSummary{Scanned: 3, Succeeded: 2, Failed: 1}, summary)

	assert.Equal(t, entity.SubmissionValid, h.subs.stored(t, "s-1").Status)
	assert.Equal(t, entity.SubmissionPending, h.subs.stored(t, "s-2").Status)
	assert.Equal(t, entity.SubmissionInvalid, h.subs.stored(t, "s-3").Status)
	assert.Equal(t, entity.SubmissionValid, h.subs.stored(t, "s-4").Status)
}

func TestPollPending_RespetaElTamanoDelLote(t *testing.T) {
	h := newHarness(t)
	for _, id := range []string{"s-1", "s-2", "s-3"} {
		h.seedSubmission(entity.EInvoiceSubmission{ID: id, Status: entity.SubmissionPending, DocumentUID: "doc-" + id})
		h.authority.setStatus("doc-"+id, "Submitted", "")
	}
	h.reconciler.WithBatchSize(2)

	summary, err := h.reconciler.PollPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 2, summary.Succeeded)
}

func TestPollPending_ContextoCancelado(t *testing.T) {
	h := newHarness(t)
	h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionPending, DocumentUID: "doc-1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := h.reconciler.PollPending(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Scanned)
}

func TestPoll_LongIDTardioLlegaALaFactura(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{ID: "s-1", Status: entity.SubmissionPending, DocumentUID: "doc-abc"})
	ctx := context.Background()

	h.authority.setStatus("doc-abc", "Valid", "")
	got, err := h.reconciler.Poll(ctx, testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionValid, got.Status)
	assert.Empty(t, got.LongID)
	assert.Empty(t, h.invoices.invoices["inv-1"].EInvoiceLongID)
	assert.Equal(t, 0, h.tx.calls)

	h.clock.Advance(time.Hour)
	h.authority.setStatus("doc-abc", "Valid", "LID-999")
	got, err = h.reconciler.Poll(ctx, testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "LID-999", got.LongID)
	assert.Equal(t, "LID-999", h.subs.stored(t, s.ID).LongID)
	assert.Equal(t, "LID-999", h.invoices.invoices["inv-1"].EInvoiceLongID)
	assert.Equal(t, 1, h.tx.calls)
	assert.True(t, got.ValidatedAt.Equal(t0), "validated_at del primer Valid")
	assert.Len(t, h.events.types(), 1, "sin cambio de estado no hay evento nuevo")
}

func TestPoll_LongIDTardioEnNotaCredito(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{
		ID: "s-cn", Subject: entity.CreditNoteSubject("cn-1"), Kind: entity.KindCreditNote,
		Status: entity.SubmissionValid, DocumentUID: "doc-cn",
	})
	h.authority.setStatus("doc-cn", "Valid", "LID-CN")

	_, err := h.reconciler.Poll(context.Background(), testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "LID-CN", h.creditNotes.notes["cn-1"].EInvoiceLongID)
	assert.Empty(t, h.invoices.invoices["inv-1"].EInvoiceLongID)
}

func TestPoll_FilaCanceladaConservaEstado(t *testing.T) {
	h := newHarness(t)
	cancelledAt := t0.Add(-time.Hour)
	s := h.seedSubmission(entity.EInvoiceSubmission{
		ID: "s-1", Status: entity.SubmissionCancelled, DocumentUID: "doc-abc", CancelledAt: &cancelledAt,
	})
	h.authority.setStatus("doc-abc", "Valid", "LID-999")

	got, err := h.reconciler.Poll(context.Background(), testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionCancelled, got.Status)
	stored := h.subs.stored(t, s.ID)
	assert.Equal(t, entity.SubmissionCancelled, stored.Status)
	assert.Empty(t, stored.LongID)
	assert.Nil(t, stored.ValidatedAt)
	assert.JSONEq(t, `{"uuid":"doc-abc","status":"Valid"}`, string(stored.LastResponse))
	assert.Empty(t, h.invoices.invoices["inv-1"].EInvoiceLongID)
	assert.Equal(t, 0, h.tx.calls)
	assert.Empty(t, h.events.types())
}

func TestPoll_FilaInvalidaConservaEstado(t *testing.T) {
	h := newHarness(t)
	s := h.seedSubmission(entity.EInvoiceSubmission{
		ID: "s-1", Status: entity.SubmissionInvalid, DocumentUID: "doc-abc", ErrorMessage: "Buyer TIN mismatch",
	})
	h.authority.setStatus("doc-abc", "Valid", "LID-999")

	got, err := h.reconciler.Poll(context.Background(), testCompany, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionInvalid, got.Status)
	assert.Equal(t, "Buyer TIN mismatch", got.ErrorMessage)
	assert.Equal(t, entity.SubmissionInvalid, h.subs.stored(t, s.ID).Status)
	assert.Empty(t, h.invoices.invoices["inv-1"].EInvoiceLongID)
}
