package einvoice_test

import (
	"encoding/base64"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/buku-api/internal/domain/einvoice"
	"github.com/jhoicas/buku-api/internal/domain/entity"
)

// Vector calculado con sha256sum sobre la cadena exacta.
const (
	testSerialized = `{"_D":"urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"}`
	testHash       = "eb353c56a6ee4f1cca7e92b13a562d31a5b25ebc548d9d7b4f27deadc4aaea12"
	testPayload    = "eyJfRCI6InVybjpvYXNpczpuYW1lczpzcGVjaWZpY2F0aW9uOnVibDpzY2hlbWE6eHNkOkludm9pY2UtMiJ9"
)

func TestComputeDigest_VectorExacto(t *testing.T) {
	d, err := einvoice.ComputeDigest([]byte(testSerialized))
	require.NoError(t, err)
	assert.Equal(t, testHash, d.Hash)
	assert.Equal(t, testPayload, d.Payload)
	assert.Len(t, d.Hash, 64, "SHA-256 son 64 caracteres hexadecimales")
}

func TestComputeDigest_PayloadDecodificaALosMismosBytes(t *testing.T) {
	d, err := einvoice.ComputeDigest([]byte(testSerialized))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(d.Payload)
	require.NoError(t, err)
	assert.Equal(t, testSerialized, string(raw))
}

func TestComputeDigest_SensibleAlContenido(t *testing.T) {
	d1, _ := einvoice.ComputeDigest([]byte(`{"ID":"INV-0001"}`))
	d2, _ := einvoice.ComputeDigest([]byte(`{"ID":"INV-0002"}`))
	assert.NotEqual(t, d1.Hash, d2.Hash)
}

func TestComputeDigest_ErrorSiVacio(t *testing.T) {
	_, err := einvoice.ComputeDigest(nil)
	assert.Error(t, err)
}

// ── ValidateTotals ────────────────────────────────────────────────────────────

func testItems() []*entity.LineItem {
	return []*entity.LineItem{{
		Description: "Servicio de consultoría",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(1000),
		TaxRate:     decimal.NewFromInt(6),
		TaxAmount:   decimal.NewFromInt(60),
		Subtotal:    decimal.NewFromInt(1000),
	}}
}

func TestValidateTotals_Coherente(t *testing.T) {
	err := einvoice.ValidateTotals("INV-0001", einvoice.Totals{
		Subtotal: decimal.NewFromInt(1000),
		TaxTotal: decimal.NewFromInt(60),
		Total:    decimal.NewFromInt(1060),
	}, testItems())
	assert.NoError(t, err)
}

func TestValidateTotals_TotalDescuadrado(t *testing.T) {
	err := einvoice.ValidateTotals("INV-0001", einvoice.Totals{
		Subtotal: decimal.NewFromInt(1000),
		TaxTotal: decimal.NewFromInt(60),
		Total:    decimal.NewFromInt(1100),
	}, testItems())
	require.Error(t, err)
	assert.ErrorIs(t, err, einvoice.ErrInvalidDocument)
}

func TestValidateTotals_SinLineas(t *testing.T) {
	err := einvoice.ValidateTotals("INV-0001", einvoice.Totals{}, nil)
	assert.ErrorIs(t, err, einvoice.ErrInvalidDocument)
}
