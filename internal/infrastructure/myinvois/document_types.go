package myinvois

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/buku-api/internal/domain/entity"
	pkgmyinvois "github.com/jhoicas/buku-api/pkg/myinvois"
)

// DocumentLine línea normalizada para el builder.
type DocumentLine struct {
	Description        string
	Quantity           decimal.Decimal
	UnitCode           string
	UnitPrice          decimal.Decimal
	Subtotal           decimal.Decimal
	TaxRate            decimal.Decimal
	TaxAmount          decimal.Decimal
	ClassificationCode string
}

// BillingReference referencia a la factura original (notas crédito/débito).
type BillingReference struct {
	InvoiceNumber string
	InvoiceUUID   string // document_uid de la factura en MyInvois, si se conoce
}

// Period periodo de facturación (consolidados).
type Period struct {
	Start time.Time
	End   time.Time
}

// DocumentBuildContext contexto con todos los datos necesarios para construir el documento.
type DocumentBuildContext struct {
	TypeCode         string // 01, 02, 03, 04, 11
	Version          string // 1.0 sin firma, 1.1 firmado
	Number           string
	IssuedAt         time.Time
	Currency         string
	Supplier         *entity.BusinessProfile
	Customer         *entity.Customer
	Lines            []DocumentLine
	Subtotal         decimal.Decimal
	TaxTotal         decimal.Decimal
	Total            decimal.Decimal
	AmountDue        decimal.Decimal
	BillingReference *BillingReference
	Period           *Period
	PaymentMeansCode string // vacío = transferencia si hay cuenta bancaria
}

// ConsolidatedTransaction transacción B2C agregada en un consolidado.
type ConsolidatedTransaction struct {
	Reference string
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
}

// ── Conversión desde entidades ────────────────────────────────────────────────

func linesFromItems(items []*entity.LineItem) []DocumentLine {
	lines := make([]DocumentLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, DocumentLine{
			Description:        it.Description,
			Quantity:           it.Quantity,
			UnitCode:           it.UnitCode,
			UnitPrice:          it.UnitPrice,
			Subtotal:           it.Subtotal,
			TaxRate:            it.TaxRate,
			TaxAmount:          it.TaxAmount,
			ClassificationCode: it.ClassificationCode,
		})
	}
	return lines
}

// InvoiceContext arma el contexto de una factura.
func InvoiceContext(inv *entity.Invoice, items []*entity.LineItem, customer *entity.Customer, profile *entity.BusinessProfile) *DocumentBuildContext {
	return &DocumentBuildContext{
		TypeCode:  pkgmyinvois.DocTypeInvoice,
		Number:    inv.Number,
		IssuedAt:  inv.IssueDate,
		Currency:  inv.Currency,
		Supplier:  profile,
		Customer:  customer,
		Lines:     linesFromItems(items),
		Subtotal:  inv.Subtotal,
		TaxTotal:  inv.TaxTotal,
		Total:     inv.Total,
		AmountDue: inv.AmountDue,
	}
}

// CreditNoteContext arma el contexto de una nota crédito con referencia a su factura.
func CreditNoteContext(cn *entity.CreditNote, items []*entity.LineItem, customer *entity.Customer, profile *entity.BusinessProfile, parent *entity.Invoice, parentUID string) *DocumentBuildContext {
	ref := &BillingReference{InvoiceUUID: parentUID}
	if parent != nil {
		ref.InvoiceNumber = parent.Number
	}
	return &DocumentBuildContext{
		TypeCode:         pkgmyinvois.DocTypeCreditNote,
		Number:           cn.Number,
		IssuedAt:         cn.IssueDate,
		Currency:         cn.Currency,
		Supplier:         profile,
		Customer:         customer,
		Lines:            linesFromItems(items),
		Subtotal:         cn.Subtotal,
		TaxTotal:         cn.TaxTotal,
		Total:            cn.Total,
		AmountDue:        cn.Total,
		BillingReference: ref,
	}
}

// GeneralPublic contraparte sintética de los consolidados B2C.
func GeneralPublic() *entity.Customer {
	return &entity.Customer{
		Name:         pkgmyinvois.GeneralPublicName,
		TIN:          pkgmyinvois.TINGeneralPublic,
		IDType:       pkgmyinvois.IDTypeBRN,
		IDValue:      pkgmyinvois.NotApplicable,
		AddressLine1: pkgmyinvois.NotApplicable,
		City:         pkgmyinvois.NotApplicable,
		StateCode:    pkgmyinvois.StateNotApplicable,
		CountryCode:  pkgmyinvois.CountryMYS,
	}
}

// ConsolidatedContext sintetiza un pseudo-documento con una sola línea que resume todas las
// transacciones del periodo.
func ConsolidatedContext(number string, issuedAt time.Time, period Period, txs []ConsolidatedTransaction, profile *entity.BusinessProfile) *DocumentBuildContext {
	var subtotal, tax decimal.Decimal
	for _, tx := range txs {
		subtotal = subtotal.Add(tx.Subtotal)
		tax = tax.Add(tx.TaxAmount)
	}
	rate := decimal.Zero
	if !subtotal.IsZero() && !tax.IsZero() {
		rate = tax.Div(subtotal).Mul(decimal.NewFromInt(100)).Round(2)
	}
	desc := "Consolidated sales"
	if len(txs) > 0 {
		desc = "Receipts " + txs[0].Reference + " - " + txs[len(txs)-1].Reference
	}
	total := subtotal.Add(tax)
	return &DocumentBuildContext{
		TypeCode: pkgmyinvois.DocTypeInvoice,
		Number:   number,
		IssuedAt: issuedAt,
		Currency: pkgmyinvois.CurrencyMYR,
		Supplier: profile,
		Customer: GeneralPublic(),
		Lines: []DocumentLine{{
			Description:        desc,
			Quantity:           decimal.NewFromInt(1),
			UnitCode:           pkgmyinvois.UnitPiece,
			UnitPrice:          subtotal,
			Subtotal:           subtotal,
			TaxRate:            rate,
			TaxAmount:          tax,
			ClassificationCode: pkgmyinvois.ClassificationConsolidated,
		}},
		Subtotal:  subtotal,
		TaxTotal:  tax,
		Total:     total,
		AmountDue: total,
		Period:    &period,
	}
}
