package entity

import "github.com/shopspring/decimal"

// LineItem línea de detalle de una factura o nota crédito.
type LineItem struct {
	ID                 string
	DocumentID         string
	Description        string
	Quantity           decimal.Decimal
	UnitCode           string // UN/ECE Rec 20; vacío = C62 (unidad)
	UnitPrice          decimal.Decimal
	TaxRate            decimal.Decimal // porcentaje, ej. 6 = 6%
	TaxAmount          decimal.Decimal
	Subtotal           decimal.Decimal // cantidad * precio, sin impuesto
	ClassificationCode string          // catálogo de clasificación MyInvois; vacío = 022
}

// IsTaxExempt true si la línea no causa impuesto.
func (l *LineItem) IsTaxExempt() bool {
	return l.TaxRate.IsZero()
}
