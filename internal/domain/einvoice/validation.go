package einvoice

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/buku-api/internal/domain/entity"
)

// ErrInvalidDocument agrupa errores de validación previos al envío.
var ErrInvalidDocument = errors.New("documento inválido para MyInvois")

// Totals totales de cabecera de una factura o nota crédito.
type Totals struct {
	Subtotal decimal.Decimal
	TaxTotal decimal.Decimal
	Total    decimal.Decimal
}

// ValidateTotals comprueba que la cabecera coincida con la suma de las líneas.
// Un documento incoherente sería rechazado por la autoridad; mejor no enviarlo.
func ValidateTotals(number string, totals Totals, items []*entity.LineItem) error {
	var errs []error
	if number == "" {
		errs = append(errs, fmt.Errorf("número de documento requerido"))
	}
	if len(items) == 0 {
		errs = append(errs, fmt.Errorf("el documento debe tener al menos una línea"))
	} else {
		var sumSubtotal, sumTax decimal.Decimal
		for _, it := range items {
			sumSubtotal = sumSubtotal.Add(it.Subtotal)
			sumTax = sumTax.Add(it.TaxAmount)
		}
		if !totals.Subtotal.Round(2).Equal(sumSubtotal.Round(2)) {
			errs = append(errs, fmt.Errorf("subtotal (%s) no coincide con la suma de líneas (%s)", totals.Subtotal.StringFixed(2), sumSubtotal.StringFixed(2)))
		}
		if !totals.TaxTotal.Round(2).Equal(sumTax.Round(2)) {
			errs = append(errs, fmt.Errorf("impuesto (%s) no coincide con la suma de líneas (%s)", totals.TaxTotal.StringFixed(2), sumTax.StringFixed(2)))
		}
		expected := sumSubtotal.Add(sumTax).Round(2)
		if !totals.Total.Round(2).Equal(expected) {
			errs = append(errs, fmt.Errorf("total (%s) no coincide con subtotal + impuesto (%s)", totals.Total.StringFixed(2), expected.StringFixed(2)))
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidDocument}, errs...)...)
	}
	return nil
}
