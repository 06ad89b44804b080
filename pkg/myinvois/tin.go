package myinvois

import (
	"fmt"
	"regexp"
	"strings"
)

// prefijos de TIN para no-individuos (empresas, sociedades, fideicomisos...).
var tinPattern = regexp.MustCompile(`^(IG|C|CS|D|E|F|FA|PT|TA|TC|TN|TR|TP|J|LE)[0-9]{8,12}$`)

var genericTINs = map[string]bool{
	TINGeneralPublic: true, TINForeignBuyer: true, TINForeignSupplier: true, TINGovernment: true,
}

// NormalizeTIN quita espacios y pasa a mayúsculas.
func NormalizeTIN(tin string) string {
	return strings.ToUpper(strings.Join(strings.Fields(tin), ""))
}

// ValidateTINFormat valida el formato del TIN (no su existencia; para eso está el
// endpoint de validación de contribuyente).
func ValidateTINFormat(tin string) error {
	t := NormalizeTIN(tin)
	if t == "" {
		return fmt.Errorf("myinvois: TIN requerido")
	}
	if genericTINs[t] {
		return nil
	}
	if !tinPattern.MatchString(t) {
		return fmt.Errorf("myinvois: TIN con formato inválido: %q", tin)
	}
	return nil
}

// IsGenericTIN true para los TIN genéricos publicados por LHDN.
func IsGenericTIN(tin string) bool {
	return genericTINs[NormalizeTIN(tin)]
}
