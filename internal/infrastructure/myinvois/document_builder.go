package myinvois

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/buku-api/internal/domain/entity"
	pkgmyinvois "github.com/jhoicas/buku-api/pkg/myinvois"
)

const (
	taxSchemeID       = "OTH"
	taxSchemeList     = "UN/ECE 5153"
	taxSchemeAgencyID = "6"
	classificationSet = "CLASS"
	countryListID     = "ISO3166-1"
)

// DocumentBuilder construye el documento UBL-JSON de MyInvois. No hace I/O: las mismas
// entradas producen siempre los mismos bytes serializados.
type DocumentBuilder struct{}

// NewDocumentBuilder crea el servicio.
func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{}
}

// Build arma el documento a partir del contexto.
func (b *DocumentBuilder) Build(ctx *DocumentBuildContext) (*Document, error) {
	if ctx == nil || ctx.Supplier == nil || ctx.Customer == nil {
		return nil, fmt.Errorf("myinvois: faltan emisor o cliente en el contexto")
	}
	if clean(ctx.Number) == "" {
		return nil, fmt.Errorf("myinvois: número de documento requerido")
	}
	if !pkgmyinvois.ValidDocumentTypes[ctx.TypeCode] {
		return nil, fmt.Errorf("myinvois: tipo de documento no soportado: %q", ctx.TypeCode)
	}
	if len(ctx.Lines) == 0 {
		return nil, fmt.Errorf("myinvois: el documento debe tener al menos una línea")
	}

	currency := ctx.Currency
	if currency == "" {
		currency = pkgmyinvois.CurrencyMYR
	}
	version := ctx.Version
	if version == "" {
		version = pkgmyinvois.DocumentVersionUnsigned
	}
	standardTax := ctx.Supplier.TaxTypeCode
	if standardTax == "" {
		standardTax = pkgmyinvois.TaxTypeSales
	}
	issued := ctx.IssuedAt.UTC()

	body := InvoiceBody{
		ID:                      text(clean(ctx.Number)),
		IssueDate:               text(issued.Format("2006-01-02")),
		IssueTime:               text(issued.Format("15:04:05") + "Z"),
		InvoiceTypeCode:         []Field{{Value: textValue(ctx.TypeCode), ListVersionID: version}},
		DocumentCurrencyCode:    text(currency),
		AccountingSupplierParty: []PartyNode{{Party: []Party{supplierParty(ctx.Supplier)}}},
		AccountingCustomerParty: []PartyNode{{Party: []Party{customerParty(ctx.Customer)}}},
	}

	if ctx.Period != nil {
		body.InvoicePeriod = []InvoicePeriod{{
			StartDate:   text(ctx.Period.Start.UTC().Format("2006-01-02")),
			EndDate:     text(ctx.Period.End.UTC().Format("2006-01-02")),
			Description: text("Monthly"),
		}}
	}

	if ref := ctx.BillingReference; ref != nil {
		docRef := DocumentReference{ID: text(clean(ref.InvoiceNumber))}
		if ref.InvoiceUUID != "" {
			docRef.UUID = text(ref.InvoiceUUID)
		}
		body.BillingReference = []BillingRefNode{{InvoiceDocumentReference: []DocumentReference{docRef}}}
	}

	if pm := paymentMeans(ctx); pm != nil {
		body.PaymentMeans = []PaymentMeansNode{*pm}
	}

	// ── Líneas e impuestos ─────────────────────────────────────────────────────
	type taxGroup struct {
		taxable decimal.Decimal
		tax     decimal.Decimal
	}
	groups := map[string]*taxGroup{}
	for i, l := range ctx.Lines {
		category := taxCategoryCode(l.TaxRate, standardTax)
		g, ok := groups[category]
		if !ok {
			g = &taxGroup{}
			groups[category] = g
		}
		g.taxable = g.taxable.Add(l.Subtotal)
		g.tax = g.tax.Add(l.TaxAmount)

		body.InvoiceLine = append(body.InvoiceLine, invoiceLine(i+1, l, category, currency))
	}

	categories := make([]string, 0, len(groups))
	for c := range groups {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	subtotals := make([]TaxSubtotal, 0, len(categories))
	for _, c := range categories {
		g := groups[c]
		subtotals = append(subtotals, TaxSubtotal{
			TaxableAmount: amount(g.taxable, currency),
			TaxAmount:     amount(g.tax, currency),
			TaxCategory:   []TaxCategory{taxCategory(c)},
		})
	}
	body.TaxTotal = []TaxTotalNode{{
		TaxAmount:   amount(ctx.TaxTotal, currency),
		TaxSubtotal: subtotals,
	}}

	body.LegalMonetaryTotal = []MonetaryTotal{{
		LineExtensionAmount: amount(ctx.Subtotal, currency),
		TaxExclusiveAmount:  amount(ctx.Subtotal, currency),
		TaxInclusiveAmount:  amount(ctx.Total, currency),
		PayableAmount:       amount(ctx.AmountDue, currency),
	}}

	return &Document{
		D:       NsInvoice,
		A:       NsCac,
		B:       NsCbc,
		Invoice: []InvoiceBody{body},
	}, nil
}

// Serialize produce el JSON canónico (compacto, orden de campos fijo por los structs).
func (b *DocumentBuilder) Serialize(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("myinvois: documento nulo")
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("myinvois: serializar documento: %w", err)
	}
	return out, nil
}

// BuildAndSerialize atajo Build + Serialize.
func (b *DocumentBuilder) BuildAndSerialize(ctx *DocumentBuildContext) ([]byte, error) {
	doc, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	return b.Serialize(doc)
}

// taxCategoryCode "E" (exento) cuando la tarifa es cero; si no, el tipo estándar del emisor.
func taxCategoryCode(rate decimal.Decimal, standard string) string {
	if rate.IsZero() {
		return pkgmyinvois.TaxTypeExempt
	}
	return standard
}

func taxCategory(code string) TaxCategory {
	tc := TaxCategory{
		ID: text(code),
		TaxScheme: []TaxScheme{{ID: []Field{{
			Value:          textValue(taxSchemeID),
			SchemeID:       taxSchemeList,
			SchemeAgencyID: taxSchemeAgencyID,
		}}}},
	}
	if code == pkgmyinvois.TaxTypeExempt {
		tc.TaxExemptionReason = text(pkgmyinvois.DefaultExemptionReason)
	}
	return tc
}

func invoiceLine(n int, l DocumentLine, category, currency string) InvoiceLineNode {
	unit := l.UnitCode
	if unit == "" {
		unit = pkgmyinvois.UnitPiece
	}
	class := l.ClassificationCode
	if class == "" {
		class = pkgmyinvois.ClassificationOthers
	}
	return InvoiceLineNode{
		ID:                  text(strconv.Itoa(n)),
		InvoicedQuantity:    []Field{{Value: numberValue(l.Quantity), UnitCode: unit}},
		LineExtensionAmount: amount(l.Subtotal, currency),
		TaxTotal: []TaxTotalNode{{
			TaxAmount: amount(l.TaxAmount, currency),
			TaxSubtotal: []TaxSubtotal{{
				TaxableAmount: amount(l.Subtotal, currency),
				TaxAmount:     amount(l.TaxAmount, currency),
				Percent:       []Field{{Value: numberValue(l.TaxRate.Round(2))}},
				TaxCategory:   []TaxCategory{taxCategory(category)},
			}},
		}},
		Item: []Item{{
			CommodityClassification: []CommodityClassification{{
				ItemClassificationCode: []Field{{Value: textValue(class), ListID: classificationSet}},
			}},
			Description: text(clean(l.Description)),
		}},
		Price:              []Price{{PriceAmount: amount(l.UnitPrice, currency)}},
		ItemPriceExtension: []PriceExtension{{Amount: amount(l.Subtotal, currency)}},
	}
}

// ── Partes ────────────────────────────────────────────────────────────────────

func supplierParty(p *entity.BusinessProfile) Party {
	party := Party{
		PartyIdentification: identifications(p.TIN, p.IDType, p.IDValue, p.SSTNumber),
		PostalAddress: []PostalAddress{postalAddress(
			p.AddressLine1, p.AddressLine2, p.City, p.PostalCode, p.StateCode, p.CountryCode)},
		PartyLegalEntity: []PartyLegalEntity{{RegistrationName: text(clean(p.LegalName))}},
		Contact:          contact(p.Phone, p.Email),
	}
	if p.MSICCode != "" {
		party.IndustryClassificationCode = []Field{{Value: textValue(clean(p.MSICCode)), Name: clean(p.BusinessActivity)}}
	}
	return party
}

func customerParty(c *entity.Customer) Party {
	return Party{
		PartyIdentification: identifications(c.TIN, c.IDType, c.IDValue, c.SSTNumber),
		PostalAddress: []PostalAddress{postalAddress(
			c.AddressLine1, c.AddressLine2, c.City, c.PostalCode, c.StateCode, c.CountryCode)},
		PartyLegalEntity: []PartyLegalEntity{{RegistrationName: text(clean(c.Name))}},
		Contact:          contact(c.Phone, c.Email),
	}
}

// identifications TIN + documento (NRIC/BRN/...) + SST. Los vacíos se envían como "NA".
func identifications(tin, idType, idValue, sst string) []PartyIdentification {
	ids := []PartyIdentification{
		{ID: []Field{scheme(pkgmyinvois.NormalizeTIN(tin), "TIN")}},
	}
	if idType != "" {
		ids = append(ids, PartyIdentification{ID: []Field{scheme(orNA(idValue), strings.ToUpper(idType))}})
	}
	ids = append(ids, PartyIdentification{ID: []Field{scheme(orNA(sst), "SST")}})
	return ids
}

func postalAddress(line1, line2, city, postal, state, country string) PostalAddress {
	if country == "" {
		country = pkgmyinvois.CountryMYS
	}
	if state == "" {
		state = pkgmyinvois.StateNotApplicable
	}
	lines := []AddressLine{{Line: text(orNA(line1))}}
	if clean(line2) != "" {
		lines = append(lines, AddressLine{Line: text(clean(line2))})
	}
	return PostalAddress{
		CityName:             text(orNA(city)),
		PostalZone:           text(clean(postal)),
		CountrySubentityCode: text(state),
		AddressLine:          lines,
		Country: []Country{{IdentificationCode: []Field{{
			Value:        textValue(country),
			ListID:       countryListID,
			ListAgencyID: "6",
		}}}},
	}
}

func contact(phone, email string) []Contact {
	phone, email = clean(phone), clean(email)
	if phone == "" && email == "" {
		return nil
	}
	c := Contact{}
	if phone != "" {
		c.Telephone = text(phone)
	}
	if email != "" {
		c.ElectronicMail = text(email)
	}
	return []Contact{c}
}

func paymentMeans(ctx *DocumentBuildContext) *PaymentMeansNode {
	account := clean(ctx.Supplier.BankAccountNumber)
	code := ctx.PaymentMeansCode
	if code == "" && account == "" {
		return nil
	}
	if code == "" {
		code = pkgmyinvois.PaymentBankTransfer
	}
	pm := &PaymentMeansNode{PaymentMeansCode: text(code)}
	if account != "" {
		pm.PayeeFinancialAccount = []FinancialAccount{{ID: text(account)}}
	}
	return pm
}

// clean recorta y normaliza a NFC para que texto equivalente serialice igual.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func orNA(s string) string {
	if c := clean(s); c != "" {
		return c
	}
	return pkgmyinvois.NotApplicable
}
