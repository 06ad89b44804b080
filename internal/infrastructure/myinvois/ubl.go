package myinvois

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Namespaces de la variante JSON de UBL 2.1 usada por MyInvois.
const (
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCac     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
)

// Field valor hoja de UBL-JSON: {"_": valor, atributos...}.
// Value guarda el JSON literal para que montos como 1060.00 sobrevivan intactos a un
// unmarshal/marshal (firma).
type Field struct {
	Value          json.RawMessage `json:"_"`
	CurrencyID     string          `json:"currencyID,omitempty"`
	SchemeID       string          `json:"schemeID,omitempty"`
	SchemeAgencyID string          `json:"schemeAgencyID,omitempty"`
	UnitCode       string          `json:"unitCode,omitempty"`
	ListID         string          `json:"listID,omitempty"`
	ListAgencyID   string          `json:"listAgencyID,omitempty"`
	ListVersionID  string          `json:"listVersionID,omitempty"`
	Name           string          `json:"name,omitempty"`
}

// Document raíz del documento.
type Document struct {
	D       string        `json:"_D"`
	A       string        `json:"_A"`
	B       string        `json:"_B"`
	Invoice []InvoiceBody `json:"Invoice"`
}

// InvoiceBody cuerpo del documento (factura, nota crédito/débito, autofactura).
// UBLExtensions y Signature los inyecta el firmador.
type InvoiceBody struct {
	UBLExtensions           json.RawMessage    `json:"UBLExtensions,omitempty"`
	ID                      []Field            `json:"ID"`
	IssueDate               []Field            `json:"IssueDate"`
	IssueTime               []Field            `json:"IssueTime"`
	InvoiceTypeCode         []Field            `json:"InvoiceTypeCode"`
	DocumentCurrencyCode    []Field            `json:"DocumentCurrencyCode"`
	InvoicePeriod           []InvoicePeriod    `json:"InvoicePeriod,omitempty"`
	BillingReference        []BillingRefNode   `json:"BillingReference,omitempty"`
	Signature               json.RawMessage    `json:"Signature,omitempty"`
	AccountingSupplierParty []PartyNode        `json:"AccountingSupplierParty"`
	AccountingCustomerParty []PartyNode        `json:"AccountingCustomerParty"`
	PaymentMeans            []PaymentMeansNode `json:"PaymentMeans,omitempty"`
	TaxTotal                []TaxTotalNode     `json:"TaxTotal"`
	LegalMonetaryTotal      []MonetaryTotal    `json:"LegalMonetaryTotal"`
	InvoiceLine             []InvoiceLineNode  `json:"InvoiceLine"`
}

type InvoicePeriod struct {
	StartDate   []Field `json:"StartDate"`
	EndDate     []Field `json:"EndDate"`
	Description []Field `json:"Description,omitempty"`
}

type BillingRefNode struct {
	InvoiceDocumentReference []DocumentReference `json:"InvoiceDocumentReference"`
}

type DocumentReference struct {
	ID   []Field `json:"ID"`
	UUID []Field `json:"UUID,omitempty"`
}

type PartyNode struct {
	Party []Party `json:"Party"`
}

type Party struct {
	IndustryClassificationCode []Field               `json:"IndustryClassificationCode,omitempty"`
	PartyIdentification        []PartyIdentification `json:"PartyIdentification"`
	PostalAddress              []PostalAddress       `json:"PostalAddress"`
	PartyLegalEntity           []PartyLegalEntity    `json:"PartyLegalEntity"`
	Contact                    []Contact             `json:"Contact,omitempty"`
}

type PartyIdentification struct {
	ID []Field `json:"ID"`
}

type PostalAddress struct {
	CityName             []Field       `json:"CityName"`
	PostalZone           []Field       `json:"PostalZone"`
	CountrySubentityCode []Field       `json:"CountrySubentityCode"`
	AddressLine          []AddressLine `json:"AddressLine"`
	Country              []Country     `json:"Country"`
}

type AddressLine struct {
	Line []Field `json:"Line"`
}

type Country struct {
	IdentificationCode []Field `json:"IdentificationCode"`
}

type PartyLegalEntity struct {
	RegistrationName []Field `json:"RegistrationName"`
}

type Contact struct {
	Telephone      []Field `json:"Telephone,omitempty"`
	ElectronicMail []Field `json:"ElectronicMail,omitempty"`
}

type PaymentMeansNode struct {
	PaymentMeansCode      []Field            `json:"PaymentMeansCode"`
	PayeeFinancialAccount []FinancialAccount `json:"PayeeFinancialAccount,omitempty"`
}

type FinancialAccount struct {
	ID []Field `json:"ID"`
}

type TaxTotalNode struct {
	TaxAmount   []Field       `json:"TaxAmount"`
	TaxSubtotal []TaxSubtotal `json:"TaxSubtotal"`
}

type TaxSubtotal struct {
	TaxableAmount []Field       `json:"TaxableAmount"`
	TaxAmount     []Field       `json:"TaxAmount"`
	Percent       []Field       `json:"Percent,omitempty"`
	TaxCategory   []TaxCategory `json:"TaxCategory"`
}

type TaxCategory struct {
	ID                 []Field     `json:"ID"`
	TaxExemptionReason []Field     `json:"TaxExemptionReason,omitempty"`
	TaxScheme          []TaxScheme `json:"TaxScheme"`
}

type TaxScheme struct {
	ID []Field `json:"ID"`
}

type MonetaryTotal struct {
	LineExtensionAmount []Field `json:"LineExtensionAmount"`
	TaxExclusiveAmount  []Field `json:"TaxExclusiveAmount"`
	TaxInclusiveAmount  []Field `json:"TaxInclusiveAmount"`
	PayableAmount       []Field `json:"PayableAmount"`
}

type InvoiceLineNode struct {
	ID                  []Field          `json:"ID"`
	InvoicedQuantity    []Field          `json:"InvoicedQuantity"`
	LineExtensionAmount []Field          `json:"LineExtensionAmount"`
	TaxTotal            []TaxTotalNode   `json:"TaxTotal"`
	Item                []Item           `json:"Item"`
	Price               []Price          `json:"Price"`
	ItemPriceExtension  []PriceExtension `json:"ItemPriceExtension"`
}

type Item struct {
	CommodityClassification []CommodityClassification `json:"CommodityClassification"`
	Description             []Field                   `json:"Description"`
}

type CommodityClassification struct {
	ItemClassificationCode []Field `json:"ItemClassificationCode"`
}

type Price struct {
	PriceAmount []Field `json:"PriceAmount"`
}

type PriceExtension struct {
	Amount []Field `json:"Amount"`
}

// ── Constructores de hojas ────────────────────────────────────────────────────

func textValue(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// amountValue monto como número JSON con 2 decimales fijos (ej. 1060.00).
func amountValue(d decimal.Decimal) json.RawMessage {
	return json.RawMessage(d.Round(2).StringFixed(2))
}

// numberValue número JSON sin forzar decimales (cantidades, porcentajes).
func numberValue(d decimal.Decimal) json.RawMessage {
	return json.RawMessage(d.String())
}

func text(s string) []Field {
	return []Field{{Value: textValue(s)}}
}

func amount(d decimal.Decimal, currency string) []Field {
	return []Field{{Value: amountValue(d), CurrencyID: currency}}
}

func scheme(value, schemeID string) Field {
	return Field{Value: textValue(value), SchemeID: schemeID}
}
