package entity

import "time"

// BusinessProfile identidad del emisor (proveedor) usada para poblar el documento electrónico.
// Una por empresa/tenant.
type BusinessProfile struct {
	ID                string
	CompanyID         string
	LegalName         string
	TIN               string
	IDType            string
	IDValue           string
	SSTNumber         string
	MSICCode          string // código de actividad económica
	BusinessActivity  string
	Email             string
	Phone             string
	AddressLine1      string
	AddressLine2      string
	City              string
	PostalCode        string
	StateCode         string
	CountryCode       string
	BankAccountNumber string
	TaxTypeCode       string // tipo de impuesto por defecto; vacío = 01
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
