package entity

import "time"

// Customer contraparte de una factura (comprador).
type Customer struct {
	ID           string
	CompanyID    string
	Name         string
	TIN          string // Tax Identification Number (LHDN)
	IDType       string // NRIC, BRN, PASSPORT, ARMY
	IDValue      string
	SSTNumber    string
	Email        string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	PostalCode   string
	StateCode    string
	CountryCode  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
