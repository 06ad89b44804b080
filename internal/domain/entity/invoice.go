package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice cabecera de una factura finalizada (vista de solo lectura para la factura electrónica).
type Invoice struct {
	ID             string
	CompanyID      string
	CustomerID     string
	Number         string
	IssueDate      time.Time
	Currency       string
	Subtotal       decimal.Decimal
	TaxTotal       decimal.Decimal
	Total          decimal.Decimal
	AmountDue      decimal.Decimal
	EInvoiceLongID string // Long ID de MyInvois una vez validada; alimenta el QR
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreditNote nota crédito emitida contra una factura.
type CreditNote struct {
	ID             string
	CompanyID      string
	InvoiceID      string // factura de origen
	CustomerID     string
	Number         string
	IssueDate      time.Time
	Currency       string
	Reason         string
	Subtotal       decimal.Decimal
	TaxTotal       decimal.Decimal
	Total          decimal.Decimal
	EInvoiceLongID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
