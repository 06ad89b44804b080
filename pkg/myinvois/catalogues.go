// Package myinvois contiene catálogos y validaciones alineados a la especificación
// del documento electrónico de MyInvois (LHDN, Malasia) v1.0/v1.1.
package myinvois

// =============================================================================
// Tipos de documento (e-Invoice Types)
// =============================================================================

const (
	DocTypeInvoice           = "01" // Invoice
	DocTypeCreditNote        = "02" // Credit Note
	DocTypeDebitNote         = "03" // Debit Note
	DocTypeRefundNote        = "04" // Refund Note
	DocTypeSelfBilledInvoice = "11" // Self-billed Invoice
)

// DocumentVersion versión del documento según si va firmado.
const (
	DocumentVersionUnsigned = "1.0"
	DocumentVersionSigned   = "1.1"
)

// ValidDocumentTypes códigos de tipo de documento soportados.
var ValidDocumentTypes = map[string]bool{
	DocTypeInvoice: true, DocTypeCreditNote: true, DocTypeDebitNote: true,
	DocTypeRefundNote: true, DocTypeSelfBilledInvoice: true,
}

// =============================================================================
// Tipos de impuesto (Tax Types)
// =============================================================================

const (
	TaxTypeSales         = "01" // Sales Tax
	TaxTypeService       = "02" // Service Tax
	TaxTypeTourism       = "03" // Tourism Tax
	TaxTypeHighValue     = "04" // High-Value Goods Tax
	TaxTypeLowValue      = "05" // Sales Tax on Low Value Goods
	TaxTypeNotApplicable = "06" // Not Applicable
	TaxTypeExempt        = "E"  // Tax exemption
)

// DefaultExemptionReason motivo por defecto cuando la línea no causa impuesto.
const DefaultExemptionReason = "Not subject to SST"

// =============================================================================
// Tipos de identificación (Registration / Identification Number Types)
// =============================================================================

const (
	IDTypeNRIC     = "NRIC"     // MyKad / MyTentera
	IDTypeBRN      = "BRN"      // Business Registration Number
	IDTypePassport = "PASSPORT" // Pasaporte / MyPR / MyKAS
	IDTypeArmy     = "ARMY"     // Army number
)

// ValidIDTypes tipos de identificación aceptados por el endpoint de validación.
var ValidIDTypes = map[string]bool{
	IDTypeNRIC: true, IDTypeBRN: true, IDTypePassport: true, IDTypeArmy: true,
}

// =============================================================================
// Clasificación de productos/servicios (Classification Codes)
// =============================================================================

const (
	ClassificationConsolidated = "004" // Consolidated e-Invoice
	ClassificationOthers       = "022" // Others
)

// =============================================================================
// Unidades, moneda, país
// =============================================================================

const (
	UnitPiece   = "C62" // one / unidad
	UnitHour    = "HUR"
	UnitDay     = "DAY"
	UnitKilo    = "KGM"
	UnitService = "E48" // service unit

	CurrencyMYR = "MYR"
	CountryMYS  = "MYS"
)

// =============================================================================
// Medios de pago (Payment Modes)
// =============================================================================

const (
	PaymentCash         = "01"
	PaymentCheque       = "02"
	PaymentBankTransfer = "03"
	PaymentCreditCard   = "04"
	PaymentDebitCard    = "05"
	PaymentEWallet      = "06"
	PaymentDigitalBank  = "07"
	PaymentOthers       = "08"
)

// =============================================================================
// Códigos de estado (State Codes)
// =============================================================================

// StateNotApplicable para direcciones fuera de Malasia o desconocidas.
const StateNotApplicable = "17"

// ValidStateCodes códigos de estado malasios (01 Johor ... 16 Putrajaya, 17 N/A).
var ValidStateCodes = map[string]bool{
	"01": true, "02": true, "03": true, "04": true, "05": true, "06": true,
	"07": true, "08": true, "09": true, "10": true, "11": true, "12": true,
	"13": true, "14": true, "15": true, "16": true, "17": true,
}

// =============================================================================
// TIN genéricos (consolidado, comprador extranjero, gobierno)
// =============================================================================

const (
	TINGeneralPublic   = "EI00000000010"
	TINForeignBuyer    = "EI00000000020"
	TINForeignSupplier = "EI00000000030"
	TINGovernment      = "EI00000000040"

	GeneralPublicName = "General Public"
	NotApplicable     = "NA"
)
