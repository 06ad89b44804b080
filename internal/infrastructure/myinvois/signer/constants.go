package signer

// Identificadores de firma del documento UBL-JSON v1.1.
const (
	ExtensionURIXAdES     = "urn:oasis:names:specification:ubl:dsig:enveloped:xades"
	SignatureInfoID       = "urn:oasis:names:specification:ubl:signature:1"
	ReferencedSignatureID = "urn:oasis:names:specification:ubl:signature:Invoice"
	SignatureElementID    = "signature"
	SignedPropertiesID    = "id-xades-signed-props"

	AlgRSASHA256         = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256            = "http://www.w3.org/2001/04/xmlenc#sha256"
	TypeSignedProperties = "http://uri.etsi.org/01903/v1.3.2#SignedProperties"
	signingTimeLayout    = "2006-01-02T15:04:05Z"
)
