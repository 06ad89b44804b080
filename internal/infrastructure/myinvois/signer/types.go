package signer

// Nodos JSON de la firma. Mismo esquema {"_": valor} que el resto del documento.

type leaf struct {
	Value     string `json:"_"`
	Algorithm string `json:"Algorithm,omitempty"`
}

func leaves(v string) []leaf { return []leaf{{Value: v}} }

func algorithm(alg string) []leaf { return []leaf{{Value: "", Algorithm: alg}} }

type ublExtensionsNode struct {
	UBLExtension []ublExtension `json:"UBLExtension"`
}

type ublExtension struct {
	ExtensionURI     []leaf             `json:"ExtensionURI"`
	ExtensionContent []extensionContent `json:"ExtensionContent"`
}

type extensionContent struct {
	UBLDocumentSignatures []documentSignatures `json:"UBLDocumentSignatures"`
}

type documentSignatures struct {
	SignatureInformation []signatureInformation `json:"SignatureInformation"`
}

type signatureInformation struct {
	ID                    []leaf        `json:"ID"`
	ReferencedSignatureID []leaf        `json:"ReferencedSignatureID"`
	Signature             []dsSignature `json:"Signature"`
}

type dsSignature struct {
	ID             string       `json:"Id"`
	Object         []dsObject   `json:"Object"`
	KeyInfo        []keyInfo    `json:"KeyInfo"`
	SignatureValue []leaf       `json:"SignatureValue"`
	SignedInfo     []signedInfo `json:"SignedInfo"`
}

type dsObject struct {
	QualifyingProperties []qualifyingProperties `json:"QualifyingProperties"`
}

type qualifyingProperties struct {
	Target           string             `json:"Target"`
	SignedProperties []signedProperties `json:"SignedProperties"`
}

type signedProperties struct {
	ID                        string                      `json:"Id"`
	SignedSignatureProperties []signedSignatureProperties `json:"SignedSignatureProperties"`
}

type signedSignatureProperties struct {
	SigningTime        []leaf               `json:"SigningTime"`
	SigningCertificate []signingCertificate `json:"SigningCertificate"`
}

type signingCertificate struct {
	Cert []certNode `json:"Cert"`
}

type certNode struct {
	CertDigest   []digest       `json:"CertDigest"`
	IssuerSerial []issuerSerial `json:"IssuerSerial"`
}

type digest struct {
	DigestMethod []leaf `json:"DigestMethod"`
	DigestValue  []leaf `json:"DigestValue"`
}

type issuerSerial struct {
	X509IssuerName   []leaf `json:"X509IssuerName"`
	X509SerialNumber []leaf `json:"X509SerialNumber"`
}

type keyInfo struct {
	X509Data []x509Data `json:"X509Data"`
}

type x509Data struct {
	X509Certificate  []leaf         `json:"X509Certificate"`
	X509SubjectName  []leaf         `json:"X509SubjectName"`
	X509IssuerSerial []issuerSerial `json:"X509IssuerSerial"`
}

type signedInfo struct {
	SignatureMethod []leaf      `json:"SignatureMethod"`
	Reference       []reference `json:"Reference"`
}

type reference struct {
	Type         string `json:"Type"`
	URI          string `json:"URI"`
	DigestMethod []leaf `json:"DigestMethod"`
	DigestValue  []leaf `json:"DigestValue"`
}

type signatureRef struct {
	ID              []leaf `json:"ID"`
	SignatureMethod []leaf `json:"SignatureMethod"`
}
