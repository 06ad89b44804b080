// Firma digital del documento UBL-JSON de MyInvois (v1.1).
// Inyecta UBLExtensions (firma XAdES en JSON) y el nodo Signature en el documento.

package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/buku-api/internal/infrastructure/myinvois"
	pkgmyinvois "github.com/jhoicas/buku-api/pkg/myinvois"
)

// DigitalSignatureService implementa pkgmyinvois.Signer.
type DigitalSignatureService struct{}

var _ pkgmyinvois.Signer = (*DigitalSignatureService)(nil)

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{}
}

// Sign firma el documento. El digest y la firma se calculan sobre el JSON compacto sin
// UBLExtensions ni Signature.
func (s *DigitalSignatureService) Sign(document []byte, cert tls.Certificate, signingTime time.Time) ([]byte, error) {
	if len(document) == 0 {
		return nil, fmt.Errorf("myinvois: documento vacío")
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("myinvois: el certificado debe incluir llave privada RSA")
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("myinvois: certificado vacío")
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("myinvois: parsear certificado: %w", err)
	}

	var doc myinvois.Document
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, fmt.Errorf("myinvois: documento no es JSON válido: %w", err)
	}
	if len(doc.Invoice) != 1 {
		return nil, fmt.Errorf("myinvois: se esperaba un único nodo Invoice")
	}
	body := &doc.Invoice[0]
	body.UBLExtensions = nil
	body.Signature = nil
	if len(body.InvoiceTypeCode) > 0 {
		body.InvoiceTypeCode[0].ListVersionID = pkgmyinvois.DocumentVersionSigned
	}

	// 1) Digest del documento sin firma
	unsigned, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("myinvois: serializar documento: %w", err)
	}
	docHash := sha256.Sum256(unsigned)
	docDigestB64 := base64.StdEncoding.EncodeToString(docHash[:])

	// 2) Firma RSA-SHA256 sobre el mismo contenido
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, docHash[:])
	if err != nil {
		return nil, fmt.Errorf("myinvois: firmar documento: %w", err)
	}

	// 3) Propiedades firmadas (SigningTime + certificado)
	info := Describe(x509Cert)
	issuer := []issuerSerial{{
		X509IssuerName:   leaves(info.Issuer),
		X509SerialNumber: leaves(info.Serial),
	}}
	props := signedProperties{
		ID: SignedPropertiesID,
		SignedSignatureProperties: []signedSignatureProperties{{
			SigningTime: leaves(signingTime.UTC().Format(signingTimeLayout)),
			SigningCertificate: []signingCertificate{{Cert: []certNode{{
				CertDigest:   []digest{{DigestMethod: algorithm(AlgSHA256), DigestValue: leaves(info.Digest)}},
				IssuerSerial: issuer,
			}}}},
		}},
	}
	propsJSON, err := json.Marshal(qualifyingProperties{Target: SignatureElementID, SignedProperties: []signedProperties{props}})
	if err != nil {
		return nil, fmt.Errorf("myinvois: serializar propiedades firmadas: %w", err)
	}
	propsHash := sha256.Sum256(propsJSON)

	// 4) Inyección
	ext := []ublExtensionsNode{{UBLExtension: []ublExtension{{
		ExtensionURI: leaves(ExtensionURIXAdES),
		ExtensionContent: []extensionContent{{UBLDocumentSignatures: []documentSignatures{{
			SignatureInformation: []signatureInformation{{
				ID:                    leaves(SignatureInfoID),
				ReferencedSignatureID: leaves(ReferencedSignatureID),
				Signature: []dsSignature{{
					ID: SignatureElementID,
					Object: []dsObject{{QualifyingProperties: []qualifyingProperties{{
						Target:           SignatureElementID,
						SignedProperties: []signedProperties{props},
					}}}},
					KeyInfo: []keyInfo{{X509Data: []x509Data{{
						X509Certificate:  leaves(base64.StdEncoding.EncodeToString(x509Cert.Raw)),
						X509SubjectName:  leaves(x509Cert.Subject.String()),
						X509IssuerSerial: issuer,
					}}}},
					SignatureValue: leaves(base64.StdEncoding.EncodeToString(sig)),
					SignedInfo: []signedInfo{{
						SignatureMethod: algorithm(AlgRSASHA256),
						Reference: []reference{
							{
								Type:         TypeSignedProperties,
								URI:          "#" + SignedPropertiesID,
								DigestMethod: algorithm(AlgSHA256),
								DigestValue:  leaves(base64.StdEncoding.EncodeToString(propsHash[:])),
							},
							{
								Type:         "",
								URI:          "",
								DigestMethod: algorithm(AlgSHA256),
								DigestValue:  leaves(docDigestB64),
							},
						},
					}},
				}},
			}},
		}}}},
	}}}}

	extJSON, err := json.Marshal(ext)
	if err != nil {
		return nil, fmt.Errorf("myinvois: serializar UBLExtensions: %w", err)
	}
	sigRefJSON, err := json.Marshal([]signatureRef{{
		ID:              leaves(ReferencedSignatureID),
		SignatureMethod: leaves(ExtensionURIXAdES),
	}})
	if err != nil {
		return nil, fmt.Errorf("myinvois: serializar Signature: %w", err)
	}
	body.UBLExtensions = extJSON
	body.Signature = sigRefJSON

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("myinvois: serializar documento firmado: %w", err)
	}
	return out, nil
}
