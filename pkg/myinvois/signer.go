package myinvois

import (
	"crypto/tls"
	"time"
)

// Signer firma un documento UBL-JSON (v1.1): recibe el JSON sin firma y devuelve el JSON con
// UBLExtensions y Signature inyectados.
type Signer interface {
	Sign(document []byte, cert tls.Certificate, signingTime time.Time) ([]byte, error)
}
