package signer

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// CertInfo datos del certificado de firma: los que viajan en SignedProperties y los que
// muestra einvoicectl cert-check.
type CertInfo struct {
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	Serial    string    `json:"serial"`        // decimal, como lo espera X509SerialNumber
	Digest    string    `json:"digest_sha256"` // Base64 del SHA-256 del DER
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
}

// ValidAt true si now cae dentro del periodo de vigencia.
func (i CertInfo) ValidAt(now time.Time) bool {
	return !now.Before(i.NotBefore) && !now.After(i.NotAfter)
}

// Describe extrae los datos de firma de un certificado X.509.
func Describe(cert *x509.Certificate) CertInfo {
	sum := sha256.Sum256(cert.Raw)
	return CertInfo{
		Subject:   cert.Subject.String(),
		Issuer:    cert.Issuer.String(),
		Serial:    cert.SerialNumber.String(),
		Digest:    base64.StdEncoding.EncodeToString(sum[:]),
		NotBefore: cert.NotBefore,
		NotAfter:  cert.NotAfter,
	}
}

// LoadCertificate carga el certificado de firma. .p12/.pfx se leen como PKCS#12 con password;
// cualquier otra extensión como PEM, con la llave en keyPath o en el mismo archivo.
// El resultado siempre trae Leaf y una llave RSA.
func LoadCertificate(path, keyPath, password string) (tls.Certificate, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		cert, err = readPKCS12(path, password)
	default:
		if keyPath == "" {
			keyPath = path
		}
		cert, err = tls.LoadX509KeyPair(path, keyPath)
		if err != nil {
			err = fmt.Errorf("cargar PEM %s: %w", filepath.Base(path), err)
		}
	}
	if err != nil {
		return tls.Certificate{}, err
	}

	if cert.Leaf == nil {
		if cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return tls.Certificate{}, fmt.Errorf("parsear certificado: %w", err)
		}
	}
	if _, ok := cert.PrivateKey.(*rsa.PrivateKey); !ok {
		return tls.Certificate{}, fmt.Errorf("certificado %s: MyInvois exige llave RSA (%T)", filepath.Base(path), cert.PrivateKey)
	}
	return cert, nil
}

// readPKCS12 solo admite el certificado hoja; las cadenas intermedias no viajan en la firma.
func readPKCS12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer %s: %w", filepath.Base(path), err)
	}
	key, leaf, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar PKCS#12 %s: %w", filepath.Base(path), err)
	}
	return tls.Certificate{Certificate: [][]byte{leaf.Raw}, PrivateKey: key, Leaf: leaf}, nil
}
