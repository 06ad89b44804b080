// Package einvoice: huella de contenido y validaciones previas al envío a MyInvois.
// El protocolo de envío direcciona los documentos por hash: SHA-256 (hex) sobre los bytes
// exactos que viajan en base64.
package einvoice

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Digest resultado de preparar un documento serializado para el envío.
type Digest struct {
	Hash    string // SHA-256 hex de Payload decodificado
	Payload string // base64 estándar de los mismos bytes
}

// ComputeDigest calcula hash y payload a partir del JSON canónico del documento.
func ComputeDigest(serialized []byte) (Digest, error) {
	if len(serialized) == 0 {
		return Digest{}, fmt.Errorf("einvoice: documento serializado vacío")
	}
	sum := sha256.Sum256(serialized)
	return Digest{
		Hash:    hex.EncodeToString(sum[:]),
		Payload: base64.StdEncoding.EncodeToString(serialized),
	}, nil
}
