// Package vault cifra en reposo el client secret de MyInvois.
// Formato almacenado: {ivHex}:{cipherHex}, con IV aleatorio por llamada.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/jhoicas/buku-api/internal/domain"
)

// KeySize longitud de llave AES-256.
const KeySize = 32

// Vault cifra/descifra secretos con AES-256-GCM.
type Vault struct {
	aead cipher.AEAD
	rand io.Reader
}

// New deriva la llave desde el secreto configurado: se rellena con ceros o se trunca a 32 bytes.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("vault: EINVOICE_SECRET_KEY vacío")
	}
	key := make([]byte, KeySize)
	copy(key, secret)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return &Vault{aead: aead, rand: rand.Reader}, nil
}

// Encrypt cifra plaintext. Dos llamadas con el mismo texto producen resultados distintos.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(v.rand, iv); err != nil {
		return "", fmt.Errorf("vault: generar IV: %w", err)
	}
	sealed := v.aead.Seal(nil, iv, []byte(plaintext), nil)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt devuelve el texto original. Llave incorrecta o formato inválido -> domain.ErrDecryption.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	ivHex, dataHex, ok := strings.Cut(ciphertext, ":")
	if !ok {
		return "", fmt.Errorf("%w: formato esperado iv:ciphertext", domain.ErrDecryption)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != v.aead.NonceSize() {
		return "", fmt.Errorf("%w: IV inválido", domain.ErrDecryption)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext no es hexadecimal", domain.ErrDecryption)
	}
	plain, err := v.aead.Open(nil, iv, data, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	return string(plain), nil
}
