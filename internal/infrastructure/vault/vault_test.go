package vault_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/buku-api/internal/domain"
	"github.com/jhoicas/buku-api/internal/infrastructure/vault"
)

const testSecret = "llave-de-prueba"

func TestVault_RoundTrip(t *testing.T) {
	v, err := vault.New(testSecret)
	require.NoError(t, err)

	for _, plain := range []string{"", "client-secret", "ñandú 秘密 🔐", strings.Repeat("x", 4096)} {
		enc, err := v.Encrypt(plain)
		require.NoError(t, err)
		dec, err := v.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	}
}

func TestVault_IVAleatorio(t *testing.T) {
	v, err := vault.New(testSecret)
	require.NoError(t, err)

	c1, err := v.Encrypt("mismo-texto")
	require.NoError(t, err)
	c2, err := v.Encrypt("mismo-texto")
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2, "el mismo texto debe cifrarse distinto cada vez")

	d1, _ := v.Decrypt(c1)
	d2, _ := v.Decrypt(c2)
	assert.Equal(t, "mismo-texto", d1)
	assert.Equal(t, "mismo-texto", d2)
}

func TestVault_FormatoIVDosPuntosCipher(t *testing.T) {
	v, _ := vault.New(testSecret)
	enc, err := v.Encrypt("abc")
	require.NoError(t, err)
	parts := strings.Split(enc, ":")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 24, "IV de 12 bytes en hex")
}

func TestVault_LlaveIncorrecta(t *testing.T) {
	v1, _ := vault.New(testSecret)
	v2, _ := vault.New("otra-llave")

	enc, err := v1.Encrypt("client-secret")
	require.NoError(t, err)

	_, err = v2.Decrypt(enc)
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func TestVault_LlaveLargaSeTrunca(t *testing.T) {
	long := strings.Repeat("k", 32)
	v1, _ := vault.New(long)
	v2, _ := vault.New(long + "ignorado")

	enc, err := v1.Encrypt("secreto")
	require.NoError(t, err)
	dec, err := v2.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "secreto", dec)
}

func TestVault_CiphertextMalformado(t *testing.T) {
	v, _ := vault.New(testSecret)
	for _, bad := range []string{"", "sin-separador", "zz:zz", "00:00", "0011:abcd"} {
		_, err := v.Decrypt(bad)
		assert.ErrorIs(t, err, domain.ErrDecryption, bad)
	}
}

func TestVault_SecretoVacio(t *testing.T) {
	_, err := vault.New("")
	assert.Error(t, err)
}
