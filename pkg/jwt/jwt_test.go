package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/buku-api/pkg/jwt"
)

const secret = "test-secret-key-for-unit-tests"

var who = jwt.Identity{UserID: "u-1", CompanyID: "c-1", Role: "contador"}

func TestGenerateAndParse(t *testing.T) {
	tok, err := jwt.Generate(secret, who, "buku-api-test", time.Hour)
	require.NoError(t, err)

	got, err := jwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, who, got)
}

func TestParse_Expired(t *testing.T) {
	tok, err := jwt.Generate(secret, who, "buku-api-test", -time.Hour)
	require.NoError(t, err)

	_, err = jwt.Parse(secret, tok)
	assert.ErrorIs(t, err, gojwt.ErrTokenExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := jwt.Generate(secret, who, "buku-api-test", time.Hour)
	require.NoError(t, err)

	_, err = jwt.Parse("otro-secret", tok)
	assert.Error(t, err)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS512, gojwt.MapClaims{
		"company_id": "c-1",
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = jwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestParse_MissingTenant(t *testing.T) {
	tok, err := jwt.Generate(secret, jwt.Identity{UserID: "u-1", Role: "admin"}, "buku-api-test", time.Hour)
	require.NoError(t, err)

	_, err = jwt.Parse(secret, tok)
	assert.ErrorIs(t, err, jwt.ErrMissingTenant)
}

func TestGenerate_EmptySecret(t *testing.T) {
	_, err := jwt.Generate("", who, "x", time.Hour)
	assert.Error(t, err)
}
