package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ong-aas/claims-portal/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "claims-portal", time.Hour)
	user := models.User{ID: "u-1", Role: models.RoleAdmin}

	token, expires, err := tm.Generate(user, "sess-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "sess-1", claims.ID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	tm := NewTokenManager("secret", "claims-portal", time.Hour)
	user := models.User{ID: "u-1", Role: models.RoleUser}

	other := NewTokenManager("other-secret", "claims-portal", time.Hour)
	forged, _, err := other.Generate(user, "sess-1")
	require.NoError(t, err)
	_, err = tm.Parse(forged)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	wrongIssuer := NewTokenManager("secret", "someone-else", time.Hour)
	foreign, _, err := wrongIssuer.Generate(user, "sess-1")
	require.NoError(t, err)
	_, err = tm.Parse(foreign)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = tm.Parse("not-a-jwt")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("secret", "claims-portal", time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.Generate(models.User{ID: "u-1"}, "sess-1")
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	tm := NewTokenManager("secret", "claims-portal", time.Hour)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "claims-portal", Subject: "u-1", ID: "s"},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.Parse(raw)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestPINHashing(t *testing.T) {
	hash, err := HashPIN("1234")
	require.NoError(t, err)
	assert.NotEqual(t, "1234", hash)
	assert.True(t, ComparePIN(hash, "1234"))
	assert.False(t, ComparePIN(hash, "4321"))
	assert.False(t, ComparePIN("", "1234"))

	again, err := HashPIN("1234")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes must be salted")
}

func TestFormats(t *testing.T) {
	assert.NoError(t, ValidatePhone("12345678"))
	assert.ErrorIs(t, ValidatePhone("1234567"), ErrPhoneFormat)
	assert.ErrorIs(t, ValidatePhone("1234567a"), ErrPhoneFormat)
	assert.NoError(t, ValidatePIN("0000"))
	assert.ErrorIs(t, ValidatePIN("12345"), ErrPINFormat)
	assert.ErrorIs(t, ValidatePIN(""), ErrPINFormat)
}
