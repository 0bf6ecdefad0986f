package credential

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", 0)

	token, err := issuer.Issue("user-1", "a@b.co")
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.ID)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewIssuer("secret-a", time.Hour).Issue("user-1", "a@b.co")
	require.NoError(t, err)

	_, err = NewIssuer("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerify_Expired(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := issuer.Issue("user-1", "a@b.co")
	require.NoError(t, err)

	_, err = NewIssuer("secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerify_Malformed(t *testing.T) {
	_, err := NewIssuer("secret", time.Hour).Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerify_RejectsNonHMAC(t *testing.T) {
	claims := Claims{
		ID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewIssuer("secret", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerify_RequiresSubjectID(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, err := issuer.Issue("", "a@b.co")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}
