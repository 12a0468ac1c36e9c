package ws

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthorizerEmptyTokenIsAnonymous(t *testing.T) {
	a := NewAuthorizer("secret")

	userID, err := a.UserID("")
	require.NoError(t, err)
	assert.Empty(t, userID)
}

func TestAuthorizerValidToken(t *testing.T) {
	a := NewAuthorizer("secret")

	userID, err := a.UserID(signToken(t, "secret", "user-42"))
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestAuthorizerRejectsWrongSecret(t *testing.T) {
	a := NewAuthorizer("secret")

	_, err := a.UserID(signToken(t, "other-secret", "user-42"))
	assert.Error(t, err)
}

func TestAuthorizerRejectsMissingSubject(t *testing.T) {
	a := NewAuthorizer("secret")

	_, err := a.UserID(signToken(t, "secret", ""))
	assert.Error(t, err)
}

func TestAuthorizerRejectsGarbage(t *testing.T) {
	a := NewAuthorizer("secret")

	_, err := a.UserID("not-a-token")
	assert.Error(t, err)
}
