package ws

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Authorizer resolves an optional connect-time token to a user identity.
// Anonymous connections are allowed; a token only pre-binds the user id
// used when a JOIN_POLL omits one.
type Authorizer struct {
	secret []byte
}

func NewAuthorizer(secret string) *Authorizer {
	return &Authorizer{secret: []byte(secret)}
}

// UserID returns the subject of a valid token, or "" for an empty token.
func (a *Authorizer) UserID(token string) (string, error) {
	if token == "" {
		return "", nil
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}
