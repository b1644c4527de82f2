package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// testSigningKey signs tokens minted by SignTestToken. For unit tests only.
var testSigningKey = []byte("inventory-client-test-signing-key")

// SignTestToken returns an HS256 JWT carrying claims. For unit tests only; the client never signs tokens.
func SignTestToken(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
}

// NewTestToken mints an access token for the given identity expiring at exp. For unit tests only.
func NewTestToken(id int64, username string, isMaster bool, exp time.Time) (string, error) {
	now := time.Now().UTC()
	return SignTestToken(Claims{
		ID:       id,
		IsMaster: isMaster,
		Username: username,
		Name:     username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
}
