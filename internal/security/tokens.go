package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	userdomain "inventory-mobile/client/internal/user/domain"
)

var (
	// ErrDecode is returned when a token is not a three-part JWT or its payload does not match Claims.
	ErrDecode = errors.New("malformed session token")
)

// Claims is the payload the backend puts in access tokens.
// The signature is never checked here; the backend is the only verifier.
type Claims struct {
	ID       int64  `json:"id"`
	IsMaster bool   `json:"is_master"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Role derives the display role from is_master.
func (c *Claims) Role() userdomain.Role {
	return userdomain.RoleFromMaster(c.IsMaster)
}

// User builds the session user from the claims.
func (c *Claims) User() *userdomain.User {
	u := &userdomain.User{
		ID:       c.ID,
		Username: c.Username,
		Name:     c.Name,
		Email:    c.Email,
		Role:     c.Role(),
	}
	if c.IssuedAt != nil {
		t := c.IssuedAt.Time.UTC()
		u.CreatedAt = &t
	}
	return u
}

var unverified = jwt.NewParser()

// Decode parses tokenString into Claims without verifying the signature.
// Every failure wraps ErrDecode.
func Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := unverified.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return claims, nil
}

// IsExpired reports whether tokenString expires within buffer of now.
func IsExpired(tokenString string, buffer time.Duration) bool {
	return IsExpiredAt(tokenString, buffer, time.Now())
}

// IsExpiredAt is IsExpired against an explicit clock. It fails closed: a token that cannot be decoded,
// or that carries no exp, counts as expired.
func IsExpiredAt(tokenString string, buffer time.Duration, now time.Time) bool {
	claims, err := Decode(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !claims.ExpiresAt.Time.After(now.Add(buffer))
}
