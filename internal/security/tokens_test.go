package security

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	userdomain "inventory-mobile/client/internal/user/domain"
)

func rawToken(header, payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload)) + ".c2ln"
}

func TestDecode_Claims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := SignTestToken(Claims{
		ID:       7,
		IsMaster: true,
		Email:    "ana@example.com",
		Username: "ana",
		Name:     "Ana",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	if err != nil {
		t.Fatalf("SignTestToken: %v", err)
	}

	claims, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.ID != 7 {
		t.Errorf("ID = %d, want 7", claims.ID)
	}
	if claims.Username != "ana" {
		t.Errorf("Username = %q, want %q", claims.Username, "ana")
	}
	if claims.Role() != userdomain.RoleMaster {
		t.Errorf("Role = %q, want %q", claims.Role(), userdomain.RoleMaster)
	}
	if !claims.ExpiresAt.Time.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt.Time, exp)
	}
}

func TestDecode_EmployeeRole(t *testing.T) {
	token, err := NewTestToken(3, "bo", false, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("NewTestToken: %v", err)
	}
	claims, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	u := claims.User()
	if u.Role != userdomain.RoleEmployee {
		t.Errorf("Role = %q, want %q", u.Role, userdomain.RoleEmployee)
	}
	if u.ID != 3 || u.Username != "bo" {
		t.Errorf("User = %+v", u)
	}
	if u.CreatedAt == nil {
		t.Error("CreatedAt should come from iat")
	}
}

func TestDecode_Malformed(t *testing.T) {
	testCases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"bad base64", "!!!.???.sig"},
		{"payload not json", rawToken(`{"alg":"HS256"}`, "not-json")},
		{"id wrong type", rawToken(`{"alg":"HS256"}`, `{"id":"seven","exp":4102444800}`)},
		{"exp wrong type", rawToken(`{"alg":"HS256"}`, `{"id":1,"exp":"tomorrow"}`)},
		{"no alg", rawToken(`{"typ":"JWT"}`, `{"id":1}`)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.token)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Decode(%q) error = %v, want ErrDecode", tc.token, err)
			}
		})
	}
}

func TestIsExpired_PastExpiry(t *testing.T) {
	for _, ago := range []time.Duration{time.Second, 10 * time.Second, time.Hour, 24 * time.Hour} {
		token, err := NewTestToken(1, "ana", false, time.Now().Add(-ago))
		if err != nil {
			t.Fatalf("NewTestToken: %v", err)
		}
		if !IsExpired(token, 0) {
			t.Errorf("IsExpired(exp=now-%v, 0) = false, want true", ago)
		}
	}
}

func TestIsExpiredAt_Buffer(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	buffer := 5 * time.Minute
	testCases := []struct {
		name string
		exp  time.Time
		want bool
	}{
		{"well beyond buffer", now.Add(time.Hour), false},
		{"one second past buffer", now.Add(buffer + time.Second), false},
		{"exactly at buffer edge", now.Add(buffer), true},
		{"inside buffer", now.Add(time.Minute), true},
		{"exactly now", now, true},
		{"already past", now.Add(-10 * time.Second), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := SignTestToken(Claims{
				ID:               1,
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(tc.exp)},
			})
			if err != nil {
				t.Fatalf("SignTestToken: %v", err)
			}
			if got := IsExpiredAt(token, buffer, now); got != tc.want {
				t.Errorf("IsExpiredAt = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsExpired_FailsClosed(t *testing.T) {
	noExp, err := SignTestToken(Claims{ID: 1, Username: "ana"})
	if err != nil {
		t.Fatalf("SignTestToken: %v", err)
	}
	for _, token := range []string{"", "garbage", "a.b.c", noExp, rawToken(`{"alg":"HS256"}`, `{"exp":"x"}`)} {
		if !IsExpired(token, 0) {
			t.Errorf("IsExpired(%q) = false, want true", token)
		}
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("") != "" {
		t.Error("Fingerprint of empty token should be empty")
	}
	a, b := Fingerprint("token-a"), Fingerprint("token-b")
	if len(a) != 12 {
		t.Errorf("len = %d, want 12", len(a))
	}
	if a == b {
		t.Error("different tokens share a fingerprint")
	}
	if a != Fingerprint("token-a") {
		t.Error("Fingerprint not stable")
	}
}
