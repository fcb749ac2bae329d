package utils

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestNewRegistrationIDFormat(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRegistrationID()
		if !strings.HasPrefix(id, "REG-") {
			t.Fatalf("id %q lacks REG- prefix", id)
		}
		if len(id) != 14 {
			t.Fatalf("id %q: got length %d, want 14", id, len(id))
		}
		if id != strings.ToUpper(id) {
			t.Fatalf("id %q is not upper-case", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestNewTicketCodeUnique(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := NewTicketCode()
		if len(code) != 36 {
			t.Fatalf("code %q: got length %d, want 36", code, len(code))
		}
		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Parallel()
	const secret = "test-secret"

	at, err := NewAccessToken(secret, 42, "CUSTOMER", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	parsed, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		t.Fatal("token did not validate")
	}
	if sub, _ := claims["sub"].(float64); uint64(sub) != 42 {
		t.Errorf("sub: got %v, want 42", claims["sub"])
	}
	if claims["role"] != "CUSTOMER" {
		t.Errorf("role: got %v, want CUSTOMER", claims["role"])
	}
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	at, err := NewAccessToken("right", 1, "ADMIN", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("wrong"), nil
	}); err == nil {
		t.Fatal("token signed with another secret must not validate")
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	t.Parallel()

	rt, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if len(rt.Raw) != 96 {
		t.Errorf("raw token length: got %d, want 96", len(rt.Raw))
	}
	h := HashRefreshRaw(rt.Raw)
	if len(h) != 64 {
		t.Errorf("hash length: got %d, want 64", len(h))
	}
	if h != HashRefreshRaw(rt.Raw) {
		t.Error("hash is not deterministic")
	}
	other, _ := NewRefreshToken(30)
	if HashRefreshRaw(other.Raw) == h {
		t.Error("distinct tokens hashed identically")
	}
}

func TestPasswordHashAndVerify(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("hunter2-long-enough", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "hunter2-long-enough") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong-password") {
		t.Error("wrong password accepted")
	}
}
