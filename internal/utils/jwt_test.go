package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("test-secret", 42, "admin", 15)
	if err != nil {
		t.Fatalf("new access token: %v", err)
	}
	if time.Until(tok.Exp) <= 0 {
		t.Fatal("expiry should be in the future")
	}

	parsed, err := jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"].(float64) != 42 {
		t.Fatalf("sub = %v, want 42", claims["sub"])
	}
	if claims["role"] != "admin" {
		t.Fatalf("role = %v, want admin", claims["role"])
	}
}

func TestAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("test-secret", 42, "member", 15)
	if err != nil {
		t.Fatalf("new access token: %v", err)
	}
	if _, err := jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("other-secret"), nil
	}); err == nil {
		t.Fatal("token should not verify under another secret")
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	a, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("new refresh token: %v", err)
	}
	b, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("new refresh token: %v", err)
	}
	if a.Raw == b.Raw {
		t.Fatal("refresh tokens must be unique")
	}
	if len(a.Raw) != 64 {
		t.Fatalf("raw length = %d, want 64 hex chars", len(a.Raw))
	}
	if HashRefreshRaw(a.Raw) != HashRefreshRaw(a.Raw) {
		t.Fatal("hash must be deterministic")
	}
	if HashRefreshRaw(a.Raw) == HashRefreshRaw(b.Raw) {
		t.Fatal("different tokens must hash differently")
	}
	if HashRefreshRaw(a.Raw) == a.Raw {
		t.Fatal("the stored form must not be the raw token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(hash, "secret123") {
		t.Fatal("correct password should verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatal("wrong password should not verify")
	}
}
