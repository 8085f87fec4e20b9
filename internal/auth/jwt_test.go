package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	key := []byte("test-key")
	token, err := NewSignedToken(key, "issuer", time.Minute, Claims{
		UserID: 42,
		Role:   "teacher",
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseToken(key, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.UserID != 42 || claims.Role != "teacher" {
		t.Fatalf("unexpected claims: id=%d role=%s", claims.UserID, claims.Role)
	}
}

func TestTokenWrongKeyRejected(t *testing.T) {
	token, err := NewSignedToken([]byte("key-a"), "issuer", time.Minute, Claims{UserID: 1, Role: "admin"})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken([]byte("key-b"), token); err == nil {
		t.Fatalf("expected parse failure with wrong key")
	}
}

func TestTokenExpiryRejected(t *testing.T) {
	key := []byte("test-key")
	token, err := NewSignedToken(key, "issuer", -time.Minute, Claims{UserID: 1, Role: "admin"})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken(key, token); err == nil {
		t.Fatalf("expected parse failure for expired token")
	}
}
