package security

import (
	"strings"
	"testing"
)

func TestHashTokenSecretDeterministic(t *testing.T) {
	salt, err := NewTokenSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}

	secret, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}

	first := HashTokenSecret(salt, secret)
	second := HashTokenSecret(salt, secret)
	if first != second {
		t.Fatal("expected identical hashes for identical inputs")
	}
	if first == secret {
		t.Fatal("hash must not equal the raw secret")
	}

	otherSalt, err := NewTokenSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	if HashTokenSecret(otherSalt, secret) == first {
		t.Fatal("expected different salt to produce a different hash")
	}
}

func TestVerifyTokenSecret(t *testing.T) {
	salt, _ := NewTokenSalt()
	secret, _ := GenerateSecureToken(32)
	stored := HashTokenSecret(salt, secret)

	if !VerifyTokenSecret(salt, secret, stored) {
		t.Fatal("expected matching secret to verify")
	}
	if VerifyTokenSecret(salt, secret+"x", stored) {
		t.Fatal("expected tampered secret to fail verification")
	}
	if VerifyTokenSecret(salt, secret, stored[:len(stored)-2]) {
		t.Fatal("expected truncated hash to fail verification")
	}
}

func TestRefreshTokenWireFormat(t *testing.T) {
	raw := EncodeRefreshToken("token-id", "token-secret")
	if !strings.Contains(raw, ".") {
		t.Fatalf("expected dot-separated token, got %q", raw)
	}

	id, secret, err := DecodeRefreshToken(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id != "token-id" || secret != "token-secret" {
		t.Fatalf("round trip mismatch: id=%q secret=%q", id, secret)
	}
}

func TestDecodeRefreshTokenRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "no-separator", ".missing-id", "missing-secret."} {
		if _, _, err := DecodeRefreshToken(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
