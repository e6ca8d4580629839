package auth

import (
	"testing"

	"github.com/form3tech-oss/jwt-go"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("any-secret-since-we-never-verify"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return signed
}

func TestResolveUserIDPrefersUidClaim(t *testing.T) {
	tok := signToken(t, jwt.MapClaims{"uid": "user-123", "sub": "other"})
	got, err := ResolveUserID(tok)
	if err != nil {
		t.Fatalf("ResolveUserID() error = %v", err)
	}
	if got != "user-123" {
		t.Errorf("ResolveUserID() = %q, want %q", got, "user-123")
	}
}

func TestResolveUserIDFallsBackToSub(t *testing.T) {
	tok := signToken(t, jwt.MapClaims{"sub": "user-456"})
	got, err := ResolveUserID(tok)
	if err != nil {
		t.Fatalf("ResolveUserID() error = %v", err)
	}
	if got != "user-456" {
		t.Errorf("ResolveUserID() = %q, want %q", got, "user-456")
	}
}

func TestResolveUserIDMissingClaim(t *testing.T) {
	tok := signToken(t, jwt.MapClaims{"iss": "issuer-only"})
	if _, err := ResolveUserID(tok); err != ErrMissingSubjectClaim {
		t.Fatalf("ResolveUserID() error = %v, want ErrMissingSubjectClaim", err)
	}
}

func TestResolveUserIDMalformedToken(t *testing.T) {
	if _, err := ResolveUserID("not-a-jwt"); err == nil {
		t.Fatalf("ResolveUserID() error = nil, want a parse error")
	}
}
