package auth

import (
	"errors"
	"testing"
	"time"
)

func testTokens(t *testing.T, now func() time.Time) *Tokens {
	t.Helper()
	tokens, err := NewTokens(Config{
		Secret: []byte("test-secret"),
		Issuer: "syncd",
		TTL:    time.Hour,
		Now:    now,
	})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	return tokens
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	tokens := testTokens(t, nil)

	signed, err := tokens.Issue("tenant-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tenant, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if tenant != "tenant-1" {
		t.Fatalf("tenant = %q, want tenant-1", tenant)
	}
}

func TestIssueRequiresTenant(t *testing.T) {
	t.Parallel()

	tokens := testTokens(t, nil)

	if _, err := tokens.Issue("  "); err == nil {
		t.Fatal("expected empty tenant error")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := issuedAt
	tokens := testTokens(t, func() time.Time { return clock })

	signed, err := tokens.Issue("tenant-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock = issuedAt.Add(2 * time.Hour)
	if _, err := tokens.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("verify error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	tokens := testTokens(t, nil)
	other, err := NewTokens(Config{Secret: []byte("other-secret")})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}

	signed, err := other.Issue("tenant-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tokens.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("verify error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	tokens := testTokens(t, nil)
	other, err := NewTokens(Config{
		Secret: []byte("test-secret"),
		Issuer: "someone-else",
	})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}

	signed, err := other.Issue("tenant-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tokens.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("verify error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	tokens := testTokens(t, nil)

	for _, token := range []string{"", "  ", "not-a-token"} {
		if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("verify(%q) error = %v, want %v", token, err, ErrInvalidToken)
		}
	}
}
