package internal

import (
	"strings"
	"testing"
)

func TestNewTokenSecretUnique(t *testing.T) {
	a, err := NewTokenSecret()
	if err != nil {
		t.Fatalf("NewTokenSecret failed: %v", err)
	}
	b, err := NewTokenSecret()
	if err != nil {
		t.Fatalf("NewTokenSecret failed: %v", err)
	}
	if a == b {
		t.Fatal("two fresh secrets must not collide")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s, err := NewTokenSecret()
	if err != nil {
		t.Fatalf("NewTokenSecret failed: %v", err)
	}

	token := s.Token()
	if len(token) != TokenSecretSize*2 {
		t.Fatalf("expected %d hex chars, got %d", TokenSecretSize*2, len(token))
	}
	if token != strings.ToLower(token) {
		t.Fatal("token must be lowercase hex")
	}

	parsed, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if parsed != s {
		t.Fatal("parsed secret does not match original")
	}
}

func TestParseTokenRejectsMalformed(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not hex", strings.Repeat("zz", TokenSecretSize)},
		{"too short", strings.Repeat("ab", TokenSecretSize-1)},
		{"too long", strings.Repeat("ab", TokenSecretSize+1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseToken(tc.token); err == nil {
				t.Fatalf("expected error for %q", tc.token)
			}
		})
	}
}

func TestDigestStableAndDistinct(t *testing.T) {
	s, err := NewTokenSecret()
	if err != nil {
		t.Fatalf("NewTokenSecret failed: %v", err)
	}

	d1, err := TokenDigest(s.Token())
	if err != nil {
		t.Fatalf("TokenDigest failed: %v", err)
	}
	if d1 != s.Digest() {
		t.Fatal("TokenDigest must agree with Digest")
	}
	if d1 == s.Token() {
		t.Fatal("digest must not equal the raw token")
	}
}
