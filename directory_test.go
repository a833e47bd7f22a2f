package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestResolveExactMatch(t *testing.T) {
	p := &mockAccountProvider{accounts: map[string]*Account{
		"Alice@Example.org": {UID: "u1", Email: "Alice@Example.org", NormalizedEmail: "alice@example.org"},
	}}
	d := &accountDirectory{provider: p}

	res, err := d.resolve(context.Background(), "Alice@Example.org")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Kind != ResolutionExactMatch {
		t.Fatalf("expected exact match, got %d", res.Kind)
	}
	if res.Account == nil || res.Account.UID != "u1" {
		t.Fatalf("unexpected account %+v", res.Account)
	}
	// Exact hit never consults the normalized index.
	if p.normalizedCalls != 0 {
		t.Fatalf("expected no normalized lookup, got %d", p.normalizedCalls)
	}
}

func TestResolveCaseMismatch(t *testing.T) {
	p := &mockAccountProvider{accounts: map[string]*Account{
		"Alice@Example.org": {UID: "u1", Email: "Alice@Example.org", NormalizedEmail: "alice@example.org"},
	}}
	d := &accountDirectory{provider: p}

	for _, submitted := range []string{"alice@example.org", "ALICE@EXAMPLE.ORG", "aLiCe@ExAmPle.org"} {
		res, err := d.resolve(context.Background(), submitted)
		if err != nil {
			t.Fatalf("resolve(%q) failed: %v", submitted, err)
		}
		if res.Kind != ResolutionCaseMismatch {
			t.Fatalf("resolve(%q): expected case mismatch, got %d", submitted, res.Kind)
		}
		if res.Account.Email != "Alice@Example.org" {
			t.Fatalf("resolve(%q): expected canonical casing, got %q", submitted, res.Account.Email)
		}
	}
}

func TestResolveNotFound(t *testing.T) {
	d := &accountDirectory{provider: &mockAccountProvider{}}

	res, err := d.resolve(context.Background(), "nobody@example.org")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Kind != ResolutionNotFound {
		t.Fatalf("expected not found, got %d", res.Kind)
	}
	if res.Account != nil {
		t.Fatalf("expected nil account, got %+v", res.Account)
	}
}

func TestResolvePropagatesProviderErrors(t *testing.T) {
	wantErr := errors.New("index unavailable")
	d := &accountDirectory{provider: &mockAccountProvider{normalizedErr: wantErr}}

	_, err := d.resolve(context.Background(), "alice@example.org")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
