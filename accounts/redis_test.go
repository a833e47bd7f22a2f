package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestDirectory(t *testing.T) *RedisDirectory {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisDirectory(client, "test:")
}

func TestCreateAndLookup(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	uid, err := d.Create(ctx, "Alice@Example.org", "$argon2id$stub", true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if uid == "" {
		t.Fatal("expected a uid")
	}

	acct, err := d.FindByCanonicalEmail(ctx, "Alice@Example.org")
	if err != nil || acct == nil {
		t.Fatalf("canonical lookup failed: %v %v", acct, err)
	}
	if acct.UID != uid || acct.Email != "Alice@Example.org" {
		t.Fatalf("unexpected account %+v", acct)
	}
	if acct.NormalizedEmail != "alice@example.org" {
		t.Fatalf("unexpected normalized email %q", acct.NormalizedEmail)
	}

	// The canonical key is exact-case: a differently cased address only
	// resolves through the normalized index.
	acct, err = d.FindByCanonicalEmail(ctx, "alice@example.org")
	if err != nil || acct != nil {
		t.Fatalf("expected canonical miss, got %v %v", acct, err)
	}
	acct, err = d.FindByNormalizedEmail(ctx, "alice@example.org")
	if err != nil || acct == nil || acct.UID != uid {
		t.Fatalf("normalized lookup failed: %v %v", acct, err)
	}
}

func TestCreateRejectsDuplicates(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	if _, err := d.Create(ctx, "Alice@Example.org", "h1", true); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := d.Create(ctx, "Alice@Example.org", "h2", true); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	// A different casing of the same address is the same account.
	if _, err := d.Create(ctx, "ALICE@example.org", "h3", true); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken for recased email, got %v", err)
	}
}

func TestLookupMissReturnsNilNil(t *testing.T) {
	d := newTestDirectory(t)

	acct, err := d.FindByCanonicalEmail(context.Background(), "nobody@example.org")
	if err != nil || acct != nil {
		t.Fatalf("expected nil,nil, got %v %v", acct, err)
	}
}
