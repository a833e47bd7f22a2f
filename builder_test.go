package authcore

import (
	"context"
	"strings"
	"testing"

	"github.com/avirel-labs/authcore/notify"
)

func TestBuildRequiresRedisAndProvider(t *testing.T) {
	if _, err := New().WithAccountProvider(&mockAccountProvider{}).Build(); err == nil ||
		!strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected missing-redis error, got %v", err)
	}

	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)
	if _, err := New().WithRedis(rdb).Build(); err == nil ||
		!strings.Contains(err.Error(), "account provider") {
		t.Fatalf("expected missing-provider error, got %v", err)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	cfg := loginTestConfig()
	cfg.RedisPrefix = ""
	if _, err := New().WithConfig(cfg).WithRedis(rdb).WithAccountProvider(&mockAccountProvider{}).Build(); err == nil {
		t.Fatal("expected validation error for empty prefix")
	}
}

func TestBuildRequiresLinkConfigWithMailer(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	mailer := notify.MailerFunc(func(context.Context, notify.Payload) error { return nil })

	cfg := loginTestConfig()
	cfg.Notify.Enabled = true
	cfg.Notify.LinkSecret = []byte("secret")
	cfg.Notify.LinkBaseURL = ""
	if _, err := New().WithConfig(cfg).WithRedis(rdb).WithAccountProvider(&mockAccountProvider{}).
		WithMailer(mailer).Build(); err == nil || !strings.Contains(err.Error(), "link base URL") {
		t.Fatalf("expected missing link base URL error, got %v", err)
	}

	cfg.Notify.LinkBaseURL = "https://accounts.example.org/v1/verify_email"
	cfg.Notify.LinkSecret = nil
	if _, err := New().WithConfig(cfg).WithRedis(rdb).WithAccountProvider(&mockAccountProvider{}).
		WithMailer(mailer).Build(); err == nil || !strings.Contains(err.Error(), "link secret") {
		t.Fatalf("expected missing link secret error, got %v", err)
	}

	// Without a mailer the link configuration is not demanded.
	engine, err := New().WithConfig(cfg).WithRedis(rdb).WithAccountProvider(&mockAccountProvider{}).Build()
	if err != nil {
		t.Fatalf("Build without mailer failed: %v", err)
	}
	engine.Close()
}

func TestBuilderIsSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	b := New().WithConfig(loginTestConfig()).WithRedis(rdb).WithAccountProvider(&mockAccountProvider{})
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestConfigIsCopiedIntoBuilder(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	cfg := loginTestConfig()
	cfg.Notify.Services = []string{"sync"}

	b := New().WithConfig(cfg).WithRedis(rdb).WithAccountProvider(&mockAccountProvider{})
	cfg.Notify.Services[0] = "mutated"

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if engine.config.Notify.Services[0] != "sync" {
		t.Fatalf("expected builder to keep its own copy, got %q", engine.config.Notify.Services[0])
	}
}
