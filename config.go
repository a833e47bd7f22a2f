package authcore

import (
	"errors"
	"time"
)

// Config carries every tunable of the engine. Zero values are not usable;
// start from DefaultConfig and override.
type Config struct {
	RedisPrefix string

	Password PasswordConfig
	Token    TokenConfig
	Notify   NotifyConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// PasswordConfig sets the argon2id stretching cost for the credential
// verifier. Stored verifiers carry their own parameters; these apply to
// newly derived ones.
type PasswordConfig struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// TokenConfig governs issued token lifetimes. A zero TTL means the record
// persists until session revocation removes it.
type TokenConfig struct {
	SessionTTL  time.Duration
	KeyFetchTTL time.Duration
}

// NotifyConfig controls the sign-in notification trigger. Enabled alone
// does nothing until a mailer is wired through the builder, and a wired
// mailer requires LinkBaseURL and LinkSecret: every notification carries
// a signed confirmation link.
type NotifyConfig struct {
	Enabled bool
	// Services whose "signin" logins require user awareness.
	Services []string
	// LinkBaseURL is the confirmation endpoint embedded in the email link.
	LinkBaseURL string
	// LinkSecret signs the confirmation link token (HS256).
	LinkSecret []byte
	// LinkTTL bounds how long a confirmation link stays valid.
	LinkTTL time.Duration

	BufferSize int
	DropIfFull bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		RedisPrefix: "authcore:",
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Token: TokenConfig{
			SessionTTL:  0,
			KeyFetchTTL: 0,
		},
		Notify: NotifyConfig{
			Enabled:    true,
			Services:   []string{"sync"},
			LinkTTL:    24 * time.Hour,
			BufferSize: 256,
			DropIfFull: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func (c Config) validate() error {
	if c.RedisPrefix == "" {
		return errors.New("redis prefix must not be empty")
	}
	if c.Token.SessionTTL < 0 || c.Token.KeyFetchTTL < 0 {
		return errors.New("token TTLs must not be negative")
	}
	if c.Notify.Enabled {
		if c.Notify.LinkTTL <= 0 {
			return errors.New("notify link TTL must be positive")
		}
		if c.Notify.BufferSize <= 0 {
			return errors.New("notify buffer size must be positive")
		}
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.Notify.Services = append([]string(nil), c.Notify.Services...)
	out.Notify.LinkSecret = append([]byte(nil), c.Notify.LinkSecret...)
	return out
}
