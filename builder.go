package authcore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/avirel-labs/authcore/internal/audit"
	"github.com/avirel-labs/authcore/internal/lockstate"
	"github.com/avirel-labs/authcore/notify"
	"github.com/avirel-labs/authcore/password"
	"github.com/avirel-labs/authcore/token"
)

// Builder assembles an Engine. Configure it during initialization, call
// Build once, and use the engine it returns; the builder is not reusable.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	accounts AccountProvider
	mailer   notify.Mailer
	sink     audit.Sink
	log      logrus.FieldLogger

	built bool
}

// New returns a builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The builder keeps its own
// copy, so later mutation of cfg has no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing token and lock state.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountProvider sets the account repository.
func (b *Builder) WithAccountProvider(p AccountProvider) *Builder {
	b.accounts = p
	return b
}

// WithMailer sets the backend that delivers sign-in notifications. Without
// one, the notification trigger stays off even when enabled in config.
func (b *Builder) WithMailer(m notify.Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink sets the audit consumer. Events flow only when auditing
// is enabled in config.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the structured logger for infrastructure faults and
// delivery failures. Nil disables engine logging.
func (b *Builder) WithLogger(log logrus.FieldLogger) *Builder {
	b.log = log
	return b
}

// Build validates the configuration and wires the engine. The builder may
// not be reused afterwards.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("authcore: builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("authcore: redis client is required")
	}
	if b.accounts == nil {
		return nil, errors.New("authcore: account provider is required")
	}
	if err := b.config.validate(); err != nil {
		return nil, err
	}

	verifier, err := password.NewVerifier(password.Params{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	store := token.NewStore(b.redis, b.config.RedisPrefix)

	e := &Engine{
		config:    b.config,
		directory: &accountDirectory{provider: b.accounts},
		verifier:  verifier,
		locks:     lockstate.NewStore(b.redis, b.config.RedisPrefix),
		sessions:  store,
		tokens:    token.NewIssuer(store, b.config.Token.SessionTTL, b.config.Token.KeyFetchTTL),
		metrics:   NewMetrics(b.config.Metrics),
		log:       b.log,
	}

	if b.config.Audit.Enabled {
		sink := b.sink
		if sink == nil {
			sink = audit.NoOpSink{}
		}
		e.audit = audit.NewDispatcher(audit.Config{
			Enabled:    true,
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, sink)
	}

	if b.config.Notify.Enabled && b.mailer != nil {
		// Every dispatched notification carries a confirmation link, so a
		// wired mailer demands the full link configuration up front.
		if b.config.Notify.LinkBaseURL == "" {
			return nil, errors.New("authcore: notify link base URL is required when a mailer is configured")
		}
		if len(b.config.Notify.LinkSecret) == 0 {
			return nil, errors.New("authcore: notify link secret is required when a mailer is configured")
		}
		signer, err := notify.NewLinkSigner(b.config.Notify.LinkSecret, "authcore", b.config.Notify.LinkTTL)
		if err != nil {
			return nil, err
		}
		e.notifier = newNotifier(b.config.Notify, b.mailer, signer, b.log, func(job notifyJob, sendErr error) {
			if sendErr != nil {
				e.metrics.Inc(MetricNotifyFailed)
				e.emitAudit(context.Background(), auditNotifyFailed, false, job.uid, internalError(sendErr),
					loginMetadata(job.payload.Service, job.payload.Reason))
				return
			}
			e.metrics.Inc(MetricNotifySent)
			e.emitAudit(context.Background(), auditNotifySent, true, job.uid, nil,
				loginMetadata(job.payload.Service, job.payload.Reason))
		})
	}

	b.built = true
	return e, nil
}
