package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avirel-labs/authcore/internal"
	"github.com/avirel-labs/authcore/internal/audit"
	"github.com/avirel-labs/authcore/internal/lockstate"
	"github.com/avirel-labs/authcore/password"
	"github.com/avirel-labs/authcore/token"
)

// Engine is the login core. Build one through the Builder; a built engine
// is immutable and safe for concurrent use.
type Engine struct {
	config    Config
	directory *accountDirectory
	verifier  *password.Verifier
	locks     *lockstate.Store
	tokens    *token.Issuer
	sessions  *token.Store
	notifier  *notifier
	audit     *audit.Dispatcher
	metrics   *Metrics
	log       logrus.FieldLogger
}

// Close stops the background workers, draining accepted audit events and
// queued notifications first.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.notifier != nil {
		e.notifier.close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Metrics exposes the engine's in-process counters.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Login authenticates one email/password pair and, on success, issues a
// session token (plus a key-fetch token iff the request asked for keys).
//
// Exactly one outcome per attempt, decided in a fixed order:
// account resolution, then lock state, then the credential. A locked
// account answers locked for any password, and a miscased email answers
// before the password is ever inspected. All failures are *Error values;
// infrastructure faults come back as ErrInternal and never masquerade as
// a domain verdict.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	start := time.Now()
	result, err := e.login(ctx, req)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricLoginLatency, time.Since(start))
	}
	return result, err
}

func (e *Engine) login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, e.failLogin(ctx, "", ErrUnknownAccount, req.Options)
	}

	res, err := e.directory.resolve(ctx, req.Email)
	if err != nil {
		return nil, e.failInternal(ctx, "", err, req.Options)
	}

	switch res.Kind {
	case ResolutionNotFound:
		return nil, e.failLogin(ctx, "", ErrUnknownAccount, req.Options)
	case ResolutionCaseMismatch:
		// The password is deliberately not checked: the caller must repeat
		// the attempt under the canonical casing.
		return nil, e.failLogin(ctx, res.Account.UID, incorrectEmailCase(res.Account.Email), req.Options)
	}

	acct := res.Account

	locked, err := e.locks.IsLocked(ctx, acct.UID)
	if err != nil {
		return nil, e.failInternal(ctx, acct.UID, err, req.Options)
	}
	if locked {
		return nil, e.failLogin(ctx, acct.UID, ErrAccountLocked, req.Options)
	}

	ok, err := e.verifier.Check(req.Password, acct.VerifyHash)
	if err != nil {
		// A malformed stored verifier is corrupt account data, not a wrong
		// password.
		return nil, e.failInternal(ctx, acct.UID, err, req.Options)
	}
	if !ok {
		return nil, e.failLogin(ctx, acct.UID, incorrectPassword(acct.Email), req.Options)
	}

	pair, err := e.tokens.Issue(ctx, acct.UID, req.Options.Keys, time.Now().UTC())
	if err != nil {
		return nil, e.failInternal(ctx, acct.UID, err, req.Options)
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.metrics.Inc(MetricSessionTokenIssued)
	if pair.KeyFetchToken != nil {
		e.metrics.Inc(MetricKeyFetchTokenIssued)
	}
	e.emitAudit(ctx, auditLoginSuccess, true, acct.UID, nil,
		keysMetadata(req.Options.Service, req.Options.Reason, req.Options.Keys))

	if e.shouldNotify(req.Options) {
		e.dispatchNotification(ctx, acct, req.Options)
	}

	return &LoginResult{
		UID:           acct.UID,
		SessionToken:  pair.SessionToken,
		KeyFetchToken: pair.KeyFetchToken,
		Verified:      acct.Verified,
	}, nil
}

// failLogin records a domain failure on the metrics and audit surfaces
// and returns it. The returned error is the one the caller sees.
func (e *Engine) failLogin(ctx context.Context, uid string, failure *Error, opts LoginOptions) error {
	e.metrics.Inc(loginFailureMetric(failure.Errno))
	e.emitAudit(ctx, auditLoginFailure, false, uid, failure, loginMetadata(opts.Service, opts.Reason))
	return failure
}

func (e *Engine) failInternal(ctx context.Context, uid string, cause error, opts LoginOptions) error {
	failure := internalError(cause)
	e.metrics.Inc(MetricLoginInternalError)
	e.emitAudit(ctx, auditLoginFailure, false, uid, failure, loginMetadata(opts.Service, opts.Reason))
	if e.log != nil {
		e.log.WithError(cause).Error("login failed on infrastructure fault")
	}
	return failure
}

func loginFailureMetric(errno Errno) MetricID {
	switch errno {
	case ErrnoUnknownAccount:
		return MetricLoginUnknownAccount
	case ErrnoIncorrectPassword:
		return MetricLoginIncorrectPassword
	case ErrnoIncorrectEmailCase:
		return MetricLoginIncorrectEmailCase
	case ErrnoAccountLocked:
		return MetricLoginAccountLocked
	default:
		return MetricLoginInternalError
	}
}

// SessionInfo reports whether a session token is live and, if so, the
// account it belongs to.
func (e *Engine) SessionInfo(ctx context.Context, sessionToken string) (*token.Session, error) {
	digest, err := internal.TokenDigest(sessionToken)
	if err != nil {
		return nil, ErrUnknownToken
	}
	sess, err := e.sessions.GetSession(ctx, digest)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return nil, ErrUnknownToken
		}
		return nil, internalError(err)
	}
	return sess, nil
}

// DestroySession revokes one session token. The key-fetch token issued
// alongside it, if any, dies with it.
func (e *Engine) DestroySession(ctx context.Context, sessionToken string) error {
	digest, err := internal.TokenDigest(sessionToken)
	if err != nil {
		return ErrUnknownToken
	}
	if err := e.sessions.DeleteSession(ctx, digest); err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return ErrUnknownToken
		}
		return internalError(err)
	}
	return nil
}

// DestroyAccountSessions revokes every live token of the account, e.g.
// after a lock or a password change.
func (e *Engine) DestroyAccountSessions(ctx context.Context, uid string) error {
	if uid == "" {
		return internalError(errIdentifierRequired)
	}
	if err := e.sessions.DeleteAllForAccount(ctx, uid); err != nil {
		return internalError(err)
	}
	return nil
}
