package authcore

import (
	"context"
	"time"

	"github.com/avirel-labs/authcore/internal/lockstate"
)

// LockAccount marks the account locked. Locking is idempotent: relocking
// an already-locked account refreshes the record without error. Reason is
// an operator-facing annotation, never shown to the end user.
func (e *Engine) LockAccount(ctx context.Context, uid, reason string) error {
	if uid == "" {
		return internalError(errIdentifierRequired)
	}
	if err := e.locks.Lock(ctx, uid, reason, time.Now().UTC()); err != nil {
		return internalError(err)
	}

	e.metrics.Inc(MetricAccountLocked)
	e.emitAudit(ctx, auditLockSet, true, uid, nil, func() map[string]string {
		if reason == "" {
			return nil
		}
		return map[string]string{"reason": reason}
	})
	return nil
}

// UnlockAccount clears the lock. Unlocking an account that was never
// locked is a no-op.
func (e *Engine) UnlockAccount(ctx context.Context, uid string) error {
	if uid == "" {
		return internalError(errIdentifierRequired)
	}
	if err := e.locks.Unlock(ctx, uid); err != nil {
		return internalError(err)
	}

	e.metrics.Inc(MetricAccountUnlocked)
	e.emitAudit(ctx, auditLockCleared, true, uid, nil, nil)
	return nil
}

// IsLocked reports the current lock state. An unreadable lock store is an
// error, never an unlocked verdict: the login path fails closed on it.
func (e *Engine) IsLocked(ctx context.Context, uid string) (bool, error) {
	locked, err := e.locks.IsLocked(ctx, uid)
	if err != nil {
		return false, internalError(err)
	}
	return locked, nil
}

// LockState returns the full lock record for operator inspection.
func (e *Engine) LockState(ctx context.Context, uid string) (lockstate.Record, error) {
	rec, err := e.locks.Get(ctx, uid)
	if err != nil {
		return lockstate.Record{}, internalError(err)
	}
	return rec, nil
}
