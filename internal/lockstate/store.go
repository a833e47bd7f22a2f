// Package lockstate persists per-account lock records in Redis.
//
// A lock is an explicit state transition driven from outside the login
// path (abuse detection, admin action); login only ever reads it. Records
// carry the transition timestamp and an optional reason so lock-reason
// reporting can be added without changing this store's contract.
package lockstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// State enumerates the lock status of an account.
type State uint8

const (
	// StateUnlocked is the default state of every account.
	StateUnlocked State = iota
	// StateLocked refuses all logins until an explicit unlock.
	StateLocked
)

// ErrUnavailable indicates the lock backend is unreachable. Callers must
// fail closed on it rather than treating the account as unlocked.
var ErrUnavailable = errors.New("lock state backend unavailable")

// Record is the persisted lock state of one account.
type Record struct {
	State    State  `json:"state"`
	LockedAt int64  `json:"locked_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Store reads and writes lock records keyed by account uid.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a lock state store under the given key prefix.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(uid string) string {
	return s.prefix + "lock:" + uid
}

// Lock moves the account to StateLocked, recording when and why. Locking
// an already locked account refreshes the record; lock records have no
// TTL, only Unlock clears them.
func (s *Store) Lock(ctx context.Context, uid, reason string, now time.Time) error {
	rec := Record{
		State:    StateLocked,
		LockedAt: now.Unix(),
		Reason:   reason,
	}
	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(uid), blob, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Unlock moves the account back to StateUnlocked. Unlocking an account
// that is not locked is a no-op.
func (s *Store) Unlock(ctx context.Context, uid string) error {
	if err := s.redis.Del(ctx, s.key(uid)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the account's lock record. Absence of a record means
// unlocked.
func (s *Store) Get(ctx context.Context, uid string) (Record, error) {
	blob, err := s.redis.Get(ctx, s.key(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{State: StateUnlocked}, nil
		}
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(blob, &rec); err != nil {
		return Record{}, fmt.Errorf("corrupt lock record for %s: %w", uid, err)
	}
	return rec, nil
}

// IsLocked is the pure read the login path consumes.
func (s *Store) IsLocked(ctx context.Context, uid string) (bool, error) {
	rec, err := s.Get(ctx, uid)
	if err != nil {
		return false, err
	}
	return rec.State == StateLocked, nil
}
