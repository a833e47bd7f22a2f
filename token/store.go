// Package token issues and persists the opaque bearer tokens created on
// successful login.
//
// A session token is always issued; a key-fetch token only when the
// request asked for keys, and then it is bound to both the account and
// the originating session so the pair is invalidated together. Stores
// hold SHA-256 digests of token material, never the tokens themselves.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no record matches a token.
var ErrNotFound = errors.New("token not found")

// ErrUnavailable indicates the token backend is unreachable.
var ErrUnavailable = errors.New("token backend unavailable")

// Session is the persisted record of one session token, keyed by the
// token's digest.
type Session struct {
	UID       string `json:"uid"`
	CreatedAt int64  `json:"created_at"`

	// KeyFetchDigest links the paired key-fetch record so revocation can
	// take both down in one pass. Empty when no keys were requested.
	KeyFetchDigest string `json:"key_fetch_digest,omitempty"`
}

// KeyFetch is the persisted record of one key-fetch token.
type KeyFetch struct {
	UID           string `json:"uid"`
	SessionDigest string `json:"session_digest"`
	CreatedAt     int64  `json:"created_at"`
}

// savePairScript writes the session record, the account's token index,
// and (when present) the key-fetch record in one atomic step. Either the
// whole pair lands or none of it does.
const savePairScript = `
redis.call("SET", KEYS[1], ARGV[1])
if tonumber(ARGV[2]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
redis.call("SADD", KEYS[3], KEYS[1])
if ARGV[3] ~= "" then
  redis.call("SET", KEYS[2], ARGV[3])
  if tonumber(ARGV[4]) > 0 then
    redis.call("PEXPIRE", KEYS[2], ARGV[4])
  end
  redis.call("SADD", KEYS[3], KEYS[2])
end
return 1
`

var savePairLua = redis.NewScript(savePairScript)

// deleteSessionScript removes a session record together with its paired
// key-fetch record, so a key-fetch token can never outlive its session.
const deleteSessionScript = `
local blob = redis.call("GET", KEYS[1])
if not blob then
  return 0
end
local rec = cjson.decode(blob)
if rec["key_fetch_digest"] and rec["key_fetch_digest"] ~= "" then
  local kfkey = ARGV[1] .. rec["key_fetch_digest"]
  redis.call("DEL", kfkey)
  redis.call("SREM", KEYS[2], kfkey)
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], KEYS[1])
return 1
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store persists token records in Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a token store under the given key prefix.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) sessionKey(digest string) string {
	return s.prefix + "st:" + digest
}

func (s *Store) keyFetchKey(digest string) string {
	return s.prefix + "kft:" + digest
}

func (s *Store) accountKey(uid string) string {
	return s.prefix + "acct:" + uid
}

// SavePair persists a session record and, when kf is non-nil, its paired
// key-fetch record atomically.
func (s *Store) SavePair(
	ctx context.Context,
	sessionDigest string,
	sess Session,
	kfDigest string,
	kf *KeyFetch,
	sessionTTL, keyFetchTTL time.Duration,
) error {
	sessBlob, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	kfBlob := []byte("")
	kfKey := s.keyFetchKey("")
	if kf != nil {
		kfBlob, err = json.Marshal(kf)
		if err != nil {
			return err
		}
		kfKey = s.keyFetchKey(kfDigest)
	}

	keys := []string{s.sessionKey(sessionDigest), kfKey, s.accountKey(sess.UID)}
	argv := []interface{}{
		sessBlob,
		sessionTTL.Milliseconds(),
		kfBlob,
		keyFetchTTL.Milliseconds(),
	}

	if err := savePairLua.Run(ctx, s.redis, keys, argv...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetSession looks up a session record by token digest.
func (s *Store) GetSession(ctx context.Context, digest string) (*Session, error) {
	blob, err := s.redis.Get(ctx, s.sessionKey(digest)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rec Session
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	return &rec, nil
}

// GetKeyFetch looks up a key-fetch record by token digest.
func (s *Store) GetKeyFetch(ctx context.Context, digest string) (*KeyFetch, error) {
	blob, err := s.redis.Get(ctx, s.keyFetchKey(digest)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rec KeyFetch
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, fmt.Errorf("corrupt key-fetch record: %w", err)
	}
	return &rec, nil
}

// DeleteSession removes a session record and its paired key-fetch record.
func (s *Store) DeleteSession(ctx context.Context, digest string) error {
	sess, err := s.GetSession(ctx, digest)
	if err != nil {
		return err
	}

	keys := []string{s.sessionKey(digest), s.accountKey(sess.UID)}
	if err := deleteSessionLua.Run(ctx, s.redis, keys, s.prefix+"kft:").Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteAllForAccount removes every token record held for an account.
func (s *Store) DeleteAllForAccount(ctx context.Context, uid string) error {
	members, err := s.redis.SMembers(ctx, s.accountKey(uid)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(members) > 0 {
		if err := s.redis.Del(ctx, members...).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if err := s.redis.Del(ctx, s.accountKey(uid)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
