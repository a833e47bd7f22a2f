// Package accounts provides a Redis-backed reference implementation of
// the engine's account repository. Deployments with their own identity
// store implement authcore.AccountProvider directly instead.
package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/avirel-labs/authcore"
)

// RedisDirectory stores account records in Redis under two email keys:
// the canonical casing and the lowercased form. Both point at the same
// record, so either lookup is one GET.
type RedisDirectory struct {
	client redis.UniversalClient
	prefix string
}

var _ authcore.AccountProvider = (*RedisDirectory)(nil)

func NewRedisDirectory(client redis.UniversalClient, prefix string) *RedisDirectory {
	return &RedisDirectory{client: client, prefix: prefix}
}

func (d *RedisDirectory) canonicalKey(email string) string {
	return d.prefix + "acctmail:" + email
}

func (d *RedisDirectory) normalizedKey(email string) string {
	return d.prefix + "acctnorm:" + email
}

type record struct {
	UID        string    `json:"uid"`
	Email      string    `json:"email"`
	VerifyHash string    `json:"verify_hash"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r record) account() *authcore.Account {
	return &authcore.Account{
		UID:             r.UID,
		Email:           r.Email,
		NormalizedEmail: strings.ToLower(r.Email),
		VerifyHash:      r.VerifyHash,
		Verified:        r.Verified,
	}
}

// createLua writes the record under both keys only if neither exists, so
// two concurrent signups for the same address cannot both win.
var createLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 or redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], ARGV[1])
return 1
`)

// ErrEmailTaken is returned by Create when either casing of the address
// is already registered.
var ErrEmailTaken = fmt.Errorf("accounts: email already registered")

// Create registers an account under the given canonical email and
// returns its generated uid.
func (d *RedisDirectory) Create(ctx context.Context, email, verifyHash string, verified bool) (string, error) {
	rec := record{
		UID:        strings.ReplaceAll(uuid.NewString(), "-", ""),
		Email:      email,
		VerifyHash: verifyHash,
		Verified:   verified,
		CreatedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("accounts: encode record: %w", err)
	}

	created, err := createLua.Run(ctx, d.client,
		[]string{d.canonicalKey(email), d.normalizedKey(strings.ToLower(email))},
		string(data),
	).Int()
	if err != nil {
		return "", fmt.Errorf("accounts: create: %w", err)
	}
	if created == 0 {
		return "", ErrEmailTaken
	}
	return rec.UID, nil
}

func (d *RedisDirectory) get(ctx context.Context, key string) (*authcore.Account, error) {
	data, err := d.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: lookup: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("accounts: decode record: %w", err)
	}
	return rec.account(), nil
}

func (d *RedisDirectory) FindByCanonicalEmail(ctx context.Context, email string) (*authcore.Account, error) {
	return d.get(ctx, d.canonicalKey(email))
}

func (d *RedisDirectory) FindByNormalizedEmail(ctx context.Context, normalized string) (*authcore.Account, error) {
	return d.get(ctx, d.normalizedKey(normalized))
}
