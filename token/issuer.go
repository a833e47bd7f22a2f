package token

import (
	"context"
	"time"

	"github.com/avirel-labs/authcore/internal"
)

// Issuer mints opaque bearer tokens and persists their records.
type Issuer struct {
	store       *Store
	sessionTTL  time.Duration
	keyFetchTTL time.Duration
}

// NewIssuer creates an issuer writing through the given store.
func NewIssuer(store *Store, sessionTTL, keyFetchTTL time.Duration) *Issuer {
	return &Issuer{
		store:       store,
		sessionTTL:  sessionTTL,
		keyFetchTTL: keyFetchTTL,
	}
}

// IssuedPair is the outcome of one issuance. KeyFetchToken is nil when
// the caller did not ask for keys.
type IssuedPair struct {
	SessionToken  string
	KeyFetchToken *string
}

// Issue mints a session token for uid and, iff wantKeys, a key-fetch
// token bound to it. The pair is persisted in a single atomic write:
// a session token is never observable without its paired record.
func (i *Issuer) Issue(ctx context.Context, uid string, wantKeys bool, now time.Time) (IssuedPair, error) {
	var pair IssuedPair

	sessionSecret, err := internal.NewTokenSecret()
	if err != nil {
		return pair, err
	}
	sessionDigest := sessionSecret.Digest()

	sess := Session{
		UID:       uid,
		CreatedAt: now.Unix(),
	}

	var (
		kfDigest string
		kf       *KeyFetch
		kfToken  string
	)
	if wantKeys {
		kfSecret, err := internal.NewTokenSecret()
		if err != nil {
			return pair, err
		}
		kfDigest = kfSecret.Digest()
		kfToken = kfSecret.Token()
		kf = &KeyFetch{
			UID:           uid,
			SessionDigest: sessionDigest,
			CreatedAt:     now.Unix(),
		}
		sess.KeyFetchDigest = kfDigest
	}

	if err := i.store.SavePair(ctx, sessionDigest, sess, kfDigest, kf, i.sessionTTL, i.keyFetchTTL); err != nil {
		return pair, err
	}

	pair.SessionToken = sessionSecret.Token()
	if wantKeys {
		pair.KeyFetchToken = &kfToken
	}
	return pair, nil
}
