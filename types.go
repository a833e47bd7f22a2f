package authcore

import "context"

// Account is the identity record resolved from the account repository.
// The canonical email is the exact casing the account was created with;
// NormalizedEmail is the lowercased index key used only for
// case-insensitive matching, never for display or echo.
type Account struct {
	UID             string
	Email           string
	NormalizedEmail string

	// VerifyHash is the stretched password verifier in PHC string form
	// (salt included). The raw password is never stored.
	VerifyHash string

	// Verified reports email-verification state. This core reads it into
	// the success payload but never decides it.
	Verified bool
}

// AccountProvider is the abstract account repository this core consumes.
// Both lookups return (nil, nil) when no record matches; an error means
// the repository itself failed. Implementations must be safe for
// concurrent use and linearizable per account key.
type AccountProvider interface {
	FindByCanonicalEmail(ctx context.Context, email string) (*Account, error)
	FindByNormalizedEmail(ctx context.Context, normalizedEmail string) (*Account, error)
}

// LoginOptions is the caller-supplied option set of one login request.
type LoginOptions struct {
	// Keys requests a key-fetch token alongside the session token.
	Keys bool
	// Service names the relying context of the sign-in (e.g. "sync").
	Service string
	// Reason describes why the request was made (e.g. "signin").
	Reason string
}

// LoginRequest is the ephemeral input of one login attempt. It is never
// persisted and the password is never logged.
type LoginRequest struct {
	Email    string
	Password string
	Options  LoginOptions
}

// LoginResult is the success outcome of a login. KeyFetchToken is nil
// unless the request asked for keys; callers must not infer issuance from
// session success alone.
type LoginResult struct {
	UID           string
	SessionToken  string
	KeyFetchToken *string
	Verified      bool
}

// ResolutionKind classifies an account directory lookup.
type ResolutionKind uint8

const (
	// ResolutionNotFound — neither lookup key matched.
	ResolutionNotFound ResolutionKind = iota
	// ResolutionExactMatch — the canonical email matched as submitted.
	ResolutionExactMatch
	// ResolutionCaseMismatch — the account exists but was addressed with a
	// differently cased email.
	ResolutionCaseMismatch
)

// Resolution is the account directory's answer for one submitted email.
// Account is nil exactly when Kind is ResolutionNotFound.
type Resolution struct {
	Kind    ResolutionKind
	Account *Account
}
