package authcore

import (
	"context"
	"strings"
)

// accountDirectory resolves a submitted email to an account, classifying
// the match so the caller can tell an exact-case hit from a case-only
// mismatch without leaking which accounts exist.
type accountDirectory struct {
	provider AccountProvider
}

// normalizeEmail folds an address to its case-insensitive lookup key. The
// fold is lossless for ASCII addresses; the canonical casing stays on the
// account record.
func normalizeEmail(email string) string {
	return strings.ToLower(email)
}

// resolve looks the email up exactly as submitted, then under its
// normalized form. Repository failures surface as errors; a clean miss on
// both keys is ResolutionNotFound with a nil account.
func (d *accountDirectory) resolve(ctx context.Context, email string) (Resolution, error) {
	acct, err := d.provider.FindByCanonicalEmail(ctx, email)
	if err != nil {
		return Resolution{}, err
	}
	if acct != nil {
		return Resolution{Kind: ResolutionExactMatch, Account: acct}, nil
	}

	acct, err = d.provider.FindByNormalizedEmail(ctx, normalizeEmail(email))
	if err != nil {
		return Resolution{}, err
	}
	if acct == nil {
		return Resolution{Kind: ResolutionNotFound}, nil
	}

	// The normalized index matched where the exact lookup did not, so the
	// submitted casing differs from the canonical one. An exact-cased
	// submission that only the index finds is a provider inconsistency;
	// treat it as a case mismatch rather than guessing.
	return Resolution{Kind: ResolutionCaseMismatch, Account: acct}, nil
}
