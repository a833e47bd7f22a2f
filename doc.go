// Package authcore implements the authentication core of a login service:
// account resolution with case-insensitive email matching, argon2id
// credential verification, account lock enforcement, Redis-backed opaque
// session and key-fetch tokens, and sign-in notification dispatch.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Decision contract
//
// Login resolves each attempt to exactly one outcome, checked in a fixed
// order: unknown account (errno 102), incorrect email case (120, decided
// before the password is inspected), account locked (121, decided for any
// password), incorrect password (103), then success. Infrastructure
// faults surface as errno 999 and never stand in for a domain verdict.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (LoginResult, MetricsSnapshot, etc.). Token
// persistence, lock state, and audit dispatch live in sub-packages and
// under internal/; account storage stays behind [AccountProvider] so the
// core never dictates where identities live.
package authcore
