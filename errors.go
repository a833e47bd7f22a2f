package authcore

import (
	"errors"
	"net/http"
)

// errIdentifierRequired is the cause carried by internal errors raised on
// empty uid or email inputs from embedding code, not end users.
var errIdentifierRequired = errors.New("authcore: identifier must not be empty")

// Errno is the stable machine-readable failure identifier, independent of
// the HTTP status it travels with.
type Errno int

const (
	// ErrnoUnknownAccount — no account matches either lookup key.
	ErrnoUnknownAccount Errno = 102
	// ErrnoIncorrectPassword — exact-case account, wrong credential.
	ErrnoIncorrectPassword Errno = 103
	// ErrnoIncorrectEmailCase — account exists only under different casing.
	ErrnoIncorrectEmailCase Errno = 120
	// ErrnoAccountLocked — account is in the locked state.
	ErrnoAccountLocked Errno = 121
	// ErrnoInvalidToken — the presented token is unknown or expired.
	ErrnoInvalidToken Errno = 110
	// ErrnoInternal — infrastructure fault. Never stands in for a domain errno.
	ErrnoInternal Errno = 999
)

// Error is a terminal login-path failure in its wire shape: http code,
// errno, canonical reason phrase, human message, and — only for the
// errnos whose contract includes it — the account's canonical email.
type Error struct {
	Code    int    `json:"code"`
	Errno   Errno  `json:"errno"`
	Reason  string `json:"error"`
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`

	cause error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches by errno so errors.Is works against the package-level kinds
// regardless of per-request fields like Email.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Errno == e.Errno
}

var (
	// ErrUnknownAccount is the errno 102 failure kind. No email is echoed:
	// the account is unknown.
	ErrUnknownAccount = &Error{
		Code:    http.StatusBadRequest,
		Errno:   ErrnoUnknownAccount,
		Reason:  http.StatusText(http.StatusBadRequest),
		Message: "Unknown account",
	}
	// ErrIncorrectPassword is the errno 103 failure kind.
	ErrIncorrectPassword = &Error{
		Code:    http.StatusBadRequest,
		Errno:   ErrnoIncorrectPassword,
		Reason:  http.StatusText(http.StatusBadRequest),
		Message: "Incorrect password",
	}
	// ErrIncorrectEmailCase is the errno 120 failure kind.
	ErrIncorrectEmailCase = &Error{
		Code:    http.StatusBadRequest,
		Errno:   ErrnoIncorrectEmailCase,
		Reason:  http.StatusText(http.StatusBadRequest),
		Message: "Incorrect email case",
	}
	// ErrAccountLocked is the errno 121 failure kind.
	ErrAccountLocked = &Error{
		Code:    http.StatusBadRequest,
		Errno:   ErrnoAccountLocked,
		Reason:  http.StatusText(http.StatusBadRequest),
		Message: "Account is locked",
	}
	// ErrUnknownToken is the errno 110 failure kind for session lookups
	// with a token that is malformed, revoked, or expired.
	ErrUnknownToken = &Error{
		Code:    http.StatusUnauthorized,
		Errno:   ErrnoInvalidToken,
		Reason:  http.StatusText(http.StatusUnauthorized),
		Message: "Invalid authentication token",
	}
	// ErrInternal is the errno 999 failure kind for repository, store, or
	// token-write faults.
	ErrInternal = &Error{
		Code:    http.StatusInternalServerError,
		Errno:   ErrnoInternal,
		Reason:  http.StatusText(http.StatusInternalServerError),
		Message: "Unspecified error",
	}
)

// incorrectPassword echoes the canonical email so the client can re-render
// the form with a known-good address. Account existence is already implied
// by the exact-case match that precedes the credential check.
func incorrectPassword(canonicalEmail string) *Error {
	e := *ErrIncorrectPassword
	e.Email = canonicalEmail
	return &e
}

// incorrectEmailCase echoes the canonical (signup-cased) email so the
// client can correct the address before any credential is checked.
func incorrectEmailCase(canonicalEmail string) *Error {
	e := *ErrIncorrectEmailCase
	e.Email = canonicalEmail
	return &e
}

func internalError(cause error) *Error {
	e := *ErrInternal
	e.cause = cause
	return &e
}
