// Package notify builds and delivers sign-in notification email payloads.
//
// The engine decides whether a login needs user awareness; this package
// owns what the notification contains (confirmation link included) and
// the Mailer boundary through which it leaves the process. Delivery
// semantics beyond a single attempt belong to the mailer backend.
package notify

import "context"

// Payload is one sign-in notification ready for dispatch.
type Payload struct {
	// Email is the canonical address of the account that signed in.
	Email string
	// Service and Reason describe the sign-in context that triggered
	// the notification.
	Service string
	Reason  string
	// CorrelationID ties the email back to the login event.
	CorrelationID string
	// Link lets the recipient confirm the sign-in; its query carries the
	// account email and a signed token.
	Link string
}

// Mailer dispatches a notification to its recipient. Implementations must
// be safe for concurrent use; a returned error never fails the login that
// produced the payload.
type Mailer interface {
	Send(ctx context.Context, p Payload) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, p Payload) error

func (f MailerFunc) Send(ctx context.Context, p Payload) error {
	return f(ctx, p)
}
