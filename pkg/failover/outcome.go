package failover

import (
	"context"
	"fmt"
)

// OutcomeKind classifies the result of a single server attempt.
type OutcomeKind int

const (
	// OutcomeUnknown is the zero value. It is handled like OutcomeProtocolError.
	OutcomeUnknown OutcomeKind = iota

	// OutcomeAccepted means the server accepted the credential.
	OutcomeAccepted

	// OutcomeRejected means the server explicitly rejected the credential.
	OutcomeRejected

	// OutcomeUnreachable means the server did not answer: a timeout or a
	// transport-level failure.
	OutcomeUnreachable

	// OutcomeProtocolError covers every other failure, including malformed
	// or unexpected responses.
	OutcomeProtocolError
)

// String returns the label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeProtocolError:
		return "protocol_error"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one attempt against one server.
type Outcome struct {
	Kind OutcomeKind

	// Attributes carries the server's reply attributes. Set only when
	// Kind == OutcomeAccepted.
	Attributes map[string]any

	// Err is the underlying cause for OutcomeUnreachable and
	// OutcomeProtocolError.
	Err error
}

// Accepted returns an accepted outcome carrying the reply attributes.
func Accepted(attrs map[string]any) Outcome {
	return Outcome{Kind: OutcomeAccepted, Attributes: attrs}
}

// Rejected returns an explicit-rejection outcome.
func Rejected() Outcome {
	return Outcome{Kind: OutcomeRejected}
}

// Unreachable returns an outcome for a server that did not respond.
func Unreachable(err error) Outcome {
	return Outcome{Kind: OutcomeUnreachable, Err: err}
}

// ProtocolError returns an outcome for any other attempt failure.
func ProtocolError(err error) Outcome {
	return Outcome{Kind: OutcomeProtocolError, Err: err}
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Kind, o.Err)
	}
	return o.Kind.String()
}

// Server performs one authentication attempt against one backend server.
//
// Implementations must report timeouts and transport failures as
// OutcomeUnreachable and every other failure as OutcomeProtocolError.
// Attempt may be called concurrently.
type Server interface {
	// Name identifies the server in logs and metrics. It must not
	// contain the shared secret.
	Name() string

	// Attempt sends one authentication request for identifier/secret.
	Attempt(ctx context.Context, identifier, secret string) Outcome
}
