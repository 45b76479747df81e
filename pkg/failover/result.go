package failover

import "errors"

// Status is the terminal state of an Authenticate call.
type Status int

const (
	// StatusUnknown is the zero value and never returned by Authenticate.
	StatusUnknown Status = iota

	// StatusSuccess means a server accepted the credential.
	StatusSuccess

	// StatusRejected means a server rejected the credential and the policy
	// did not allow failover.
	StatusRejected

	// StatusUnreachable means a server did not answer (or answered with a
	// protocol error) and the policy did not allow failover.
	StatusUnreachable

	// StatusExhausted means every server was tried and none accepted.
	StatusExhausted

	// StatusNoServersConfigured means the server list was empty.
	StatusNoServersConfigured
)

// String returns the label used in logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRejected:
		return "rejected"
	case StatusUnreachable:
		return "unreachable"
	case StatusExhausted:
		return "exhausted"
	case StatusNoServersConfigured:
		return "no_servers_configured"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per failure status.
var (
	ErrRejected            = errors.New("credential rejected")
	ErrUnreachable         = errors.New("authentication server unreachable")
	ErrExhausted           = errors.New("no authentication server accepted the credential")
	ErrNoServersConfigured = errors.New("no authentication servers configured")
)

// Result is the aggregated outcome of one Authenticate call.
type Result struct {
	Status Status

	// Attributes are the accepting server's reply attributes.
	Attributes map[string]any

	// Server is the name of the accepting server.
	Server string

	// Contacted is the number of servers an attempt was sent to.
	Contacted int
}

// Success reports whether a server accepted the credential.
func (r Result) Success() bool {
	return r.Status == StatusSuccess
}

// Err returns the sentinel error for a failure status, or nil on success.
func (r Result) Err() error {
	switch r.Status {
	case StatusSuccess:
		return nil
	case StatusRejected:
		return ErrRejected
	case StatusUnreachable:
		return ErrUnreachable
	case StatusExhausted:
		return ErrExhausted
	case StatusNoServersConfigured:
		return ErrNoServersConfigured
	default:
		return errors.New("authentication result unknown")
	}
}
