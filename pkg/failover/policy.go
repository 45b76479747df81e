package failover

// Policy controls whether a failed attempt moves on to the next server.
// The zero value stops at the first failure of either kind.
type Policy struct {
	// ContinueOnRejection tries the next server after an explicit
	// rejection instead of failing the call.
	ContinueOnRejection bool

	// ContinueOnUnreachable tries the next server after a timeout,
	// transport failure, or protocol error instead of failing the call.
	ContinueOnUnreachable bool
}

// continueAfter reports whether the iteration proceeds after an outcome.
// Accepted never continues.
func (p Policy) continueAfter(kind OutcomeKind) bool {
	switch kind {
	case OutcomeAccepted:
		return false
	case OutcomeRejected:
		return p.ContinueOnRejection
	default:
		// Unreachable, protocol errors and unknown kinds share one switch.
		return p.ContinueOnUnreachable
	}
}
