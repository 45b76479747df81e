package failover

import (
	"context"
	"time"
)

// ProbeIdentifier is sent as both username and secret by Probe.
const ProbeIdentifier = "radiusmfa-probe"

// Authenticate tries servers in order until one accepts the credential or
// the policy stops the iteration.
//
// An empty server list returns StatusNoServersConfigured without contacting
// anything. Accepted ends the call with StatusSuccess. Rejected continues
// only under ContinueOnRejection, otherwise StatusRejected. Unreachable and
// protocol errors continue only under ContinueOnUnreachable, otherwise
// StatusUnreachable. If every server was tried, StatusExhausted.
//
// servers and policy are only read. username and secret are passed to
// each server unchanged.
func Authenticate(ctx context.Context, username, secret string, servers []Server, policy Policy, opts ...Option) Result {
	return authenticate(ctx, username, secret, servers, policy, buildOptions(opts))
}

func authenticate(ctx context.Context, username, secret string, servers []Server, policy Policy, o options) Result {
	if len(servers) == 0 {
		return Result{Status: StatusNoServersConfigured}
	}

	for i, srv := range servers {
		start := time.Now()
		outcome := srv.Attempt(ctx, username, secret)
		elapsed := time.Since(start)

		next := policy.continueAfter(outcome.Kind)
		ev := Event{
			Op:       OpAuthenticate,
			Index:    i,
			Server:   srv.Name(),
			Outcome:  outcome,
			Decision: Stop,
			Elapsed:  elapsed,
		}
		if next {
			ev.Decision = Continue
		}
		o.emit(ctx, ev)

		if next {
			continue
		}

		switch outcome.Kind {
		case OutcomeAccepted:
			return Result{
				Status:     StatusSuccess,
				Attributes: outcome.Attributes,
				Server:     srv.Name(),
				Contacted:  i + 1,
			}
		case OutcomeRejected:
			return Result{Status: StatusRejected, Contacted: i + 1}
		default:
			return Result{Status: StatusUnreachable, Contacted: i + 1}
		}
	}

	return Result{Status: StatusExhausted, Contacted: len(servers)}
}

// Probe reports whether at least one server answers a synthetic attempt.
//
// Any answer counts, including a rejection or a protocol error: only an
// unreachable server is considered down. Servers are tried in order and
// the first answer ends the probe. An empty list returns false.
func Probe(ctx context.Context, servers []Server, opts ...Option) bool {
	return probe(ctx, servers, buildOptions(opts))
}

func probe(ctx context.Context, servers []Server, o options) bool {
	for i, srv := range servers {
		start := time.Now()
		outcome := srv.Attempt(ctx, ProbeIdentifier, ProbeIdentifier)
		ev := Event{
			Op:       OpProbe,
			Index:    i,
			Server:   srv.Name(),
			Outcome:  outcome,
			Decision: Stop,
			Elapsed:  time.Since(start),
		}

		if outcome.Kind == OutcomeUnreachable {
			ev.Decision = Continue
			o.emit(ctx, ev)
			continue
		}

		o.emit(ctx, ev)
		return true
	}
	return false
}

// Authenticator binds a server list, a policy and options for repeated use.
type Authenticator struct {
	servers []Server
	policy  Policy
	opts    options
}

// New creates an Authenticator. The server slice is copied; later changes
// to the caller's slice have no effect.
func New(servers []Server, policy Policy, opts ...Option) *Authenticator {
	return &Authenticator{
		servers: append([]Server(nil), servers...),
		policy:  policy,
		opts:    buildOptions(opts),
	}
}

// Authenticate runs the failover iteration for one credential.
func (a *Authenticator) Authenticate(ctx context.Context, username, secret string) Result {
	return authenticate(ctx, username, secret, a.servers, a.policy, a.opts)
}

// Probe reports whether any configured server is reachable.
func (a *Authenticator) Probe(ctx context.Context) bool {
	return probe(ctx, a.servers, a.opts)
}

// Policy returns the configured failover policy.
func (a *Authenticator) Policy() Policy {
	return a.policy
}

// Servers returns the names of the configured servers, in trial order.
func (a *Authenticator) Servers() []string {
	names := make([]string, len(a.servers))
	for i, s := range a.servers {
		names[i] = s.Name()
	}
	return names
}
