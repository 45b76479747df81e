// Package failover authenticates a credential against an ordered list of
// redundant authentication servers.
//
// Servers are tried one at a time, in configured order. Each attempt yields
// a classified Outcome (accepted, rejected, unreachable, or protocol error)
// and a Policy decides whether a failed attempt ends the call or moves on to
// the next server. The first server to accept wins; there is no ranking by
// latency or health.
//
// Probe is a diagnostic variant of the same iteration. It sends a synthetic
// attempt to each server and reports whether any of them answered at all.
//
// The package holds no mutable state. An Authenticator may be shared by
// concurrent callers as long as its servers are safe for concurrent use.
// The orchestrator adds no timeout of its own: with ContinueOnUnreachable
// set, the worst-case latency of one call is the sum of every server's
// timeout.
package failover
