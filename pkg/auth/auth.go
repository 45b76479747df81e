package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Decision is an authenticator's vote on a request.
type Decision int

const (
	// Yes means the caller was identified. The chain stops.
	Yes Decision = iota

	// No means credentials were presented but are invalid. The chain stops
	// and the request is rejected.
	No

	// Abstain means the authenticator found no credentials it understands.
	// The chain asks the next one.
	Abstain
)

// String returns "yes", "no" or "abstain".
func (d Decision) String() string {
	switch d {
	case Yes:
		return "yes"
	case No:
		return "no"
	case Abstain:
		return "abstain"
	default:
		return "unknown"
	}
}

// Result is one authenticator's vote. Identity is set only for Yes and
// Err only for No.
type Result struct {
	Decision Decision
	Identity *Identity
	Err      error
}

// Authenticator inspects a request for first-factor credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")

	// ErrNoUsername means the identity maps to an empty RADIUS username.
	ErrNoUsername = errors.New("identity has no RADIUS username")
)

// Chain turns request credentials into the principal whose token is sent
// to the RADIUS servers.
//
// Authenticators vote in order; the first Yes or No wins. When all abstain,
// DefaultDecision applies: Yes yields the anonymous principal, anything
// else rejects. Every accepted identity is normalized before it leaves the
// chain: Username is derived from Subject through Username, and an empty
// ServiceTier becomes DefaultTier (or DefaultTierName).
type Chain struct {
	Authenticators  []Authenticator
	DefaultDecision Decision

	// Username maps the subject to the RADIUS User-Name.
	Username UsernameMapping

	// DefaultTier is the rate limit tier for identities without one.
	DefaultTier string
}

// Authenticate runs the chain and returns a normalized principal on Yes.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		switch result.Decision {
		case Abstain:
			continue
		case Yes:
			return c.principal(result.Identity)
		default:
			if result.Err == nil {
				result.Err = ErrUnauthenticated
			}
			result.Identity = nil
			return result
		}
	}

	if c.DefaultDecision == Yes {
		return c.principal(&Identity{Subject: AnonymousSubject})
	}
	return Result{Decision: No, Err: ErrUnauthenticated}
}

// principal copies id and fills the RADIUS username and tier. An identity
// without a subject or username is rejected.
func (c *Chain) principal(id *Identity) Result {
	if id == nil || id.Subject == "" {
		return Result{Decision: No, Err: errors.New("authenticator returned an identity without subject")}
	}

	p := *id
	p.Scopes = append([]string(nil), id.Scopes...)
	if p.Username == "" {
		p.Username = c.Username.Apply(p.Subject)
	}
	if p.Username == "" {
		return Result{Decision: No, Err: fmt.Errorf("%w: subject %q", ErrNoUsername, p.Subject)}
	}
	if p.ServiceTier == "" {
		p.ServiceTier = c.DefaultTier
	}
	if p.ServiceTier == "" {
		p.ServiceTier = DefaultTierName
	}
	return Result{Decision: Yes, Identity: &p}
}
