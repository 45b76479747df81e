package auth

import (
	"context"
	"strings"
)

const (
	// AnonymousSubject is the subject granted when the chain accepts by
	// default.
	AnonymousSubject = "anonymous"

	// DefaultTierName is the tier of identities that carry none.
	DefaultTierName = "default"
)

// Identity is a first-factor principal. Subject names the caller in
// audit events; Username is what the RADIUS servers see as User-Name.
type Identity struct {
	Subject     string
	Username    string
	ServiceTier string
	TenantID    string
	Scopes      []string
}

// RADIUSUsername returns Username, falling back to Subject for identities
// that did not pass through a Chain.
func (id *Identity) RADIUSUsername() string {
	if id == nil {
		return ""
	}
	if id.Username != "" {
		return id.Username
	}
	return id.Subject
}

// Tier returns the service tier, DefaultTierName when unset.
func (id *Identity) Tier() string {
	if id == nil || id.ServiceTier == "" {
		return DefaultTierName
	}
	return id.ServiceTier
}

// UsernameMapping derives the RADIUS User-Name from a subject. The zero
// value passes the subject through unchanged.
//
// Steps are applied in order: realm stripping ("alice@corp" -> "alice"),
// case folding, then Prefix and Suffix.
type UsernameMapping struct {
	StripRealm bool
	Case       string // "", "lower" or "upper"
	Prefix     string
	Suffix     string
}

// Apply maps subject to a username. Surrounding whitespace is removed; a
// blank subject maps to "".
func (m UsernameMapping) Apply(subject string) string {
	name := strings.TrimSpace(subject)
	if m.StripRealm {
		if i := strings.LastIndexByte(name, '@'); i >= 0 {
			name = name[:i]
		}
	}
	if name == "" {
		return ""
	}
	switch m.Case {
	case "lower":
		name = strings.ToLower(name)
	case "upper":
		name = strings.ToUpper(name)
	}
	return m.Prefix + name + m.Suffix
}

type identityKey struct{}

// ContextWithIdentity returns ctx carrying the principal.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the principal stored by the Middleware, or
// nil for requests that bypassed authentication.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
