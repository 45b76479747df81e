// Package apikey provides an API key authenticator for relying services
// that call radiusmfa on behalf of an already identified user.
//
// Keys are validated against a static store using SHA-256 hashing and
// constant-time comparison. The key travels in the X-API-Key header or as
// a Bearer token.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Halvra/cas/pkg/auth"
)

// HeaderName is the dedicated API key header.
const HeaderName = "X-API-Key"

// KeyEntry maps a key hash to an identity.
type KeyEntry struct {
	KeyHash  [32]byte
	Identity auth.Identity
}

// RawKeyEntry is the configuration format for API keys.
type RawKeyEntry struct {
	Key      string
	Identity auth.Identity
}

// Authenticator validates API keys against a static key store.
type Authenticator struct {
	keys []KeyEntry
}

// New creates an API key authenticator from a list of raw keys and identities.
// Keys are hashed immediately; plaintext keys are not stored.
func New(entries []RawKeyEntry) *Authenticator {
	a := &Authenticator{keys: make([]KeyEntry, 0, len(entries))}
	for _, e := range entries {
		a.keys = append(a.keys, KeyEntry{
			KeyHash:  sha256.Sum256([]byte(e.Key)),
			Identity: e.Identity,
		})
	}
	return a
}

// Len returns the number of configured keys.
func (a *Authenticator) Len() int {
	return len(a.keys)
}

// Authenticate returns Yes for a known key, No when a key is presented but
// unknown, and Abstain when the request carries no key at all.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	key, present := extractKey(r)
	if !present {
		return auth.Result{Decision: auth.Abstain}
	}
	if key == "" {
		return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	hash := sha256.Sum256([]byte(key))

	// Every entry is compared so timing does not reveal the match position.
	var match *KeyEntry
	for i := range a.keys {
		if subtle.ConstantTimeCompare(hash[:], a.keys[i].KeyHash[:]) == 1 {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	id := match.Identity
	id.Scopes = append([]string(nil), match.Identity.Scopes...)
	return auth.Result{Decision: auth.Yes, Identity: &id}
}

// extractKey reads X-API-Key, then a Bearer Authorization header.
func extractKey(r *http.Request) (string, bool) {
	if vals, ok := r.Header[http.CanonicalHeaderKey(HeaderName)]; ok && len(vals) > 0 {
		return strings.TrimSpace(vals[0]), true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(token), true
}
