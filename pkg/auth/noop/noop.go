// Package noop provides an authenticator that accepts every request.
// Used for development and behind a trusted proxy that has already
// identified the user.
package noop

import (
	"context"
	"net/http"
	"strings"

	"github.com/Halvra/cas/pkg/auth"
)

// Authenticator always returns Yes. When UserHeader is set and present on
// the request, its value becomes the subject; otherwise the identity is
// anonymous.
type Authenticator struct {
	UserHeader string
}

func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	subject := auth.AnonymousSubject
	if a.UserHeader != "" {
		if v := strings.TrimSpace(r.Header.Get(a.UserHeader)); v != "" {
			subject = v
		}
	}
	return auth.Result{
		Decision: auth.Yes,
		Identity: &auth.Identity{Subject: subject},
	}
}
