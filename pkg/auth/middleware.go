package auth

import (
	"log/slog"
	"net/http"

	"github.com/Halvra/cas/pkg/api"
	"github.com/Halvra/cas/pkg/debug"
	"github.com/Halvra/cas/pkg/observability"
	"github.com/Halvra/cas/pkg/transport"
)

// Middleware authenticates every request outside bypassEndpoints with chain
// and stores the resulting principal in the request context. A nil limiter
// disables rate limiting.
func Middleware(chain *Chain, limiter RateLimiter, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			requestID := transport.RequestIDFromContext(r.Context())
			result := chain.Authenticate(r.Context(), r)

			if result.Decision != Yes || result.Identity == nil {
				slog.Warn("authentication failed",
					"request_id", requestID,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"decision", result.Decision.String(),
					"error", result.Err,
				)
				transport.WriteAPIError(w, api.NewUnauthorizedError("authentication required"))
				return
			}

			debug.Log("auth", "authentication succeeded",
				"request_id", requestID,
				"subject", result.Identity.Subject,
				"username", result.Identity.Username,
				"tier", result.Identity.ServiceTier,
				"path", r.URL.Path,
			)

			if limiter != nil {
				if err := limiter.Allow(r.Context(), result.Identity); err != nil {
					tier := result.Identity.Tier()
					slog.Warn("rate limit exceeded",
						"request_id", requestID,
						"subject", result.Identity.Subject,
						"tier", tier,
					)
					observability.RateLimitRejectedTotal.WithLabelValues(tier).Inc()
					transport.WriteAPIError(w, api.NewTooManyRequestsError("rate limit exceeded"))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), result.Identity)))
		})
	}
}

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}
