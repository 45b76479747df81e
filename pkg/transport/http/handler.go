// Package http serves the radiusmfa API over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Halvra/cas/pkg/api"
	"github.com/Halvra/cas/pkg/audit"
	"github.com/Halvra/cas/pkg/auth"
	"github.com/Halvra/cas/pkg/mfa"
	"github.com/Halvra/cas/pkg/transport"
)

// Verifier is the MFA capability the handler exposes. *mfa.Service
// satisfies it.
type Verifier interface {
	Verify(ctx context.Context, principal *auth.Identity, token string) (*mfa.Verification, error)
	Ping(ctx context.Context) bool
	Servers() []string
	Events(ctx context.Context, principal *auth.Identity, limit int, before time.Time) (*audit.EventList, error)
	HasAudit() bool
}

// DefaultMaxBodySize bounds request bodies. A verify body is a few bytes.
const DefaultMaxBodySize = 64 << 10

// Handler routes the API endpoints.
type Handler struct {
	svc         Verifier
	mux         *http.ServeMux
	maxBodySize int64
	authMW      func(http.Handler) http.Handler
	metricsPath string
	metrics     http.Handler
	root        http.Handler
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithAuth wraps the API routes in a first-factor authentication
// middleware, typically auth.Middleware.
func WithAuth(mw func(http.Handler) http.Handler) HandlerOption {
	return func(h *Handler) { h.authMW = mw }
}

// WithMetrics serves h at path.
func WithMetrics(path string, h http.Handler) HandlerOption {
	return func(hd *Handler) {
		hd.metricsPath = path
		hd.metrics = h
	}
}

// WithHandlerMaxBodySize sets the maximum request body size.
func WithHandlerMaxBodySize(n int64) HandlerOption {
	return func(h *Handler) { h.maxBodySize = n }
}

// NewHandler creates the API handler.
//
// Routes:
//
//	POST /v1/mfa/verify  verify the caller's token
//	GET  /v1/mfa/events  the caller's audit trail (only with an audit store)
//	GET  /healthz        liveness, always 200
//	GET  /readyz         200 when any RADIUS server answers, else 503
func NewHandler(svc Verifier, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:         svc,
		mux:         http.NewServeMux(),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.mux.HandleFunc("POST /v1/mfa/verify", h.handleVerify)
	if svc.HasAudit() {
		h.mux.HandleFunc("GET /v1/mfa/events", h.handleListEvents)
	}
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.HandleFunc("GET /readyz", h.handleReady)
	if h.metrics != nil && h.metricsPath != "" {
		h.mux.Handle("GET "+h.metricsPath, h.metrics)
	}

	h.root = h.mux
	if h.authMW != nil {
		h.root = h.authMW(h.mux)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// handleVerify handles POST /v1/mfa/verify.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req api.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", h.maxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "invalid JSON"))
		return
	}
	if apiErr := req.Validate(); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	v, err := h.svc.Verify(r.Context(), auth.IdentityFromContext(r.Context()), req.Token)
	if err != nil {
		if errors.Is(err, mfa.ErrAuthenticationFailed) {
			transport.WriteAPIError(w, api.NewAuthenticationFailedError())
			return
		}
		transport.WriteAPIError(w, api.NewServerError("verification failed"))
		return
	}

	transport.WriteJSON(w, http.StatusOK, api.Verification{
		Object:     "mfa.verification",
		Subject:    v.Subject,
		Server:     v.Server,
		Attributes: v.Attributes,
	})
}

// handleListEvents handles GET /v1/mfa/events.
func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, before, apiErr := parseEventQuery(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	principal := auth.IdentityFromContext(r.Context())
	if principal == nil {
		transport.WriteAPIError(w, api.NewUnauthorizedError("authentication required"))
		return
	}

	list, err := h.svc.Events(r.Context(), principal, limit, before)
	if err != nil {
		transport.WriteAPIError(w, api.NewServerError("listing audit events failed"))
		return
	}

	out := api.EventList{Object: "list", Data: []api.Event{}}
	if list != nil {
		out.HasMore = list.HasMore
		for _, ev := range list.Events {
			out.Data = append(out.Data, api.Event{
				ID:        ev.ID,
				Subject:   ev.Subject,
				Status:    ev.Status,
				Server:    ev.Server,
				Contacted: ev.Contacted,
				CreatedAt: ev.CreatedAt,
			})
		}
	}
	transport.WriteJSON(w, http.StatusOK, out)
}

// parseEventQuery reads limit and before from the query string.
func parseEventQuery(r *http.Request) (int, time.Time, *api.APIError) {
	q := r.URL.Query()

	var limit int
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return 0, time.Time{}, api.NewInvalidRequestError("limit", "limit must be a positive integer")
		}
		limit = n
	}

	var before time.Time
	if s := q.Get("before"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, time.Time{}, api.NewInvalidRequestError("before", "before must be an RFC 3339 timestamp")
		}
		before = t
	}
	return limit, before, nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := api.Readiness{Status: "ok", Servers: h.svc.Servers()}
	if ready.Servers == nil {
		ready.Servers = []string{}
	}
	if !h.svc.Ping(r.Context()) {
		ready.Status = "unavailable"
		transport.WriteJSON(w, http.StatusServiceUnavailable, ready)
		return
	}
	transport.WriteJSON(w, http.StatusOK, ready)
}
