// Package mfa verifies a principal's one-time token against the configured
// RADIUS servers.
//
// The Service is the boundary between the HTTP layer and the failover core:
// it takes the first-factor principal established by pkg/auth, uses its
// subject as the RADIUS username, records the outcome in the audit trail,
// and reduces every failure to ErrAuthenticationFailed.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Halvra/cas/pkg/audit"
	"github.com/Halvra/cas/pkg/auth"
	"github.com/Halvra/cas/pkg/debug"
	"github.com/Halvra/cas/pkg/failover"
	"github.com/Halvra/cas/pkg/observability"
	"github.com/Halvra/cas/pkg/transport"
)

var (
	// ErrAuthenticationFailed wraps every failure kind of a verification.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrMissingPrincipal is returned when no first-factor identity is present.
	ErrMissingPrincipal = errors.New("missing principal")

	// ErrMissingToken is returned for an empty token.
	ErrMissingToken = errors.New("missing token")
)

// Orchestrator is the failover capability the service drives.
// *failover.Authenticator satisfies it.
type Orchestrator interface {
	Authenticate(ctx context.Context, username, secret string) failover.Result
	Probe(ctx context.Context) bool
	Servers() []string
}

// Verification is a successful second-factor check.
type Verification struct {
	Subject    string
	Server     string
	Attributes map[string]any
}

// Service verifies tokens and answers liveness.
type Service struct {
	orch   Orchestrator
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAuditStore records every completed verification in store.
func WithAuditStore(store audit.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithLogger sets the logger used for audit failures and results.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service on top of orch.
func New(orch Orchestrator, opts ...Option) *Service {
	s := &Service{
		orch:   orch,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify checks token for principal. Missing input is rejected before any
// server is contacted. On failure the returned error wraps both
// ErrAuthenticationFailed and the failover sentinel for the status.
func (s *Service) Verify(ctx context.Context, principal *auth.Identity, token string) (*Verification, error) {
	if principal == nil || principal.Subject == "" || principal.RADIUSUsername() == "" {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, ErrMissingPrincipal)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, ErrMissingToken)
	}

	res := s.orch.Authenticate(ctx, principal.RADIUSUsername(), token)
	observability.RecordResult(res)

	requestID := transport.RequestIDFromContext(ctx)
	s.record(ctx, principal, requestID, res)

	if !res.Success() {
		s.logger.Info("second factor rejected",
			"request_id", requestID,
			"subject", principal.Subject,
			"username", principal.RADIUSUsername(),
			"status", res.Status.String(),
			"contacted", res.Contacted,
		)
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, res.Err())
	}

	debug.Log("failover", "second factor accepted",
		"request_id", requestID,
		"subject", principal.Subject,
		"server", res.Server,
	)
	return &Verification{
		Subject:    principal.Subject,
		Server:     res.Server,
		Attributes: res.Attributes,
	}, nil
}

// Ping reports whether any RADIUS server answers, and publishes the answer
// as the probe gauge.
func (s *Service) Ping(ctx context.Context) bool {
	ok := s.orch.Probe(ctx)
	observability.SetProbeReachable(ok)
	return ok
}

// Servers returns the configured server names in failover order.
func (s *Service) Servers() []string {
	return s.orch.Servers()
}

// Events lists the principal's own audit events. It returns nil, nil when
// no audit store is configured.
func (s *Service) Events(ctx context.Context, principal *auth.Identity, limit int, before time.Time) (*audit.EventList, error) {
	if s.store == nil {
		return nil, nil
	}
	if principal == nil || principal.Subject == "" {
		return nil, ErrMissingPrincipal
	}
	return s.store.List(ctx, audit.ListOptions{
		Subject:  principal.Subject,
		TenantID: principal.TenantID,
		Before:   before,
		Limit:    limit,
	})
}

// HasAudit reports whether an audit store is configured.
func (s *Service) HasAudit() bool {
	return s.store != nil
}

// record writes the audit event. Failures are logged and never change the
// verification result.
func (s *Service) record(ctx context.Context, principal *auth.Identity, requestID string, res failover.Result) {
	if s.store == nil {
		return
	}

	ev := audit.Event{
		ID:        audit.NewEventID(),
		Subject:   principal.Subject,
		TenantID:  principal.TenantID,
		RequestID: requestID,
		Status:    res.Status.String(),
		Server:    res.Server,
		Contacted: res.Contacted,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Record(ctx, ev); err != nil {
		s.logger.Warn("recording audit event failed",
			"request_id", requestID,
			"event_id", ev.ID,
			"error", err,
		)
		return
	}
	debug.Log("audit", "event recorded", "event_id", ev.ID, "status", ev.Status)
}
