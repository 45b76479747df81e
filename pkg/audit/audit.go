// Package audit records the outcome of every second-factor verification.
//
// Events are written after the failover decision has been made. Recording
// is best-effort: a failing store is logged by the caller but never changes
// whether a verification succeeded.
package audit

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// ErrConflict is returned when an event with the given ID already exists.
var ErrConflict = errors.New("audit event already exists")

// Event is one verification attempt as seen by the gateway.
type Event struct {
	ID        string
	Subject   string
	TenantID  string
	RequestID string

	// Status is a failover.Status label ("success", "rejected", ...).
	Status string

	// Server is the accepting server, empty on failure.
	Server string

	// Contacted is the number of RADIUS servers the attempt reached.
	Contacted int

	CreatedAt time.Time
}

// ListOptions filters and pages List results. Events are always returned
// newest first.
type ListOptions struct {
	Subject  string    // required
	TenantID string    // optional; empty matches any tenant
	Before   time.Time // optional cursor: only events created strictly before
	Limit    int       // default 20, max 100
}

// Normalize applies the default and maximum limit.
func (o *ListOptions) Normalize() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
}

// EventList is a page of events.
type EventList struct {
	Events  []Event
	HasMore bool
}

// Store persists and lists audit events.
type Store interface {
	// Record persists a single event. Returns ErrConflict on duplicate ID.
	Record(ctx context.Context, ev Event) error

	// List returns events for one subject, newest first.
	List(ctx context.Context, opts ListOptions) (*EventList, error)

	// HealthCheck verifies the store is usable.
	HealthCheck(ctx context.Context) error

	// Close releases resources.
	Close() error
}

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idPrefix = "mfa_"
)

// NewEventID generates an event ID: "mfa_" followed by 24 random
// alphanumeric characters.
func NewEventID() string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, idLength)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return idPrefix + string(b)
}
