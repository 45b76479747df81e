// Package memory provides an in-memory audit.Store for tests and
// single-instance deployments. Events are lost when the process restarts;
// the oldest event is evicted once the size limit is reached.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/Halvra/cas/pkg/audit"
)

// Store is a bounded in-memory audit store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*list.Element
	order   *list.List // front = newest
	maxSize int        // 0 = unlimited
}

var _ audit.Store = (*Store)(nil)

// New creates a store holding at most maxSize events (0 = unlimited).
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// Record stores an event, evicting the oldest one when full.
func (s *Store) Record(_ context.Context, ev audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[ev.ID]; exists {
		return audit.ErrConflict
	}

	if s.maxSize > 0 && s.order.Len() >= s.maxSize {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(audit.Event).ID)
		}
	}

	s.entries[ev.ID] = s.order.PushFront(ev)
	return nil
}

// List returns the subject's events, newest first.
func (s *Store) List(_ context.Context, opts audit.ListOptions) (*audit.EventList, error) {
	opts.Normalize()

	s.mu.RLock()
	var matches []audit.Event
	for e := s.order.Front(); e != nil; e = e.Next() {
		ev := e.Value.(audit.Event)
		if ev.Subject != opts.Subject {
			continue
		}
		if opts.TenantID != "" && ev.TenantID != opts.TenantID {
			continue
		}
		if !opts.Before.IsZero() && !ev.CreatedAt.Before(opts.Before) {
			continue
		}
		matches = append(matches, ev)
	}
	s.mu.RUnlock()

	// Insertion order is close to creation order but callers may supply
	// their own timestamps.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	result := &audit.EventList{}
	if len(matches) > opts.Limit {
		result.HasMore = true
		matches = matches[:opts.Limit]
	}
	result.Events = matches
	return result, nil
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
