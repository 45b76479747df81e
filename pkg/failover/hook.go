package failover

import (
	"context"
	"time"
)

// Op names the operation that produced an Event.
type Op string

const (
	OpAuthenticate Op = "authenticate"
	OpProbe        Op = "probe"
)

// Decision is what the iteration did after an attempt.
type Decision string

const (
	// Stop means the call returned after this attempt.
	Stop Decision = "stop"

	// Continue means the next server was tried.
	Continue Decision = "continue"
)

// Event describes one per-server decision point. It never carries the
// secret.
type Event struct {
	Op       Op
	Index    int // position of the server in the configured list
	Server   string
	Outcome  Outcome
	Decision Decision
	Elapsed  time.Duration
}

// Hook observes per-server decisions. It is called synchronously from the
// iteration, so it should return quickly.
type Hook func(ctx context.Context, ev Event)

// Option configures Authenticate, Probe and New.
type Option func(*options)

type options struct {
	hook Hook
}

// WithHook installs an observability hook. A nil hook is ignored.
func WithHook(h Hook) Option {
	return func(o *options) {
		if h != nil {
			o.hook = h
		}
	}
}

// WithHooks fans out each event to every non-nil hook, in order.
func WithHooks(hooks ...Hook) Option {
	var hs []Hook
	for _, h := range hooks {
		if h != nil {
			hs = append(hs, h)
		}
	}
	return WithHook(func(ctx context.Context, ev Event) {
		for _, h := range hs {
			h(ctx, ev)
		}
	})
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) emit(ctx context.Context, ev Event) {
	if o.hook != nil {
		o.hook(ctx, ev)
	}
}
