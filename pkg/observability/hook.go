package observability

import (
	"context"

	"github.com/Halvra/cas/pkg/debug"
	"github.com/Halvra/cas/pkg/failover"
)

// Hook returns a failover hook that records per-server attempt metrics and
// emits a "failover" debug line for every decision point.
func Hook() failover.Hook {
	return func(ctx context.Context, ev failover.Event) {
		outcome := ev.Outcome.Kind.String()

		RADIUSAttemptsTotal.WithLabelValues(ev.Server, outcome).Inc()
		RADIUSAttemptDuration.WithLabelValues(ev.Server).Observe(ev.Elapsed.Seconds())

		attrs := []any{
			"op", string(ev.Op),
			"index", ev.Index,
			"server", ev.Server,
			"outcome", outcome,
			"decision", string(ev.Decision),
			"elapsed_ms", ev.Elapsed.Milliseconds(),
		}
		if ev.Outcome.Err != nil {
			attrs = append(attrs, "error", ev.Outcome.Err.Error())
		}
		debug.Log("failover", "server attempt", attrs...)
	}
}

// RecordResult counts a terminal authentication result.
func RecordResult(res failover.Result) {
	AuthenticationsTotal.WithLabelValues(res.Status.String()).Inc()
}
