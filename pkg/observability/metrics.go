// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the radiusmfa gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// RADIUSBuckets defines histogram buckets suited for RADIUS round trips,
// from a fast LAN answer up to several exhausted retries.
var RADIUSBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiusmfa_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radiusmfa_request_duration_seconds",
			Help:    "Request duration",
			Buckets: RADIUSBuckets,
		},
		[]string{"method"},
	)

	// RADIUSAttemptsTotal counts per-server attempts by classified outcome.
	RADIUSAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiusmfa_radius_attempts_total",
			Help: "RADIUS server attempts",
		},
		[]string{"server", "outcome"},
	)

	// RADIUSAttemptDuration records per-server attempt latency, retries included.
	RADIUSAttemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radiusmfa_radius_attempt_duration_seconds",
			Help:    "RADIUS attempt latency",
			Buckets: RADIUSBuckets,
		},
		[]string{"server"},
	)

	// AuthenticationsTotal counts terminal failover results by status.
	AuthenticationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiusmfa_authentications_total",
			Help: "Second-factor verifications",
		},
		[]string{"status"},
	)

	// ProbeReachable is 1 when the last liveness probe saw an answering server.
	ProbeReachable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "radiusmfa_probe_reachable",
			Help: "Whether any RADIUS server answered the last probe",
		},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiusmfa_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RADIUSAttemptsTotal,
		RADIUSAttemptDuration,
		AuthenticationsTotal,
		ProbeReachable,
		RateLimitRejectedTotal,
	)
}

// SetProbeReachable records the result of a liveness probe.
func SetProbeReachable(ok bool) {
	if ok {
		ProbeReachable.Set(1)
		return
	}
	ProbeReachable.Set(0)
}
