// Package metrics defines and registers all custom Prometheus metrics for the
// drone weather orchestrator. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// init (promauto) and exposed by the HTTP API under /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "droneweather"

// ── Bus metrics ───────────────────────────────────────────────────────────────

// EventsPublishedTotal counts events accepted by the bus.
// Label:
//   - type: the event type (e.g. "FETCH_WEATHER")
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of events published on the bus.",
	},
	[]string{"type"},
)

// HandlerErrorsTotal counts handler invocations that returned an error or panicked.
// Label:
//   - type: the event type the handler was invoked for
var HandlerErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_errors_total",
		Help:      "Total number of failed handler invocations.",
	},
	[]string{"type"},
)

// HandlerDuration measures a handler invocation from start to return,
// including upstream calls and the refresh delay.
var HandlerDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "handler_duration_seconds",
		Help:      "Duration of a single handler invocation.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	},
	[]string{"type"},
)

// HandlersInFlight is the number of handler invocations currently running.
var HandlersInFlight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "handlers_in_flight",
		Help:      "Current number of running handler invocations.",
	},
)

// ── Upstream metrics ──────────────────────────────────────────────────────────

// APICallsTotal counts upstream calls made by the orchestrator.
// Labels:
//   - call: "locate", "weather" or "drone"
//   - outcome: "ok", "empty" or "error"
var APICallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_calls_total",
		Help:      "Total number of upstream API calls, by call and outcome.",
	},
	[]string{"call", "outcome"},
)

// APICallDuration measures upstream call latency.
var APICallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_call_duration_seconds",
		Help:      "Duration of upstream API calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"call"},
)

// APIErrorsTotal counts API_ERROR emissions.
// Label:
//   - code: upstream status code, or "none"
var APIErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_errors_total",
		Help:      "Total number of API_ERROR events emitted, by upstream code.",
	},
	[]string{"code"},
)

// RefreshCyclesTotal counts completed refresh delays (WEATHER_DATA_RECEIVED → FETCH_DRONE_DATA).
var RefreshCyclesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_cycles_total",
		Help:      "Total number of drone refreshes scheduled after weather data arrived.",
	},
)

// ── Cache metrics ─────────────────────────────────────────────────────────────

// LocationCacheTotal counts location cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var LocationCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "location_cache_total",
		Help:      "Total number of location cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// StreamClients is the number of connected WebSocket clients.
var StreamClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_clients",
		Help:      "Current number of connected event stream clients.",
	},
)
