// Package metrics holds the Prometheus collectors of the storefront
// processes on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "comprafacil"

var (
	Registry = prometheus.NewRegistry()

	reconcilePasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "passes_total",
			Help:      "Reconciliation passes by source and result.",
		},
		[]string{"source", "result"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "pass_duration_seconds",
			Help:      "Duration of reconciliation passes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"source"},
	)

	malformedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "malformed_rows_total",
			Help:      "Order rows skipped because they could not be decoded.",
		},
		[]string{"source"},
	)

	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "events_total",
			Help:      "Status change events submitted to the coordinator by outcome.",
		},
		[]string{"source", "outcome"},
	)

	feedReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Change feed subscriptions re-established after a loss.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications handed to sinks by sink and result.",
		},
		[]string{"sink", "result"},
	)

	cartOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Cart operations by name and result.",
		},
		[]string{"op", "result"},
	)

	taskRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "task_runs_total",
			Help:      "Background task invocations by task and result.",
		},
		[]string{"task", "result"},
	)

	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "task_duration_seconds",
			Help:      "Duration of background task invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"task"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Local API requests handled.",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		reconcilePasses,
		reconcileDuration,
		malformedRows,
		events,
		feedReconnects,
		notifications,
		cartOps,
		taskRuns,
		taskDuration,
		httpRequests,
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordPass(source, result string, d time.Duration) {
	reconcilePasses.WithLabelValues(source, result).Inc()
	reconcileDuration.WithLabelValues(source).Observe(d.Seconds())
}

func RecordMalformedRow(source string) {
	malformedRows.WithLabelValues(source).Inc()
}

func RecordEvent(source string, applied bool) {
	outcome := "duplicate"
	if applied {
		outcome = "applied"
	}
	events.WithLabelValues(source, outcome).Inc()
}

func RecordFeedReconnect() {
	feedReconnects.Inc()
}

func RecordNotification(sink string, err error) {
	notifications.WithLabelValues(sink, result(err)).Inc()
}

func RecordCartOp(op string, err error) {
	cartOps.WithLabelValues(op, result(err)).Inc()
}

func RecordTaskRun(task, res string, d time.Duration) {
	taskRuns.WithLabelValues(task, res).Inc()
	taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// InstrumentHandler counts requests by chi route pattern so path
// parameters do not explode label cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
