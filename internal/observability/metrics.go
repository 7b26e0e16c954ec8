package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"timetracker/internal/core"
)

var (
	ledgerOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timetracker",
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Ledger operations by operation and outcome (ok or error kind).",
	}, []string{"op", "outcome"})
	ledgerLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "timetracker",
		Subsystem: "ledger",
		Name:      "operation_duration_seconds",
		Help:      "Latency of ledger operations including the store round trip.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
	publishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timetracker",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Activity change events that could not be published.",
	})
	mirroredDays = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timetracker",
		Subsystem: "mirror",
		Name:      "days_total",
		Help:      "Days copied to the mirror by outcome.",
	}, []string{"outcome"})
	lastMirrored = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "timetracker",
		Subsystem: "mirror",
		Name:      "last_mirrored_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful mirror write.",
	})
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timetracker",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method and status class.",
	}, []string{"method", "status"})
	httpLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "timetracker",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	})
	rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timetracker",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
	suspicious = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timetracker",
		Subsystem: "http",
		Name:      "suspicious_requests_total",
		Help:      "Requests matching a known attack pattern.",
	})
)

func init() {
	prometheus.MustRegister(ledgerOps, ledgerLatency, publishFailures, mirroredDays, lastMirrored,
		httpRequests, httpLatency, rateLimited, suspicious)
}

// Outcome returns "ok" for nil and the error kind otherwise.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return core.ErrorKind(err)
}

// ObserveLedgerOp records one ledger operation started at start.
func ObserveLedgerOp(op string, start time.Time, err error) {
	ledgerOps.WithLabelValues(op, Outcome(err)).Inc()
	ledgerLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func RecordPublishFailure() {
	publishFailures.Inc()
}

// RecordMirror counts a mirrored day and, on success, moves the watermark.
func RecordMirror(ts time.Time, err error) {
	mirroredDays.WithLabelValues(Outcome(err)).Inc()
	if err == nil && !ts.IsZero() {
		lastMirrored.Set(float64(ts.Unix()))
	}
}

// ObserveHTTPRequest records a finished request. Status codes are grouped by
// class to keep cardinality low.
func ObserveHTTPRequest(method string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, strconv.Itoa(status/100)+"xx").Inc()
	httpLatency.Observe(d.Seconds())
}

func RecordRateLimited() {
	rateLimited.Inc()
}

func RecordSuspicious() {
	suspicious.Inc()
}
