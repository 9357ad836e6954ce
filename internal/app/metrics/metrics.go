// Package metrics exposes Prometheus collectors for the raffle engine.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "raffle_engine",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "raffle_engine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "raffle_engine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	roundTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "raffle_engine",
			Subsystem: "rounds",
			Name:      "transitions_total",
			Help:      "Round lifecycle transitions by resulting state.",
		},
		[]string{"state"},
	)

	ticketsSold = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "raffle_engine",
			Subsystem: "tickets",
			Name:      "sold_total",
			Help:      "Total number of tickets sold.",
		},
	)

	payouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "raffle_engine",
			Subsystem: "escrow",
			Name:      "payouts_total",
			Help:      "Completed payouts by kind (prize, profit, refund).",
		},
		[]string{"kind"},
	)

	escrowHeld = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "raffle_engine",
			Subsystem: "escrow",
			Name:      "held_units",
			Help:      "Value currently escrowed for the active round.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		roundTransitions,
		ticketsSold,
		payouts,
		escrowHeld,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, r.URL.Path).Observe(duration.Seconds())
	})
}

// RecordTransition counts a round entering the given state.
func RecordTransition(state string) {
	roundTransitions.WithLabelValues(state).Inc()
}

// RecordTicketSold counts a successful ticket sale.
func RecordTicketSold() {
	ticketsSold.Inc()
}

// RecordPayout counts a completed prize, profit, or refund payout.
func RecordPayout(kind string) {
	payouts.WithLabelValues(kind).Inc()
}

// SetEscrowHeld reports the value currently escrowed.
func SetEscrowHeld(units int64) {
	escrowHeld.Set(float64(units))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
