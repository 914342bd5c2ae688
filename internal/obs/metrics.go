package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	tokenValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_validations_total",
			Help: "Capability token validations by outcome.",
		},
		[]string{"outcome"},
	)

	invitationsDispatchedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invitations_dispatched_total",
		Help: "Vendor invitations dispatched.",
	})

	invitationsRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invitations_revoked_total",
		Help: "Vendor invitations revoked.",
	})

	initOnce sync.Once
)

// Init registers the service metrics with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			tokenValidationsTotal,
			invitationsDispatchedTotal,
			invitationsRevokedTotal,
		)
	})
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveValidation counts one token validation attempt by outcome
// (validated, rejected, expired, revoked, rate_limited).
func ObserveValidation(outcome string) {
	tokenValidationsTotal.WithLabelValues(outcome).Inc()
}

// CountDispatched counts one dispatched invitation.
func CountDispatched() { invitationsDispatchedTotal.Inc() }

// CountRevoked counts one revoked invitation.
func CountRevoked() { invitationsRevokedTotal.Inc() }

// Instrument wraps a handler with request rate, latency and in-flight metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
