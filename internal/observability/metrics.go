package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	paymentsProcessed  *prometheus.CounterVec
	paymentsFailed     *prometheus.CounterVec
	allocationsTotal   prometheus.Counter
	journalPostSkipped prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cargoline_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cargoline_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	paymentsProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cargoline_payments_processed_total",
		Help: "Successfully processed payments by transaction type.",
	}, []string{"type"})
	paymentsFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cargoline_payments_failed_total",
		Help: "Failed payment attempts by transaction type.",
	}, []string{"type"})
	allocations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cargoline_payment_allocations_total",
		Help: "Allocation rows created from overpayments.",
	})
	journalSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cargoline_journal_posts_skipped_total",
		Help: "Journal entries skipped because a chart account was missing.",
	})
	registry.MustRegister(requests, duration, paymentsProcessed, paymentsFailed, allocations, journalSkipped)
	return &Metrics{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:      requests,
		requestDuration:    duration,
		paymentsProcessed:  paymentsProcessed,
		paymentsFailed:     paymentsFailed,
		allocationsTotal:   allocations,
		journalPostSkipped: journalSkipped,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// PaymentProcessed records a completed payment.
func (m *Metrics) PaymentProcessed(paymentType string, allocations int) {
	if m == nil {
		return
	}
	m.paymentsProcessed.WithLabelValues(paymentType).Inc()
	if allocations > 0 {
		m.allocationsTotal.Add(float64(allocations))
	}
}

// PaymentFailed records a rejected or rolled-back payment.
func (m *Metrics) PaymentFailed(paymentType string) {
	if m == nil {
		return
	}
	m.paymentsFailed.WithLabelValues(paymentType).Inc()
}

// JournalPostSkipped records a best-effort journal posting that was dropped.
func (m *Metrics) JournalPostSkipped() {
	if m == nil {
		return
	}
	m.journalPostSkipped.Inc()
}

// Middleware records metrics for each HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
