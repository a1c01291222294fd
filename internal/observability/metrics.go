package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cropledger"

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	movements       *prometheus.CounterVec
	oversells       prometheus.Counter
	postings        *prometheus.CounterVec
	repairs         prometheus.Counter
}

// NewMetrics initialises the registry with HTTP and domain collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration per route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_movements_total",
		Help:      "Committed stock movements by outcome.",
	}, []string{"outcome"})
	oversells := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_oversell_rejections_total",
		Help:      "Outbound movements rejected for insufficient stock.",
	})
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_postings_total",
		Help:      "Committed ledger entries by transaction type.",
	}, []string{"type"})
	repairs := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_balance_repairs_total",
		Help:      "Parties whose balance snapshots were rebuilt with changes.",
	})
	registry.MustRegister(requests, duration, movements, oversells, postings, repairs)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		movements:       movements,
		oversells:       oversells,
		postings:        postings,
		repairs:         repairs,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// InventoryMovement counts a committed movement.
func (m *Metrics) InventoryMovement(outcome string) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(outcome).Inc()
}

// InventoryOversell counts a rejected outbound movement.
func (m *Metrics) InventoryOversell() {
	if m == nil {
		return
	}
	m.oversells.Inc()
}

// LedgerPosting counts a committed ledger entry.
func (m *Metrics) LedgerPosting(transactionType string) {
	if m == nil {
		return
	}
	m.postings.WithLabelValues(transactionType).Inc()
}

// LedgerRepair counts a recompute that changed stored balances.
func (m *Metrics) LedgerRepair() {
	if m == nil {
		return
	}
	m.repairs.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
