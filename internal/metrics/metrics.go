package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/abekov/accountd/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Credential lifecycle

	TokensIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "tokens_issued_total",
		Help:      "One-time tokens issued, by kind.",
	}, []string{"kind"})

	TokenConfirmationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "token_confirmations_total",
		Help:      "One-time token confirmation attempts, by kind and outcome.",
	}, []string{"kind", "outcome"})

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "logins_total",
		Help:      "Login attempts, by method and outcome.",
	}, []string{"method", "outcome"})

	// Delivery queue

	DeliveriesEnqueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "deliveries_enqueued_total",
		Help:      "Messages enqueued for asynchronous delivery.",
	}, []string{"channel", "template"})

	DeliveryPickupLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "accounts",
		Name:      "delivery_pickup_latency_seconds",
		Help:      "Time from enqueue to a worker claiming the delivery.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	DeliverySendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "accounts",
		Name:      "delivery_send_duration_seconds",
		Help:      "Duration of the outbound send, by channel.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"channel"})

	DeliveriesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "accounts",
		Name:      "deliveries_in_flight",
		Help:      "Deliveries currently being sent by this worker.",
	})

	DeliveriesCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "deliveries_completed_total",
		Help:      "Deliveries finished, by outcome.",
	}, []string{"outcome"})

	// Janitor

	TokensPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "tokens_purged_total",
		Help:      "Expired token pairs cleared by the janitor.",
	})

	StaleDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "stale_deliveries_total",
		Help:      "Stale delivery claims handled by the janitor.",
	}, []string{"action"})

	FileValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "file_validations_total",
		Help:      "Upload validation checks, by outcome.",
	}, []string{"outcome"})

	JanitorCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "accounts",
		Name:      "janitor_cycle_duration_seconds",
		Help:      "Time taken for one janitor sweep.",
		Buckets:   prometheus.DefBuckets,
	})

	// Worker lifecycle

	WorkerStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "accounts",
		Name:      "worker_start_time_seconds",
		Help:      "Unix timestamp when the worker started.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "accounts",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		TokensIssuedTotal,
		TokenConfirmationsTotal,
		LoginsTotal,
		DeliveriesEnqueuedTotal,
		DeliveryPickupLatency,
		DeliverySendDuration,
		DeliveriesInFlight,
		DeliveriesCompletedTotal,
		TokensPurgedTotal,
		StaleDeliveriesTotal,
		FileValidationsTotal,
		JanitorCycleDuration,
		WorkerStartTime,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer serves Prometheus metrics plus liveness/readiness probes on a
// port separate from the API.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, result)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
