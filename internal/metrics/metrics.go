package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/sultan-shell/internal/health"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Shell metrics

	DevicesLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sultan",
		Name:      "shell_devices_live",
		Help:      "Devices with a controller held in memory.",
	})

	NavigationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sultan",
		Name:      "shell_navigations_total",
		Help:      "Navigation requests, by target view and outcome.",
	}, []string{"view", "outcome"})

	StaleResponsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sultan",
		Name:      "shell_stale_responses_total",
		Help:      "Screen loads discarded because the screen changed underneath them.",
	}, []string{"view"})

	SessionsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sultan",
		Name:      "shell_sessions_expired_total",
		Help:      "Sessions ended because the customer API rejected the token.",
	})

	ScreenLoadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sultan",
		Name:      "screen_load_duration_seconds",
		Help:      "Time to assemble a screen's data.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"view"})

	// Collaborator metrics

	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sultan",
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of calls to the customer API and the generative model.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"upstream", "operation", "status"})

	// Janitor metrics

	JanitorPurgedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sultan",
		Name:      "janitor_purged_total",
		Help:      "Rows removed by the storage janitor.",
	}, []string{"kind"})

	JanitorCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sultan",
		Name:      "janitor_cycle_duration_seconds",
		Help:      "Time taken for one janitor cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sultan",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sultan",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		DevicesLive,
		NavigationsTotal,
		StaleResponsesTotal,
		SessionsExpiredTotal,
		ScreenLoadDuration,
		UpstreamRequestDuration,
		JanitorPurgedTotal,
		JanitorCycleDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer serves /metrics and the health checks on a separate port.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, res health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if res.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(res)
}
