package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmwatch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llmwatch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llmwatch",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Detector metrics
	datapointsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmwatch",
			Subsystem: "detector",
			Name:      "datapoints_total",
			Help:      "Total number of metric datapoints folded into baselines",
		},
	)

	anomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmwatch",
			Subsystem: "detector",
			Name:      "anomalies_total",
			Help:      "Total number of anomalies raised",
		},
		[]string{"severity", "direction"},
	)

	patternsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmwatch",
			Subsystem: "detector",
			Name:      "patterns_total",
			Help:      "Total number of correlated anomaly patterns",
		},
		[]string{"pattern"},
	)

	metricsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llmwatch",
			Subsystem: "detector",
			Name:      "metrics_tracked",
			Help:      "Number of metric names with an active baseline window",
		},
	)

	windowsReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llmwatch",
			Subsystem: "detector",
			Name:      "windows_ready",
			Help:      "Number of baseline windows with enough history for detection",
		},
	)

	// LLM gateway metrics
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmwatch",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total number of LLM completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llmwatch",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "LLM completion duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmwatch",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total tokens processed by the gateway",
		},
		[]string{"kind"},
	)

	llmCostTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmwatch",
			Subsystem: "llm",
			Name:      "cost_dollars_total",
			Help:      "Accumulated estimated completion cost in dollars",
		},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmwatch",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups",
		},
		[]string{"result"},
	)

	// Incident metrics
	incidentsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmwatch",
			Subsystem: "incident",
			Name:      "created_total",
			Help:      "Total number of incidents created",
		},
		[]string{"severity", "pattern"},
	)

	incidentsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llmwatch",
			Subsystem: "incident",
			Name:      "open_count",
			Help:      "Number of currently open incidents",
		},
	)

	// Telemetry forwarder metrics
	telemetrySubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmwatch",
			Subsystem: "telemetry",
			Name:      "submissions_total",
			Help:      "Total number of telemetry batch submissions",
		},
		[]string{"status"},
	)

	telemetryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llmwatch",
			Subsystem: "telemetry",
			Name:      "queue_depth",
			Help:      "Number of metric series waiting to be flushed",
		},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llmwatch",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "table"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		// Get route pattern from chi
		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDatapoint counts one observed metric datapoint
func RecordDatapoint() {
	datapointsTotal.Inc()
}

// RecordAnomaly counts a raised anomaly by severity and direction
func RecordAnomaly(severity, direction string) {
	anomaliesTotal.WithLabelValues(severity, direction).Inc()
}

// RecordPattern counts a correlated pattern by id
func RecordPattern(pattern string) {
	patternsTotal.WithLabelValues(pattern).Inc()
}

// SetMetricsTracked sets the gauge for tracked metric names
func SetMetricsTracked(count float64) {
	metricsTracked.Set(count)
}

// SetWindowsReady sets the gauge for windows with an established baseline
func SetWindowsReady(count float64) {
	windowsReady.Set(count)
}

// RecordLLMRequest records an LLM completion request
func RecordLLMRequest(provider, model, status string, duration time.Duration) {
	llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	llmRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTokens counts gateway tokens by kind (prompt or response)
func RecordTokens(kind string, count float64) {
	llmTokensTotal.WithLabelValues(kind).Add(count)
}

// RecordCost accumulates estimated completion cost
func RecordCost(dollars float64) {
	llmCostTotal.Add(dollars)
}

// RecordCacheLookup counts a response cache lookup (hit or miss)
func RecordCacheLookup(result string) {
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordIncidentCreated counts a created incident
func RecordIncidentCreated(severity, pattern string) {
	incidentsCreatedTotal.WithLabelValues(severity, pattern).Inc()
}

// SetOpenIncidents sets the gauge for open incidents
func SetOpenIncidents(count float64) {
	incidentsOpen.Set(count)
}

// RecordTelemetrySubmission counts a telemetry batch submission
func RecordTelemetrySubmission(status string) {
	telemetrySubmissionsTotal.WithLabelValues(status).Inc()
}

// SetTelemetryQueueDepth sets the gauge for queued telemetry series
func SetTelemetryQueueDepth(depth float64) {
	telemetryQueueDepth.Set(depth)
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation, table string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}
