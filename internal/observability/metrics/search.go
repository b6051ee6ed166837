package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

// SearchMetrics owns the service registry and implements the retrieval
// observer callbacks, so the core records outcomes without importing
// prometheus.
type SearchMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrieveTotal    *prometheus.CounterVec
	retrieveDuration *prometheus.HistogramVec
	resultCount      *prometheus.HistogramVec
	stageDuration    *prometheus.HistogramVec
	cacheHitsTotal   *prometheus.CounterVec
}

func NewSearchMetrics(service string) *SearchMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wss",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wss",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wss",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrieveTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wss",
			Subsystem: "search",
			Name:      "retrieve_total",
			Help:      "Total retrieval calls by mode and outcome.",
		},
		[]string{"service", "mode", "status"},
	)
	retrieveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wss",
			Subsystem: "search",
			Name:      "retrieve_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "mode"},
	)
	resultCount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wss",
			Subsystem: "search",
			Name:      "result_count",
			Help:      "Distribution of returned results per retrieval call.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "mode"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wss",
			Subsystem: "search",
			Name:      "stage_duration_seconds",
			Help:      "Per-method search stage duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "status"},
	)
	cacheHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wss",
			Subsystem: "search",
			Name:      "cache_hits_total",
			Help:      "Total retrieval calls answered from the result cache.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrieveTotal,
		retrieveDuration,
		resultCount,
		stageDuration,
		cacheHitsTotal,
	)

	return &SearchMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		retrieveTotal:    retrieveTotal,
		retrieveDuration: retrieveDuration,
		resultCount:      resultCount,
		stageDuration:    stageDuration,
		cacheHitsTotal:   cacheHitsTotal,
	}
}

func (m *SearchMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *SearchMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/v1/workspaces/") {
		return path
	}
	rest := strings.TrimPrefix(path, "/v1/workspaces/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) >= 3 && parts[1] == "links":
		return "/v1/workspaces/{workspace_id}/links/{target_id}"
	case len(parts) >= 2 && parts[1] == "links":
		return "/v1/workspaces/{workspace_id}/links"
	default:
		return "/v1/workspaces/{workspace_id}"
	}
}

// Observer returns the retrieval observer bound to one service label.
func (m *SearchMetrics) Observer(service string) *RetrieveRecorder {
	return &RetrieveRecorder{metrics: m, service: service}
}

type RetrieveRecorder struct {
	metrics *SearchMetrics
	service string
}

func (r *RetrieveRecorder) RetrieveFinished(mode domain.SearchMode, degraded bool, resultCount int, duration time.Duration, err error) {
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case degraded:
		status = "degraded"
	}

	r.metrics.retrieveTotal.WithLabelValues(r.service, string(mode), status).Inc()
	r.metrics.retrieveDuration.WithLabelValues(r.service, string(mode)).Observe(duration.Seconds())
	if err == nil {
		r.metrics.resultCount.WithLabelValues(r.service, string(mode)).Observe(float64(resultCount))
	}
}

func (r *RetrieveRecorder) SearchStageFinished(method string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.stageDuration.WithLabelValues(r.service, method, status).Observe(duration.Seconds())
}

func (r *RetrieveRecorder) CacheHit() {
	r.metrics.cacheHitsTotal.WithLabelValues(r.service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
