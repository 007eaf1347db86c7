package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seantiz/surveyd/internal/model"
)

const unmatched = "unmatched"

// Submission outcomes recorded by surveyd_http_submissions_total.
const (
	outcomeAccepted    = "accepted"
	outcomeInvalidBody = "invalid_body"
	outcomeNotActive   = "not_active"
	outcomeRateLimited = "rate_limited"
	outcomeError       = "error"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveyd_http_requests_total",
			Help: "Total number of HTTP requests by route pattern.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surveyd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds. graceful_shutdown includes the drain.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveyd_http_submissions_total",
			Help: "Query submissions received over HTTP, by query type and outcome.",
		},
		[]string{"query_type", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpSubmissions)

	for _, qt := range model.QueryTypes {
		for _, o := range []string{outcomeAccepted, outcomeInvalidBody, outcomeNotActive, outcomeRateLimited} {
			httpSubmissions.WithLabelValues(qt, o)
		}
	}
}

// recordSubmission counts one submission attempt for queryType.
func recordSubmission(queryType, outcome string) {
	httpSubmissions.WithLabelValues(queryType, outcome).Inc()
}

// metricsMiddleware records request count and duration keyed by the chi route
// pattern, so job ids in paths do not create new series.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		path := unmatched
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// metricsHandler returns the Prometheus metrics handler.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
