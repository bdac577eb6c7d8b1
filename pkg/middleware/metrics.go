package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// statusRecorder captures the response status for labeling.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets WebSocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("middleware: response writer does not support hijacking")
	}
	return h.Hijack()
}

// Metrics returns middleware that records request counts and latency per
// path and status into the given registry.
func Metrics(registry prometheus.Registerer) func(http.Handler) http.Handler {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	requestsTotal := factory.NewCounterVec(prometheus.CounterOpts{
		Name: "studiolink_http_requests_total",
		Help: "Total number of HTTP requests by path and status.",
	}, []string{"path", "status"})

	requestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studiolink_http_request_duration_seconds",
		Help:    "HTTP request latency by path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			requestDuration.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
			requestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Inc()
		})
	}
}
