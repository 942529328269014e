// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. Both
// services share one binary, so every series carries the serving process in
// the "service" label:
//
//   - service:  "simulation" or "management"
//   - method:   HTTP method verb (GET/POST/…)
//   - path:     the registered Gin route (e.g. /phishing/track/:id), or
//     "unmatched" when no route matched
//   - status:   numeric status code as a string (e.g. "200", "404")
//
// Raw URLs never become label values: the tracking endpoint is public and
// scanners would otherwise mint a new series per guessed id.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	// We intentionally omit status to keep latency histogram cardinality lower.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets, // suitable for general HTTP latency
		},
		[]string{"service", "method", "path"},
	)

	// httpInflight gauges the number of in-flight (currently processing) requests.
	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
		[]string{"service"},
	)

	// httpRespSize captures response sizes in bytes by method and route path.
	// Buckets are tuned for typical JSON API payload sizes.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_response_size_bytes",
			Help: "Size of HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10, // 200B..5KiB
				10 << 10, 25 << 10, 50 << 10, // 10..50KiB
				100 << 10, 250 << 10, 500 << 10, // 100..500KiB
				1 << 20, 2 << 20, 5 << 20, // 1..5MiB
			},
		},
		[]string{"service", "method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// unmatchedPath is the path label used when no route matched.
const unmatchedPath = "unmatched"

// Metrics returns a Gin middleware that instruments requests with Prometheus,
// labelling every series with service.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.Metrics("simulation"))
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
// Semantics:
//   - Increments http_requests_total(service, method, path, status) per request
//   - Observes http_request_duration_seconds(service, method, path) on completion
//   - Tracks http_requests_inflight(service) during handler execution
//   - Observes http_response_size_bytes(service, method, path) with bytes written
func Metrics(service string) gin.HandlerFunc {
	svc := prometheus.Labels{"service": service}
	reqs := httpReqs.MustCurryWith(svc)
	lat := httpLat.MustCurryWith(svc)
	respSize := httpRespSize.MustCurryWith(svc)
	inflight := httpInflight.With(svc)

	return func(c *gin.Context) {
		start := time.Now()
		inflight.Inc()
		defer inflight.Dec()

		c.Next()

		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		reqs.WithLabelValues(method, path, status).Inc()
		lat.WithLabelValues(method, path).Observe(dur)
		// Size is -1 when nothing was written (e.g. 204).
		if size := c.Writer.Size(); size >= 0 {
			respSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
