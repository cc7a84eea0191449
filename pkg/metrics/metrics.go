package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the application-specific Prometheus collectors.
var Registry = prometheus.NewRegistry()

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "card_validator",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "card_validator",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "card_validator",
			Subsystem: "submissions",
			Name:      "total",
			Help:      "Card submissions by outcome.",
		},
		[]string{"outcome"},
	)

	backendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "card_validator",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of card validation backend calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	openViews = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "card_validator",
			Subsystem: "views",
			Name:      "open",
			Help:      "Number of form views currently held in memory.",
		},
	)
)

func init() {
	Registry.MustRegister(httpRequests, httpDuration, submissions, backendDuration, openViews)
}

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest tracks one handled request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSubmission counts a resolved submission attempt.
func RecordSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}

// RecordBackendCall tracks the latency of one backend call.
func RecordBackendCall(duration time.Duration) {
	backendDuration.Observe(duration.Seconds())
}

// SetOpenViews reports how many views are open.
func SetOpenViews(n int) {
	openViews.Set(float64(n))
}
