package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce       sync.Once
	pageRequestsTotal  *prometheus.CounterVec
	pageLatencySeconds *prometheus.HistogramVec
	pageErrorsTotal    *prometheus.CounterVec
	pageActionsTotal   *prometheus.CounterVec
	uploadRejected     *prometheus.CounterVec
	chatSocketsActive  prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the web front end.
func RegisterMetrics() {
	registerOnce.Do(func() {
		pageRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_page_requests_total",
			Help: "Total number of page and action requests served.",
		}, []string{"method", "route", "status"})

		pageLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tutor_page_latency_seconds",
			Help:    "Latency distribution for page and action requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5, 15, 60},
		}, []string{"method", "route"})

		pageErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_page_errors_total",
			Help: "Total number of error responses returned by pages.",
		}, []string{"method", "route", "status"})

		pageActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_page_actions_total",
			Help: "Outcome of user-triggered page actions.",
		}, []string{"page", "action", "outcome"})

		uploadRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_upload_rejected_total",
			Help: "Uploads rejected before reaching the backend.",
		}, []string{"reason"})

		chatSocketsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tutor_chat_sockets_active",
			Help: "Number of open chat websocket connections.",
		})

		prometheus.MustRegister(pageRequestsTotal, pageLatencySeconds, pageErrorsTotal, pageActionsTotal, uploadRejected, chatSocketsActive)
	})
}

// PageRequests exposes the counter for page requests.
func PageRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return pageRequestsTotal
}

// PageLatency exposes the latency histogram for page requests.
func PageLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return pageLatencySeconds
}

// PageErrors exposes the counter for page error responses.
func PageErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return pageErrorsTotal
}

// PageActions exposes the counter for action outcomes (success, error, busy, invalid).
func PageActions() *prometheus.CounterVec {
	RegisterMetrics()
	return pageActionsTotal
}

// UploadRejected exposes the counter for uploads refused by local validation.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejected
}

// ChatSockets exposes the gauge of open chat sockets.
func ChatSockets() prometheus.Gauge {
	RegisterMetrics()
	return chatSocketsActive
}

// MetricsHandler serves the default registry, which also carries the backend
// client collectors, in the OpenMetrics format when requested.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}
