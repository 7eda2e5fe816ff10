package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tutor",
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Duration of calls to the tutoring backend",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"endpoint"})

	callFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutor",
		Subsystem: "backend",
		Name:      "request_failures_total",
		Help:      "Number of failed calls to the tutoring backend",
	}, []string{"endpoint", "reason"})
)
