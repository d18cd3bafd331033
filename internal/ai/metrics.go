package ai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinescript_generation_requests_total",
			Help: "Calls to the generation backend by operation and outcome.",
		},
		[]string{"operation", "status"},
	)

	generationRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinescript_generation_request_duration_seconds",
			Help:    "Duration of generation backend operations, polling included.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"operation"},
	)
)

func observeRequest(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	generationRequestsTotal.WithLabelValues(operation, status).Inc()
	generationRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
