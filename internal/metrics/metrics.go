// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chefshare_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chefshare_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	// AI Metrics
	AICandidateAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chefshare_ai_candidate_attempts_total",
			Help: "AI generation attempts per candidate model",
		},
		[]string{"model", "result"}, // "success", "failure"
	)

	AICandidateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chefshare_ai_candidate_duration_seconds",
			Help:    "Duration of one AI candidate call in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 90},
		},
		[]string{"model"},
	)

	AIExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chefshare_ai_exhausted_total",
			Help: "Suggestions that failed on every candidate",
		},
	)
)

// RecordAPIRequest records one served request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	APIRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordAIAttempt records one candidate call.
func RecordAIAttempt(model string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	AICandidateAttempts.WithLabelValues(model, result).Inc()
	AICandidateDuration.WithLabelValues(model).Observe(duration.Seconds())
}
