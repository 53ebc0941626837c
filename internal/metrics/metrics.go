package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logimatch_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logimatch_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// StoreAttempts cuenta intentos por estrategia de almacenamiento.
	// outcome: "ok", "error", "empty", "unsupported".
	StoreAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logimatch_message_store_attempts_total",
			Help: "Message store attempts per storage strategy",
		},
		[]string{"op", "strategy", "outcome"},
	)

	WritesExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logimatch_message_writes_exhausted_total",
			Help: "Message writes where every storage strategy failed",
		},
	)

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logimatch_broadcasts_total",
			Help: "Best-effort broadcast triggers",
		},
		[]string{"provider", "outcome"},
	)

	AIQuestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logimatch_ai_questions_total",
			Help: "AI questions answered",
		},
		[]string{"outcome"},
	)
)
