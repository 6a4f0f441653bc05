package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure|locked).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ascend_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks active user sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ascend_active_sessions",
			Help: "Number of active user sessions",
		},
	)

	// AIRequests counts upstream model calls by kind (chat|summary|analysis) and result (ok|error).
	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ascend_ai_requests_total",
			Help: "Total number of upstream AI model requests",
		},
		[]string{"kind", "result"},
	)

	// RateLimited counts requests rejected by a rate limit, by limiter scope.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ascend_rate_limited_total",
			Help: "Total number of rate limited requests",
		},
		[]string{"scope"},
	)

	// EmailsSent counts outbound email attempts by template and result (sent|failed).
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ascend_emails_total",
			Help: "Total number of outbound email attempts",
		},
		[]string{"template", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ascend_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
