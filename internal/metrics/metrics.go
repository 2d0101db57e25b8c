package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookcase_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hookcase_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Optimistic queue metrics
	MessagesSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookcase_messages_submitted_total",
			Help: "Total messages submitted optimistically",
		},
	)

	MessagesSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookcase_messages_settled_total",
			Help: "Total message sends settled",
		},
		[]string{"outcome"}, // "confirmed", "failed" or "canceled"
	)

	PendingMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hookcase_pending_messages",
			Help: "Messages currently in flight",
		},
	)

	SendLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hookcase_send_latency_seconds",
			Help:    "Time from submit to settlement",
			Buckets: []float64{.01, .1, .5, 1, 2, 5},
		},
	)

	// Example metrics
	FormSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookcase_form_submissions_total",
			Help: "Total form submissions",
		},
		[]string{"form", "result"}, // result: "accepted", "invalid", "busy"
	)

	ResourceLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookcase_resource_loads_total",
			Help: "Resource fetches by outcome",
		},
		[]string{"outcome"}, // "hit", "fetched", "failed"
	)

	ThemeToggles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookcase_theme_toggles_total",
			Help: "Total theme toggles",
		},
	)

	TabTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookcase_tab_transitions_total",
			Help: "Tab transitions by outcome",
		},
		[]string{"outcome"}, // "committed" or "superseded"
	)

	SearchQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hookcase_search_queries_total",
			Help: "Total search term updates",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookcase_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookcase_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hookcase_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	DatabaseLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hookcase_database_latency_seconds",
			Help:    "SQL query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
		[]string{"driver"},
	)
)
