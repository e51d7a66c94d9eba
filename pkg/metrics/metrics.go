package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vortexguard_http_requests_total",
		Help: "Handled HTTP requests by route and status code",
	}, []string{"route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vortexguard_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"route"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vortexguard_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"limiter"})

	RateLimitStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vortexguard_rate_limit_store_errors_total",
		Help: "Rate limit store failures (requests were admitted)",
	}, []string{"limiter"})

	UpstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vortexguard_upstream_failures_total",
		Help: "Failed calls to threat-intelligence providers",
	}, []string{"provider"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vortexguard_upstream_duration_seconds",
		Help:    "Latency of threat-intelligence provider calls",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"provider"})

	Verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vortexguard_verdicts_total",
		Help: "Threat verdicts by lookup kind and level",
	}, []string{"kind", "level"})

	URLThreatScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vortexguard_url_threat_score",
		Help:    "Distribution of URL threat scores",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	AlertsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vortexguard_alerts_triggered_total",
		Help: "Alerts delivered to the webhook",
	})

	SinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vortexguard_sink_failures_total",
		Help: "Lookup events that could not be recorded",
	}, []string{"sink"})
)
