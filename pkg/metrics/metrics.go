package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Rate limiter decisions, labelled by policy name.
	RateAllowed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_ratelimit_allowed_total",
		Help: "Total number of requests allowed by a rate limiter policy",
	}, []string{"policy"})
	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_ratelimit_limited_total",
		Help: "Total number of requests rejected by a rate limiter policy",
	}, []string{"policy"})

	// Authentication outcomes: "ok", "missing", "invalid", "misconfigured".
	AuthOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_auth_outcomes_total",
		Help: "Total number of credential verification attempts by outcome",
	}, []string{"outcome"})

	// Admin whitelist check outcomes: "allowed", "denied", "error".
	AdminChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_admin_checks_total",
		Help: "Total number of admin whitelist lookups by outcome",
	}, []string{"outcome"})

	// Requests rejected by the suspicious-payload detector.
	SuspiciousRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_suspicious_requests_total",
		Help: "Total number of requests rejected for containing SQL keywords",
	})

	// Per-endpoint request accounting.
	APIEndpointRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_api_endpoint_requests_total",
		Help: "Total number of requests per API endpoint",
	}, []string{"endpoint"})
	APIEndpointErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_api_endpoint_errors_total",
		Help: "Total number of error responses per API endpoint and status code",
	}, []string{"endpoint", "status"})
	APIEndpointDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatekeeper_api_endpoint_duration_seconds",
		Help:    "Request handling latency per API endpoint",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// Audit pipeline accounting.
	AuditEventsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_audit_events_emitted_total",
		Help: "Total number of audit events emitted by type",
	}, []string{"type"})
	AuditEventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_audit_events_dropped_total",
		Help: "Total number of audit events dropped because the queue was full",
	})
	AuditSinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_audit_sink_errors_total",
		Help: "Total number of audit sink write failures by sink name",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(RateAllowed)
	prometheus.MustRegister(RateLimited)
	prometheus.MustRegister(AuthOutcomes)
	prometheus.MustRegister(AdminChecks)
	prometheus.MustRegister(SuspiciousRequests)
	prometheus.MustRegister(APIEndpointRequests)
	prometheus.MustRegister(APIEndpointErrors)
	prometheus.MustRegister(APIEndpointDuration)
	prometheus.MustRegister(AuditEventsEmitted)
	prometheus.MustRegister(AuditEventsDropped)
	prometheus.MustRegister(AuditSinkErrors)
}

// Handler returns the Prometheus scrape handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
