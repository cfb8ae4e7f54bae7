// Package metrics defines Prometheus metrics for the gatekeeper security
// pipeline: rate limiter decisions, authentication and whitelist outcomes,
// suspicious-request rejections, endpoint accounting and the audit queue.
package metrics
