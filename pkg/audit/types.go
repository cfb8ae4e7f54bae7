package audit

import "time"

// EventType classifies a security event.
type EventType string

const (
	// EventAuthMissing records a request to a protected route without a credential.
	EventAuthMissing EventType = "auth.missing"
	// EventAuthInvalid records a credential that failed verification.
	EventAuthInvalid EventType = "auth.invalid"
	// EventAuthMisconfigured records a verification attempt without a configured secret.
	EventAuthMisconfigured EventType = "auth.misconfigured"
	// EventAccessDenied records an authenticated user failing the admin whitelist check.
	EventAccessDenied EventType = "access.denied"
	// EventRateLimited records a request rejected by a rate limiter.
	EventRateLimited EventType = "ratelimit.exceeded"
	// EventSuspiciousRequest records a payload rejected by the SQL keyword detector.
	EventSuspiciousRequest EventType = "request.suspicious"
)

// Severity indicates the importance of an event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SeverityForEventType returns the default severity for an event type.
func SeverityForEventType(t EventType) Severity {
	switch t {
	case EventAuthMisconfigured:
		return SeverityCritical
	case EventAuthInvalid, EventAccessDenied, EventSuspiciousRequest:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Actor identifies who triggered an event. Email may be empty for
// unauthenticated requests; the credential itself is never recorded.
type Actor struct {
	Email    string `json:"email,omitempty"`
	SourceIP string `json:"sourceIP,omitempty"`
}

// Request carries the request coordinates an event refers to.
type Request struct {
	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Event is one entry in the security audit trail.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Severity  Severity          `json:"severity"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     Actor             `json:"actor"`
	Request   Request           `json:"request"`
	Details   map[string]string `json:"details,omitempty"`
}
