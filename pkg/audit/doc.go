// Package audit records security events (rejected credentials, denied admin
// checks, suspicious payloads) and delivers them asynchronously to
// configurable sinks: a structured log sink and optionally Kafka.
package audit
