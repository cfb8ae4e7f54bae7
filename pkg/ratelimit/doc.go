// Package ratelimit provides fixed-window per-IP rate limiting middleware
// with independent named policies for general, authentication and sensitive
// endpoints.
package ratelimit
