package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/gatekeeper/pkg/apiresponses"
	"github.com/coursehub/gatekeeper/pkg/metrics"
)

// Auditor receives an event for every request the limiter rejects.
type Auditor interface {
	RateLimited(ctx context.Context, policy, method, path, sourceIP string)
}

// Config holds rate limiter configuration for one named policy.
type Config struct {
	// Name identifies the limiter instance in logs, metrics and defaults.
	Name string
	// Window is the fixed accounting window length.
	Window time.Duration
	// Max is the number of requests allowed per key within one window.
	Max int
	// SweepInterval is how often expired entries are removed.
	SweepInterval time.Duration
	// Message is the client-facing rejection message.
	Message string
}

// DefaultGeneralConfig returns the policy applied to the whole API surface:
// 100 requests per 15 minutes per client IP.
func DefaultGeneralConfig() Config {
	return Config{
		Name:          "general",
		Window:        15 * time.Minute,
		Max:           100,
		SweepInterval: time.Minute,
		Message:       "Too many requests, please try again later",
	}
}

// DefaultAuthConfig returns the policy for authentication endpoints:
// 5 requests per 15 minutes per client IP.
func DefaultAuthConfig() Config {
	return Config{
		Name:          "auth",
		Window:        15 * time.Minute,
		Max:           5,
		SweepInterval: time.Minute,
		Message:       "Too many authentication attempts, please try again later",
	}
}

// DefaultStrictConfig returns the policy for sensitive actions:
// 3 requests per minute per client IP.
func DefaultStrictConfig() Config {
	return Config{
		Name:          "strict",
		Window:        time.Minute,
		Max:           3,
		SweepInterval: time.Minute,
		Message:       "Too many requests for this action, please slow down",
	}
}

// entry is the per-key window state.
type entry struct {
	count     int
	resetTime time.Time
}

// Result describes one accounting decision together with the metadata the
// middleware exposes as X-RateLimit-* headers.
type Result struct {
	Allowed bool
	// Limit is the configured per-window maximum.
	Limit int
	// Remaining is Max minus the current count, floored at zero.
	Remaining int
	// Reset is the absolute time the current window ends.
	Reset time.Time
	// RetryAfter is the whole seconds until Reset, rounded up. Only
	// meaningful when Allowed is false.
	RetryAfter int
}

// Limiter implements fixed-window per-key rate limiting with periodic sweep
// of expired windows.
//
// The limiter is process-local by design: in a horizontally scaled deployment
// each instance accounts independently, so effective limits are per instance,
// not global. Callers that need global limits must put a shared limiter in
// front of the fleet; this package intentionally does not paper over that.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	config  Config
	audit   Auditor
	done    chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

// New creates a limiter for the given policy and starts its sweep goroutine.
// audit may be nil, in which case rejections are only counted and logged.
func New(cfg Config, audit Auditor) *Limiter {
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Message == "" {
		cfg.Message = "Too many requests, please try again later"
	}

	l := &Limiter{
		entries: make(map[string]*entry),
		config:  cfg,
		audit:   audit,
		done:    make(chan struct{}),
		now:     time.Now,
	}

	go l.sweep()

	return l
}

// Check accounts one request for key and decides whether it is allowed.
// The increment and the decision happen under one lock so two concurrent
// requests can never both observe a count just under Max.
// Attempted requests are counted even if the caller later aborts.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, exists := l.entries[key]
	if !exists || now.After(e.resetTime) {
		e = &entry{count: 1, resetTime: now.Add(l.config.Window)}
		l.entries[key] = e
	} else {
		e.count++
	}

	remaining := l.config.Max - e.count
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:   e.count <= l.config.Max,
		Limit:     l.config.Max,
		Remaining: remaining,
		Reset:     e.resetTime,
	}
	if !res.Allowed {
		// Round up so clients never retry before the window ends.
		res.RetryAfter = int((e.resetTime.Sub(now) + time.Second - 1) / time.Second)
		if res.RetryAfter < 0 {
			res.RetryAfter = 0
		}
	}
	return res
}

// Middleware returns a gin middleware enforcing this limiter keyed by client
// IP. Rate limit headers are set on every response, allowed or not.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := l.Check(c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

		if !res.Allowed {
			metrics.RateLimited.WithLabelValues(l.config.Name).Inc()
			if l.audit != nil {
				l.audit.RateLimited(c.Request.Context(),
					l.config.Name, c.Request.Method, c.Request.URL.Path, c.ClientIP())
			}
			c.Header("Retry-After", strconv.Itoa(res.RetryAfter))
			apiresponses.RespondRateLimited(c, l.config.Message, res.RetryAfter)
			return
		}

		metrics.RateAllowed.WithLabelValues(l.config.Name).Inc()
		c.Next()
	}
}

// Stop halts the sweep goroutine.
func (l *Limiter) Stop() {
	close(l.done)
}

// sweep periodically removes entries whose window has already ended.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.removeExpired()
		}
	}
}

func (l *Limiter) removeExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if now.After(e.resetTime) {
			delete(l.entries, key)
		}
	}
}

// Len returns the current number of tracked keys (for testing/metrics).
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Config returns a copy of the current configuration (for testing).
func (l *Limiter) Config() Config {
	return l.config
}
