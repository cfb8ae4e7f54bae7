package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// captureSink records every event it receives.
type captureSink struct {
	mu     sync.Mutex
	events []*Event
	err    error
	closed bool
}

func (s *captureSink) Write(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) snapshot() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestManagerEmit(t *testing.T) {
	ctx := context.Background()

	t.Run("fills in id, timestamp and severity and delivers", func(t *testing.T) {
		sink := &captureSink{}
		m := NewManager(sink, DefaultManagerConfig(), zaptest.NewLogger(t))

		m.Emit(ctx, &Event{
			Type:    EventAccessDenied,
			Actor:   Actor{Email: "user@example.com", SourceIP: "203.0.113.9"},
			Request: Request{Method: "GET", Path: "/api/admin/status"},
		})
		require.NoError(t, m.Close())

		events := sink.snapshot()
		require.Len(t, events, 1)
		e := events[0]
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
		assert.Equal(t, SeverityWarning, e.Severity)
		assert.Equal(t, "user@example.com", e.Actor.Email)

		stats := m.Stats()
		assert.EqualValues(t, 1, stats.Queued)
		assert.EqualValues(t, 1, stats.Processed)
		assert.EqualValues(t, 0, stats.Dropped)
		assert.True(t, sink.closed)
	})

	t.Run("keeps caller-provided severity", func(t *testing.T) {
		sink := &captureSink{}
		m := NewManager(sink, DefaultManagerConfig(), zaptest.NewLogger(t))

		m.Emit(ctx, &Event{Type: EventAuthMissing, Severity: SeverityCritical})
		require.NoError(t, m.Close())

		events := sink.snapshot()
		require.Len(t, events, 1)
		assert.Equal(t, SeverityCritical, events[0].Severity)
	})

	t.Run("emit after close is a no-op", func(t *testing.T) {
		sink := &captureSink{}
		m := NewManager(sink, DefaultManagerConfig(), zaptest.NewLogger(t))
		require.NoError(t, m.Close())
		require.NoError(t, m.Close())

		m.Emit(ctx, &Event{Type: EventAuthMissing})
		assert.Empty(t, sink.snapshot())
	})

	t.Run("emits racing close never send on the closed queue", func(t *testing.T) {
		sink := &captureSink{}
		m := NewManager(sink, DefaultManagerConfig(), zaptest.NewLogger(t))

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.Emit(ctx, &Event{Type: EventRateLimited})
			}()
		}
		require.NoError(t, m.Close())
		wg.Wait()

		stats := m.Stats()
		assert.EqualValues(t, stats.Queued, stats.Processed)
	})

	t.Run("sink failures are counted but do not stop the workers", func(t *testing.T) {
		sink := &captureSink{err: errors.New("broker down")}
		m := NewManager(sink, ManagerConfig{QueueSize: 4, WorkerCount: 1, WriteTimeout: time.Second}, zaptest.NewLogger(t))

		m.Emit(ctx, &Event{Type: EventSuspiciousRequest})
		m.Emit(ctx, &Event{Type: EventSuspiciousRequest})
		require.NoError(t, m.Close())

		stats := m.Stats()
		assert.EqualValues(t, 2, stats.Queued)
		assert.EqualValues(t, 0, stats.Processed)
	})
}

func TestManagerConvenienceEmitters(t *testing.T) {
	ctx := context.Background()
	sink := &captureSink{}
	m := NewManager(sink, DefaultManagerConfig(), zaptest.NewLogger(t))

	m.SuspiciousRequest(ctx, "POST", "/api/courses", "203.0.113.9", `{"q":"DROP TABLE"}`)
	m.AuthRejected(ctx, EventAuthInvalid, "GET", "/api/profile/me", "203.0.113.9")
	m.AccessDenied(ctx, "user@example.com", "GET", "/api/admin/status", "203.0.113.9", "not whitelisted")
	m.RateLimited(ctx, "general", "GET", "/api/courses", "203.0.113.9")
	require.NoError(t, m.Close())

	events := sink.snapshot()
	require.Len(t, events, 4)

	byType := map[EventType]*Event{}
	for _, e := range events {
		byType[e.Type] = e
	}

	suspicious := byType[EventSuspiciousRequest]
	require.NotNil(t, suspicious)
	assert.Equal(t, "/api/courses", suspicious.Request.Path)
	assert.Contains(t, suspicious.Details["payload"], "DROP TABLE")

	rejected := byType[EventAuthInvalid]
	require.NotNil(t, rejected)
	assert.Equal(t, "203.0.113.9", rejected.Actor.SourceIP)
	assert.Empty(t, rejected.Actor.Email)

	denied := byType[EventAccessDenied]
	require.NotNil(t, denied)
	assert.Equal(t, "user@example.com", denied.Actor.Email)
	assert.Equal(t, "not whitelisted", denied.Details["reason"])

	limited := byType[EventRateLimited]
	require.NotNil(t, limited)
	assert.Equal(t, "general", limited.Details["policy"])
	assert.Equal(t, SeverityInfo, limited.Severity)
}

func TestSeverityForEventType(t *testing.T) {
	assert.Equal(t, SeverityCritical, SeverityForEventType(EventAuthMisconfigured))
	assert.Equal(t, SeverityWarning, SeverityForEventType(EventAuthInvalid))
	assert.Equal(t, SeverityWarning, SeverityForEventType(EventAccessDenied))
	assert.Equal(t, SeverityWarning, SeverityForEventType(EventSuspiciousRequest))
	assert.Equal(t, SeverityInfo, SeverityForEventType(EventAuthMissing))
	assert.Equal(t, SeverityInfo, SeverityForEventType(EventRateLimited))
}
