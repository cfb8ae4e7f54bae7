package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursehub/gatekeeper/pkg/metrics"
)

// Manager coordinates audit event creation and delivery. Emission is
// non-blocking: requests never wait on a slow sink, events are dropped when
// the queue is full.
type Manager struct {
	sink       Sink
	asyncQueue chan *Event
	logger     *zap.Logger
	wg         sync.WaitGroup

	// mu orders queue sends against Close so a request goroutine can never
	// send on the closed channel.
	mu     sync.RWMutex
	closed atomic.Bool

	queuedEvents    atomic.Int64
	droppedEvents   atomic.Int64
	processedEvents atomic.Int64

	config ManagerConfig
}

// ManagerConfig configures the audit Manager.
type ManagerConfig struct {
	// QueueSize is the size of the async event queue. Default: 10000.
	QueueSize int

	// WorkerCount is the number of async delivery workers. Default: 2.
	WorkerCount int

	// WriteTimeout bounds each sink write. Default: 5s.
	WriteTimeout time.Duration
}

// DefaultManagerConfig returns the defaults used by the gateway.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		QueueSize:    10000,
		WorkerCount:  2,
		WriteTimeout: 5 * time.Second,
	}
}

// NewManager creates a Manager delivering to sink and starts its workers.
func NewManager(sink Sink, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	m := &Manager{
		sink:       sink,
		asyncQueue: make(chan *Event, cfg.QueueSize),
		logger:     logger.Named("audit-manager"),
		config:     cfg,
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		m.wg.Add(1)
		go m.processQueue(i)
	}

	return m
}

// Emit queues an audit event. It never blocks; when the queue is full the
// event is dropped and counted.
func (m *Manager) Emit(_ context.Context, event *Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed.Load() {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityForEventType(event.Type)
	}

	select {
	case m.asyncQueue <- event:
		m.queuedEvents.Add(1)
		metrics.AuditEventsEmitted.WithLabelValues(string(event.Type)).Inc()
	default:
		m.droppedEvents.Add(1)
		metrics.AuditEventsDropped.Inc()
		m.logger.Warn("audit queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
	}
}

func (m *Manager) processQueue(workerID int) {
	defer m.wg.Done()

	for event := range m.asyncQueue {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.WriteTimeout)
		if err := m.sink.Write(ctx, event); err != nil {
			metrics.AuditSinkErrors.WithLabelValues(m.sink.Name()).Inc()
			m.logger.Warn("failed to write audit event",
				zap.Int("worker", workerID),
				zap.String("event_id", event.ID),
				zap.Error(err))
		} else {
			m.processedEvents.Add(1)
		}
		cancel()
	}
}

// Close drains the queue and closes the sink.
func (m *Manager) Close() error {
	m.mu.Lock()
	if !m.closed.CompareAndSwap(false, true) {
		m.mu.Unlock()
		return nil
	}
	close(m.asyncQueue)
	m.mu.Unlock()

	m.wg.Wait()
	return m.sink.Close()
}

// Stats reports queue counters for observability and tests.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		Queued:    m.queuedEvents.Load(),
		Dropped:   m.droppedEvents.Load(),
		Processed: m.processedEvents.Load(),
	}
}

// ManagerStats is a snapshot of the manager's counters.
type ManagerStats struct {
	Queued    int64
	Dropped   int64
	Processed int64
}

// SuspiciousRequest records a payload rejected by the SQL keyword detector.
// Only a bounded snippet of the payload is kept for audit purposes.
func (m *Manager) SuspiciousRequest(ctx context.Context, method, path, sourceIP, payload string) {
	m.Emit(ctx, &Event{
		Type:    EventSuspiciousRequest,
		Actor:   Actor{SourceIP: sourceIP},
		Request: Request{Method: method, Path: path},
		Details: map[string]string{"payload": payload},
	})
}

// AuthRejected records a missing or invalid credential on a protected route.
func (m *Manager) AuthRejected(ctx context.Context, eventType EventType, method, path, sourceIP string) {
	m.Emit(ctx, &Event{
		Type:    eventType,
		Actor:   Actor{SourceIP: sourceIP},
		Request: Request{Method: method, Path: path},
	})
}

// RateLimited records a request rejected by a rate limiter policy.
func (m *Manager) RateLimited(ctx context.Context, policy, method, path, sourceIP string) {
	m.Emit(ctx, &Event{
		Type:    EventRateLimited,
		Actor:   Actor{SourceIP: sourceIP},
		Request: Request{Method: method, Path: path},
		Details: map[string]string{"policy": policy},
	})
}

// AccessDenied records a failed admin whitelist check.
func (m *Manager) AccessDenied(ctx context.Context, email, method, path, sourceIP, reason string) {
	m.Emit(ctx, &Event{
		Type:    EventAccessDenied,
		Actor:   Actor{Email: email, SourceIP: sourceIP},
		Request: Request{Method: method, Path: path},
		Details: map[string]string{"reason": reason},
	})
}
