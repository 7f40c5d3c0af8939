package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"pagecraft/internal/events"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples the session from its front end
// ─────────────────────────────────────────────────────────────

// Session-level events, next to the store topics forwarded verbatim.
const (
	EventProjectSaved  = "project:saved"
	EventProjectOpened = "project:opened"
	EventHistory       = "history:changed"
	EventExported      = "export:written"
)

// EventEmitter receives change notifications for a front end (a renderer,
// the MCP server, a log). The session calls it while holding its lock, so
// implementations must not call back into the session.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

// forward subscribes emitter to every store topic. Data is the event's id list.
func forward(ctx context.Context, d *events.Dispatcher, emitter EventEmitter) (unsubscribe func()) {
	return d.SubscribeAll(func(ev events.Event) {
		emitter.Emit(ctx, string(ev.Topic), ev.IDs)
	})
}

// LogEmitter writes every event to a logger at debug level. It stands in
// for a front end when the session runs headless.
type LogEmitter struct {
	log *zap.Logger
}

func NewLogEmitter(log *zap.Logger) *LogEmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogEmitter{log: log.Named("events")}
}

func (e *LogEmitter) Emit(_ context.Context, event string, data any) {
	e.log.Debug(event, zap.Any("data", data))
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Event
	}
	return out
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (m *MockEmitter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = nil
}
