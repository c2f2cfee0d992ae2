package service

import (
	"context"

	"exdform/internal/logger"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: how services report progress to their front end
// ─────────────────────────────────────────────────────────────

// EventEmitter receives the events and status messages a service produces.
// The terminal front end prints status lines, the MCP server logs them, and
// tests record them with MockEmitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(ctx context.Context, event string, data any)

func (f EmitterFunc) Emit(ctx context.Context, event string, data any) { f(ctx, event, data) }

// LogEmitter writes every event to a logger at debug level and status
// messages at info level.
type LogEmitter struct {
	Log *logger.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	l := logger.OrNop(e.Log)
	if event == EventStatus {
		l.Infow("status", "message", data)
		return
	}
	l.Debugw("event", "event", event, "data", data)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Event
	}
	return out
}
