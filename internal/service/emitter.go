package service

import "context"

// ─────────────────────────────────────────────────────────────
// EventEmitter — decouples services from the websocket hub
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for pushing events to connected clients.
// The App struct implements this by delegating to the websocket hub.
// Services receive this interface instead of the hub itself, which makes
// them independently testable with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
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
