package events

import "context"

// ─────────────────────────────────────────────────────────────
// Emitter
// Decouples the core from whatever consumes its events.
// ─────────────────────────────────────────────────────────────

// Emitter receives every fired event record, serialized for the
// persistence/collaboration layer. The core never blocks on it.
type Emitter interface {
	Emit(ctx context.Context, name string, data any)
}

// MockEmitter is a test-friendly Emitter that records all calls.
type MockEmitter struct {
	Events []Emitted
}

// Emitted holds a single recorded emission for test assertions.
type Emitted struct {
	Name string
	Data any
}

func (m *MockEmitter) Emit(_ context.Context, name string, data any) {
	m.Events = append(m.Events, Emitted{Name: name, Data: data})
}

// NopEmitter discards everything.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}
