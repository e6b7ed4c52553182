package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(ShutterEvent{...})
func (b *Bus) Publish(ev Event) {
	// The generic Publish needs the concrete type.
	switch e := ev.(type) {
	case ShutterEvent:
		event.Publish(b.dispatcher, e)
	case CaptureResultEvent:
		event.Publish(b.dispatcher, e)
	case RequestErrorEvent:
		event.Publish(b.dispatcher, e)
	case DeviceAddedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceRemovedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type selects which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e ShutterEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ShutterEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureResultEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RequestErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceAddedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// No-op for unrecognized handler types.
		return func() {}
	}
}
