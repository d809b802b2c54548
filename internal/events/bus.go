package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for console-wide broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish delivers an event to all subscribers of its concrete type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case StateChangedEvent:
		event.Publish(b.dispatcher, e)
	case ReadinessProgressEvent:
		event.Publish(b.dispatcher, e)
	case StatusPolledEvent:
		event.Publish(b.dispatcher, e)
	case PlaybackErrorEvent:
		event.Publish(b.dispatcher, e)
	case TimelineLoadedEvent:
		event.Publish(b.dispatcher, e)
	case ROIChangedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; the handler's parameter type selects which
// events it receives. Returns an unsubscribe function.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ReadinessProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StatusPolledEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PlaybackErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TimelineLoadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ROIChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
