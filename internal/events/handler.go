// internal/events/handler.go
package events

import (
	"context"
)

// Handler processes events of a single type. Handle must not block.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription is a live registration on the bus.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id  string
	bus *Bus
	typ EventType
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.typ)
}

// Sink accepts published events. Bus satisfies it; Discard drops everything,
// for callers wired without a bus.
type Sink interface {
	Publish(event Event) error
}

// Discard is a Sink that ignores every event.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Publish(Event) error { return nil }
