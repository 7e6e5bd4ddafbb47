// internal/events/bus.go
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bus fans trade events out to subscribed handlers. Publish is asynchronous
// and never blocks the trading path: when the buffer is full the event is
// dropped and logged, not queued.
type Bus struct {
	logger     *zap.Logger
	bufferSize int

	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler

	eventChan chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewBus creates a bus with the given buffer size and starts its dispatch
// loop.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		logger:     logger.Named("events"),
		bufferSize: bufferSize,
		handlers:   make(map[EventType]map[string]Handler),
		eventChan:  make(chan Event, bufferSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	b.wg.Add(1)
	go b.dispatch()

	return b
}

// Subscribe registers a handler for one event type and returns the
// subscription used to remove it.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	b.handlers[eventType][id] = handler

	b.logger.Debug("handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{id: id, bus: b, typ: eventType}
}

// Publish enqueues the event for asynchronous delivery.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("event bus is shut down")
	default:
	}

	select {
	case b.eventChan <- event:
		return nil
	default:
		b.logger.Warn("event buffer full, dropping event",
			zap.String("event_type", string(event.Type())))
		return fmt.Errorf("event buffer full")
	}
}

// PublishSync delivers the event to every matching handler before returning.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	registered := b.handlers[event.Type()]
	handlers := make(map[string]Handler, len(registered))
	for id, h := range registered {
		handlers[id] = h
	}
	b.mu.RUnlock()

	var failed int
	for id, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			failed++
			b.logger.Error("event handler failed",
				zap.String("event_type", string(event.Type())),
				zap.String("subscription_id", id),
				zap.Error(err))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d handlers failed", failed, len(handlers))
	}
	return nil
}

// dispatch delivers queued events until shutdown, then drains what is left.
func (b *Bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			for {
				select {
				case event := <-b.eventChan:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.eventChan:
			_ = b.PublishSync(b.ctx, event)
		}
	}
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[eventType]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, eventType)
		}
	}
}

// Shutdown stops the dispatch loop after draining pending events. Events
// published after Shutdown are rejected.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus shutdown timed out")
		return ctx.Err()
	}
}
