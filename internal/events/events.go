package events

import (
	"context"
	"sync"
	"time"
)

// EventType enumerates lifecycle events emitted by the orchestration core.
type EventType string

const (
	EventTicketCreated        EventType = "ticket_created"
	EventTicketOpened         EventType = "ticket_opened"
	EventTicketClosed         EventType = "ticket_closed"
	EventTicketRemoved        EventType = "ticket_removed"
	EventTicketFailed         EventType = "ticket_failed"
	EventRelationsEstablished EventType = "relations_established"
)

// Event is one lifecycle occurrence on a ticket. Message is the audit line
// appended to the ticket log by subscribers.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     string    `json:"actor,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher allows event publication and subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher invokes handlers synchronously in subscription order.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
	}
}

// Publish synchronously invokes handlers for the given event. A handler error
// does not stop delivery to the remaining handlers: lifecycle events are
// fire-and-forget for publishers.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
