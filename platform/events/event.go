// Package events holds the event bus primitives the bot's modules use to
// talk to each other without importing one another. Business event types
// live with their owning modules; only the infrastructure lives here.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event routed through the bus.
type Event interface {
	// EventName identifies the event type for subscription routing.
	EventName() string
	// OccurredAt reports when the event happened.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all events. Embed it and add
// the domain payload on top.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events of one type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes domain events from publishers to subscribed handlers.
type Bus interface {
	// Publish fans the event out to its handlers without waiting for them.
	Publish(ctx context.Context, event Event)

	// PublishSync fans the event out and blocks until every handler returns.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under the name returned by the event's
	// EventName method.
	Subscribe(eventName string, handler Handler)
}
