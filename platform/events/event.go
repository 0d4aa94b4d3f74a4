// Package events provides the in-process event bus the modules use to
// talk to each other without importing one another.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName returns the stable name handlers subscribe under.
	EventName() string
	// OccurredAt returns when the event happened.
	OccurredAt() time.Time
}

// BaseEvent carries the fields shared by all events. Embed it and add
// the domain payload on top.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events to subscribed handlers.
type Bus interface {
	// Publish fans the event out to its handlers asynchronously.
	// Handler errors are logged, not returned.
	Publish(ctx context.Context, event Event)

	// PublishSync runs the handlers in subscription order and returns
	// the first error.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under an Event.EventName() value.
	Subscribe(eventName string, handler Handler)
}
