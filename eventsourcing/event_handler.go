package eventsourcing

import (
	"context"
	"fmt"
	"sort"
)

// EventHandler represents a generic event handler that can handle an Event.
type EventHandler interface {
	// Handle processes the given Event within the provided context.
	Handle(ctx context.Context, event Event) error
}

// NewEventHandlerFunc creates an EventHandler from a plain function.
//
// The provided function is called for every event passed to the handler.
// There is no type-checking or filtering; if you need type safety, use
// OnEvent[T] instead.
func NewEventHandlerFunc(fn func(ctx context.Context, event Event) error) EventHandler {
	return eventHandlerFunc(fn)
}

// eventHandlerFunc is a function type that implements EventHandler.
type eventHandlerFunc func(ctx context.Context, event Event) error

func (h eventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return h(ctx, event)
}

// typedEventHandler is a strongly typed event handler for a specific Event type T.
type typedEventHandler[T Event] func(ctx context.Context, ev T) error

// EventName returns the name of the event type T.
// It is used internally by EventGroupProcessor for routing.
func (h typedEventHandler[T]) EventName() string {
	var zero T
	return TypeName(zero)
}

// Handle processes the event if it matches the type T.
// Returns ErrSkippedEvent if the event is of the wrong type.
func (h typedEventHandler[T]) Handle(ctx context.Context, event Event) error {
	ev, ok := event.(T)
	if !ok {
		// Return sentinel error instead of voiding it
		return &ErrSkippedEvent{Event: event}
	}
	return h(ctx, ev)
}

// OnEvent creates a strongly-typed EventHandler for a specific event type.
//
// When called via EventGroupProcessor.Handle, the handler will only receive
// events of type T; any other event type yields ErrSkippedEvent.
//
// Example Usage:
//
//	handler := OnEvent(func(ctx context.Context, ev BookingCreated) error {
//	    fmt.Println("booking created:", ev.AggregateID())
//	    return nil
//	})
func OnEvent[T Event](fn func(ctx context.Context, ev T) error) EventHandler {
	return typedEventHandler[T](fn)
}

// EventGroupProcessor is a collection of typed event handlers.
// It routes incoming events to the correct handler based on event type.
type EventGroupProcessor struct {
	handlers map[string]EventHandler // key = EventName()
}

// NewEventGroupProcessor creates a group of typed event handlers, routing on
// the EventName() each typed handler reports.
//
// Panics if a handler does not expose EventName() or if two handlers are
// registered for the same event type.
//
// Example Usage:
//
//	p := &Projector{}
//	group := NewEventGroupProcessor(
//	    OnEvent(p.OnBookingCreated),
//	    OnEvent(p.OnBookingAccepted),
//	)
func NewEventGroupProcessor(handlers ...EventHandler) *EventGroupProcessor {
	m := make(map[string]EventHandler, len(handlers))
	for _, h := range handlers {

		u, ok := h.(interface{ EventName() string })
		if !ok {
			panic(fmt.Errorf("handler %T does not have a function `EventName()`", h))
		}

		name := u.EventName()
		if _, exists := m[name]; exists {
			panic(fmt.Errorf("duplicate handler for event %s: %w", name, ErrDuplicateHandler))
		}
		m[name] = h
	}

	return &EventGroupProcessor{
		handlers: m,
	}
}

// Handle routes the given event to the correct typed handler.
// Returns ErrSkippedEvent if no handler exists for the event type.
func (p *EventGroupProcessor) Handle(ctx context.Context, ev Event) error {
	name := ev.EventType()
	h, ok := p.handlers[name]

	if !ok {
		return &ErrSkippedEvent{Event: ev}
	}
	return h.Handle(ctx, ev)
}

// StreamFilter returns a sorted list of all event names handled by this group.
// Useful for subscribing to streams or listing registered handlers.
func (p *EventGroupProcessor) StreamFilter() []string {
	out := make([]string, 0, len(p.handlers))
	for name := range p.handlers {
		out = append(out, name)
	}
	sort.Strings(out) // deterministic order
	return out
}
