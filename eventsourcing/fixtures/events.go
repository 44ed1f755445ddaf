// Package fixtures provides reusable builders for event sourcing tests.
package fixtures

import (
	"fmt"

	es "github.com/terraskye/booking/eventsourcing"
)

// TestEvent is a configurable test event implementing the Event interface.
type TestEvent struct {
	ID   string
	Type string
	Data string
}

func (e TestEvent) AggregateID() string { return e.ID }
func (e TestEvent) EventType() string   { return e.Type }

// TestEventBuilder provides a fluent API for constructing test events.
type TestEventBuilder struct {
	id   string
	typ  string
	data string
}

// NewTestEvent creates a new TestEventBuilder with sensible defaults.
func NewTestEvent() *TestEventBuilder {
	return &TestEventBuilder{
		id:  "aggregate-1",
		typ: "TestEvent",
	}
}

// WithID sets the aggregate ID.
func (b *TestEventBuilder) WithID(id string) *TestEventBuilder {
	b.id = id
	return b
}

// WithType sets the event type.
func (b *TestEventBuilder) WithType(typ string) *TestEventBuilder {
	b.typ = typ
	return b
}

// WithData sets custom data on the event.
func (b *TestEventBuilder) WithData(data string) *TestEventBuilder {
	b.data = data
	return b
}

// Build constructs the TestEvent.
func (b *TestEventBuilder) Build() TestEvent {
	return TestEvent{
		ID:   b.id,
		Type: b.typ,
		Data: b.data,
	}
}

// BuildN creates n events with sequential data.
func (b *TestEventBuilder) BuildN(n int) []es.Event {
	events := make([]es.Event, n)
	for i := 0; i < n; i++ {
		events[i] = TestEvent{
			ID:   b.id,
			Type: b.typ,
			Data: fmt.Sprintf("%s-%d", b.data, i+1),
		}
	}
	return events
}

// Common pre-built events for quick testing.
var (
	BookingCreatedEvent   = TestEvent{ID: "booking-1", Type: "BookingCreated"}
	BookingAcceptedEvent  = TestEvent{ID: "booking-1", Type: "BookingAccepted"}
	BookingConfirmedEvent = TestEvent{ID: "booking-1", Type: "BookingConfirmed"}
	BookingCancelledEvent = TestEvent{ID: "booking-1", Type: "BookingCancelled"}
)
