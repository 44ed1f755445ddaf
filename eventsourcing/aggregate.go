package eventsourcing

import (
	"github.com/google/uuid"
	"time"
)

var now = time.Now

// Aggregate is the interface that all aggregates must implement.
type Aggregate interface {

	// EntityID returns the unique identifier of the aggregate.
	EntityID() string

	// AggregateVersion returns the committed version of the aggregate, i.e.
	// the version of the last event folded from or persisted to its stream.
	AggregateVersion() uint64

	// SetAggregateVersion sets the committed version of the aggregate.
	SetAggregateVersion(version uint64)

	// UncommittedEvents returns all the events that are currently uncommitted.
	UncommittedEvents() []Envelope

	// ClearUncommittedEvents clears all uncommitted events from the aggregate.
	ClearUncommittedEvents()

	// AppendEvent appends a new event to the aggregate's uncommitted buffer.
	AppendEvent(event Event, options ...EventOption)
}

// Entity is an aggregate that can rebuild its state by folding events.
// Apply must be a pure state transition: no validation, no side effects.
type Entity interface {
	Aggregate
	Apply(event Event)
}

type AggregateBase struct {
	id     string
	v      uint64
	events []Envelope
}

// NewAggregateBase creates an aggregate.
func NewAggregateBase(id string) *AggregateBase {
	return &AggregateBase{
		id:     id,
		events: make([]Envelope, 0),
	}
}

// EntityID implements the EntityID method of the Aggregate interface.
func (a *AggregateBase) EntityID() string {
	return a.id
}

// SetEntityID sets the aggregate identifier. Used when folding a Created
// event into a zero-value aggregate.
func (a *AggregateBase) SetEntityID(id string) {
	a.id = id
}

// AggregateVersion implements the AggregateVersion method of the Aggregate interface.
func (a *AggregateBase) AggregateVersion() uint64 {
	return a.v
}

// SetAggregateVersion implements the SetAggregateVersion method of the Aggregate interface.
func (a *AggregateBase) SetAggregateVersion(v uint64) {
	a.v = v
}

// UncommittedEvents implements the UncommittedEvents method of the Aggregate
// interface.
func (a *AggregateBase) UncommittedEvents() []Envelope {
	return a.events
}

// ClearUncommittedEvents implements the ClearUncommittedEvents method of the
// Aggregate interface.
func (a *AggregateBase) ClearUncommittedEvents() {
	a.events = nil
}

// AppendEvent buffers an event for later persistence by a Repository. The
// envelope version continues the stream: committed version plus the events
// already buffered plus one.
func (a *AggregateBase) AppendEvent(event Event, options ...EventOption) {

	envelope := Envelope{
		EventID:    uuid.New(),
		StreamID:   event.AggregateID(),
		Metadata:   make(map[string]any),
		Event:      event,
		Version:    a.AggregateVersion() + uint64(len(a.events)) + 1,
		OccurredAt: now(),
	}

	for _, option := range options {
		option(&envelope)
	}

	a.events = append(a.events, envelope)
}
