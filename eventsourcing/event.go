package eventsourcing

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InstrumentationVersion is reported alongside telemetry emitted by this module.
const InstrumentationVersion = "1.0.0"

// Event is a domain event describing a change that has happened to an aggregate.
type Event interface {
	AggregateID() string
	EventType() string
}

// Envelope wraps a domain event with the storage metadata the event log keeps
// for it: position in its stream, position in the global stream, and when it
// occurred.
type Envelope struct {
	EventID       uuid.UUID
	StreamID      string
	Metadata      map[string]any
	Event         Event
	Version       uint64
	GlobalVersion uint64
	OccurredAt    time.Time
}

// EventOption mutates an envelope before it is buffered on an aggregate.
type EventOption func(*Envelope)

// WithMetadata merges the given key-value pairs into the envelope metadata.
func WithMetadata(md map[string]any) EventOption {
	return func(e *Envelope) {
		for k, v := range md {
			e.Metadata[k] = v
		}
	}
}

// WithOccurredAt overrides the envelope timestamp.
func WithOccurredAt(t time.Time) EventOption {
	return func(e *Envelope) {
		e.OccurredAt = t
	}
}

// TypeName returns the bare type name of v, without package path or pointer
// markers. It is the key under which events and queries are registered and
// routed.
func TypeName(v any) string {
	if v == nil {
		return ""
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.String()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
