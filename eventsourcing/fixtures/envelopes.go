package fixtures

import (
	"time"

	"github.com/google/uuid"
	es "github.com/terraskye/booking/eventsourcing"
)

// EnvelopeOption is a functional option for configuring an Envelope.
type EnvelopeOption func(*es.Envelope)

// NewEnvelope creates an Envelope with the given event and options.
func NewEnvelope(event es.Event, opts ...EnvelopeOption) *es.Envelope {
	env := &es.Envelope{
		EventID:       uuid.New(),
		StreamID:      event.AggregateID(),
		Event:         event,
		Version:       1,
		GlobalVersion: 1,
		OccurredAt:    time.Now(),
		Metadata:      make(map[string]any),
	}

	for _, opt := range opts {
		opt(env)
	}

	return env
}

// WithEventID sets a specific event ID.
func WithEventID(id uuid.UUID) EnvelopeOption {
	return func(e *es.Envelope) {
		e.EventID = id
	}
}

// WithStreamID overrides the stream ID (defaults to event's AggregateID).
func WithStreamID(id string) EnvelopeOption {
	return func(e *es.Envelope) {
		e.StreamID = id
	}
}

// WithVersion sets the stream version.
func WithVersion(v uint64) EnvelopeOption {
	return func(e *es.Envelope) {
		e.Version = v
	}
}

// WithGlobalVersion sets the global version.
func WithGlobalVersion(v uint64) EnvelopeOption {
	return func(e *es.Envelope) {
		e.GlobalVersion = v
	}
}

// WithTimestamp sets the occurred-at timestamp.
func WithTimestamp(t time.Time) EnvelopeOption {
	return func(e *es.Envelope) {
		e.OccurredAt = t
	}
}

// WithMetadataField adds a single metadata field.
func WithMetadataField(key string, value any) EnvelopeOption {
	return func(e *es.Envelope) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// EnvelopesFromEvents creates envelopes from a slice of events with sequential versions.
func EnvelopesFromEvents(events ...es.Event) []*es.Envelope {
	envelopes := make([]*es.Envelope, len(events))
	baseTime := time.Now()

	for i, event := range events {
		envelopes[i] = &es.Envelope{
			EventID:       uuid.New(),
			StreamID:      event.AggregateID(),
			Event:         event,
			Version:       uint64(i + 1),
			GlobalVersion: uint64(i + 1),
			OccurredAt:    baseTime.Add(time.Duration(i) * time.Millisecond),
			Metadata:      make(map[string]any),
		}
	}

	return envelopes
}

// EnvelopeValuesFromEvents creates envelope values from a slice of events.
func EnvelopeValuesFromEvents(events ...es.Event) []es.Envelope {
	ptrs := EnvelopesFromEvents(events...)
	values := make([]es.Envelope, len(ptrs))
	for i, p := range ptrs {
		values[i] = *p
	}
	return values
}
