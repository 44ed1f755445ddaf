package eventsourcing

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamNotFound is returned when loading a stream that has no events.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrStreamExists is returned when a NoStream append hits an existing stream.
	ErrStreamExists = errors.New("stream already exists")

	// ErrInvalidRevision is returned for unsupported or out-of-range revisions.
	ErrInvalidRevision = errors.New("invalid stream revision")

	// ErrInvalidEventBatch is returned when a batch mixes events for different streams.
	ErrInvalidEventBatch = errors.New("invalid event batch")

	// ErrCorruptStream is returned when replay encounters a version gap or
	// duplicate. It is fatal: the stream cannot be folded into a consistent
	// aggregate and the condition must be surfaced to operators.
	ErrCorruptStream = errors.New("corrupt event stream")

	// ErrDuplicateHandler is returned when two handlers register for the same type.
	ErrDuplicateHandler = errors.New("duplicate handler")

	// ErrHandlerNotFound is returned when no handler is registered for a type.
	ErrHandlerNotFound = errors.New("handler not found")
)

// StreamRevisionConflictError reports a failed optimistic-concurrency check:
// another writer appended to the stream after the expected revision was read.
type StreamRevisionConflictError struct {
	Stream           string
	ExpectedRevision Revision
	ActualRevision   Revision
}

func (s StreamRevisionConflictError) Error() string {
	return fmt.Sprintf("concurrency conflict on stream %q: (expected version %d, actual %d)",
		s.Stream, s.ExpectedRevision, s.ActualRevision)
}

// ErrSkippedEvent is returned when a handler cannot handle the event type.
type ErrSkippedEvent struct {
	Event Event
}

func (e ErrSkippedEvent) Error() string {
	return fmt.Sprintf("skipped event of type %T", e.Event)
}

type EventStoreError struct {
	Err error
}

func (e *EventStoreError) Error() string {
	return fmt.Sprintf("eventstore error: %v", e.Err)
}

func (e *EventStoreError) Unwrap() error {
	return e.Err
}

func WrapEventStoreError(err error) error {
	if err == nil {
		return nil
	}
	return &EventStoreError{Err: err}
}
