package eventsourcing

import (
	"context"
)

// EventStore defines the contract for an append-only event store
// used in event-sourced systems. An EventStore persists events
// associated with a given stream ID in sequential order, allowing
// for full reconstruction of aggregate state at any point in time.
//
// Implementations must guarantee:
//   - Events for a given stream are stored in order, versions 1..n with no gaps.
//   - Concurrency control based on the expected stream revision, applied
//     atomically with the append.
//   - Iteration order from all Load* methods is deterministic (oldest → newest).
//
// The returned iterators are lazy. They should be consumed immediately; no
// assumptions should be made about reusability or thread-safety after
// iteration completes.
type EventStore interface {
	// Save appends all events in the given slice to the event stream they
	// belong to. All envelopes in one batch must carry the same StreamID.
	//
	// revision is the precondition placed on the stream:
	//   - Any: always append, do not check for conflicts.
	//   - NoStream: stream must not exist; fail with ErrStreamExists if it does.
	//   - StreamExists: stream must exist; fail with ErrStreamNotFound if not.
	//   - Revision(n): stream must currently be at version n; fail with
	//     *StreamRevisionConflictError otherwise.
	Save(ctx context.Context, events []Envelope, revision StreamState) (AppendResult, error)

	// LoadStream loads all events for the given stream ID from version 1 onward.
	// A missing stream yields ErrStreamNotFound.
	LoadStream(ctx context.Context, id string) (*Iterator[*Envelope], error)

	// LoadStreamFrom loads all events for the given stream ID starting at the
	// specified zero-based version index.
	LoadStreamFrom(ctx context.Context, id string, version uint64) (*Iterator[*Envelope], error)

	// LoadFromAll loads events from all streams starting at the given global
	// position. Events are yielded in the order the store committed them;
	// per-stream order is preserved, cross-stream order is store-specific.
	LoadFromAll(ctx context.Context, version uint64) (*Iterator[*Envelope], error)

	// Close releases any resources held by the EventStore. Implementations
	// should make Close idempotent.
	Close() error
}

// AppendResult describes the outcome of an append operation.
type AppendResult struct {
	Successful          bool
	NextExpectedVersion uint64
}
