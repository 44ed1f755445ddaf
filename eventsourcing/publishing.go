package eventsourcing

import "context"

// publishingStore decorates an EventStore so every successfully appended
// envelope is also dispatched on an EventBus. Dispatch happens after the
// append commits and is best-effort: a dispatch failure never undoes or
// fails the append, since projections can always catch up by replaying the
// log. Failures are passed to onError when set.
type publishingStore struct {
	EventStore
	bus     EventBus
	onError func(error)
}

// WithEventPublication returns a store that dispatches saved envelopes on
// bus. onError may be nil.
func WithEventPublication(store EventStore, bus EventBus, onError func(error)) EventStore {
	return &publishingStore{EventStore: store, bus: bus, onError: onError}
}

func (s *publishingStore) Save(ctx context.Context, events []Envelope, revision StreamState) (AppendResult, error) {
	result, err := s.EventStore.Save(ctx, events, revision)
	if err != nil {
		return result, err
	}

	for i := range events {
		// The store stamped Version and GlobalVersion during the append.
		if dispatchErr := s.bus.Dispatch(ctx, &events[i]); dispatchErr != nil && s.onError != nil {
			s.onError(dispatchErr)
		}
	}
	return result, nil
}
