package eventsourcing

import "context"

type SubscriberOption func(cfg any)

// EventBus distributes committed event envelopes to all matching subscribers.
// Delivery across subscribers is not guaranteed to be in order.
type EventBus interface {
	// Subscribe adds a named handler with a filter deciding which events it
	// receives. Returns an error if the filter or handler is nil, or if the
	// name is already registered. The subscription is removed when ctx ends.
	Subscribe(ctx context.Context, name string, filter func(Event) bool, handler EventHandler, options ...SubscriberOption) error

	// Dispatch delivers an envelope to all matching subscribers.
	Dispatch(ctx context.Context, env *Envelope) error

	// Errors returns an error channel where async handling errors are sent.
	Errors() <-chan error

	// Close closes the EventBus and waits for all handlers to finish.
	Close() error
}

// MatchAll is a subscription filter accepting every event.
func MatchAll(Event) bool { return true }

// MatchEventTypes accepts events whose EventType is in the given set.
func MatchEventTypes(types ...string) func(Event) bool {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(ev Event) bool {
		_, ok := set[ev.EventType()]
		return ok
	}
}
