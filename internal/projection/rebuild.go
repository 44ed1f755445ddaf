package projection

import (
	"context"
	"errors"
	"fmt"

	cqrs "github.com/terraskye/booking/eventsourcing"
)

// Rebuild replays the full event log through the given handlers, oldest
// first. Handlers see the same envelope context values as live bus delivery,
// so projectors fold replayed events exactly like dispatched ones. Skipped
// events are not an error during replay.
func Rebuild(ctx context.Context, store cqrs.EventStore, handlers ...cqrs.EventHandler) error {
	iter, err := store.LoadFromAll(ctx, 0)
	if err != nil {
		return fmt.Errorf("load event log: %w", err)
	}

	for iter.Next(ctx) {
		env := iter.Value()
		evCtx := cqrs.WithEnvelope(ctx, env)

		for _, handler := range handlers {
			if err := handler.Handle(evCtx, env.Event); err != nil {
				var skipped *cqrs.ErrSkippedEvent
				if errors.As(err, &skipped) {
					continue
				}
				return fmt.Errorf("replay %s at global position %d: %w",
					env.Event.EventType(), env.GlobalVersion, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("iterate event log: %w", err)
	}
	return nil
}
