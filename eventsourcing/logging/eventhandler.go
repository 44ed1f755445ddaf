package logging

import (
	"context"
	"log/slog"

	cqrs "github.com/terraskye/booking/eventsourcing"
)

// WithLoggingMiddleware wraps an EventHandler so each delivery is logged with
// the envelope coordinates from the handler context.
func WithLoggingMiddleware(logger *slog.Logger, next cqrs.EventHandler) cqrs.EventHandler {
	return cqrs.NewEventHandlerFunc(func(ctx context.Context, event cqrs.Event) error {
		l := logger.With(
			"event-type", event.EventType(),
			"stream-id", cqrs.StreamIDFromContext(ctx),
			"causation", cqrs.CausationFromContext(ctx),
			"version", cqrs.VersionFromContext(ctx),
			"global-version", cqrs.GlobalVersionFromContext(ctx),
		)

		l.DebugContext(ctx, "event processing started")

		err := next.Handle(ctx, event)

		if err != nil {
			l.ErrorContext(ctx, "error processing event", "error", err)
			return err
		}

		l.DebugContext(ctx, "event processed successfully")
		return nil
	})
}
