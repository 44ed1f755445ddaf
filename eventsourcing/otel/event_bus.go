package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraskye/booking/eventsourcing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var _ eventsourcing.EventBus = (*TelemetryEventBus)(nil)

// TelemetryEventBus wraps an EventBus with OpenTelemetry tracing and metrics.
//
// Subscriptions are decorated so every delivered event gets a consumer span
// linked back to the producing trace, which the TelemetryStore stashed in the
// envelope metadata on Save. Dispatch gets a producer span.
type TelemetryEventBus struct {
	next eventsourcing.EventBus
	cfg  *config
}

// Dispatch publishes the envelope under a producer span.
func (t *TelemetryEventBus) Dispatch(ctx context.Context, env *eventsourcing.Envelope) error {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("events.publish %s", env.Event.EventType()),
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			AttrEventType.String(env.Event.EventType()),
			AttrEventID.String(env.EventID.String()),
			AttrStreamID.String(env.StreamID),
		),
	)
	defer span.End()

	err := t.next.Dispatch(ctx, env)

	EventBusPublished.Add(ctx, 1, metric.WithAttributes(AttrEventType.String(env.Event.EventType())))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Subscribe registers an event handler wrapped with telemetry instrumentation.
//
// For each received event the wrapper:
//  1. Extracts trace context from the envelope metadata on the handler context.
//  2. Opens a consumer span named "subscription.receive {name}" linked to the
//     original producer trace.
//  3. Invokes the handler under an inner "events.handle {eventType}" span.
//  4. Records handled count, duration and errors. ErrSkippedEvent counts as an
//     intentional skip, not an error.
func (t *TelemetryEventBus) Subscribe(
	ctx context.Context,
	name string,
	filter func(eventsourcing.Event) bool,
	next eventsourcing.EventHandler,
	options ...eventsourcing.SubscriberOption,
) error {

	handler := eventsourcing.NewEventHandlerFunc(func(ctx context.Context, event eventsourcing.Event) error {

		attr := []attribute.KeyValue{
			AttrEventType.String(event.EventType()),
			AttrEventID.String(eventsourcing.EventIDFromContext(ctx).String()),
			AttrEventGlobalPos.String(fmt.Sprintf("%d", eventsourcing.GlobalVersionFromContext(ctx))),
			AttrEventStreamPos.String(fmt.Sprintf("%d", eventsourcing.VersionFromContext(ctx))),
			AttrStreamID.String(eventsourcing.StreamIDFromContext(ctx)),
			AttrSubscriberName.String(name),
		}

		operationName := fmt.Sprintf("events.handle %s", event.EventType())

		var span trace.Span
		ctx, span = tracer.Start(ctx, operationName,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attr...),
		)
		defer span.End()

		return next.Handle(ctx, event)
	})

	return t.next.Subscribe(ctx, name, filter, eventsourcing.NewEventHandlerFunc(func(ctx context.Context, event eventsourcing.Event) error {
		// Extract the original trace context from event metadata
		var carrier = make(propagation.MapCarrier)
		if metadata := eventsourcing.MetadataFromContext(ctx); len(metadata) > 0 {
			for k, v := range metadata {
				if stringV, ok := v.(string); ok && len(stringV) > 0 {
					carrier[k] = stringV
				}
			}
		}

		attr := []attribute.KeyValue{
			AttrEventType.String(event.EventType()),
			AttrEventID.String(eventsourcing.EventIDFromContext(ctx).String()),
			AttrEventGlobalPos.String(fmt.Sprintf("%d", eventsourcing.GlobalVersionFromContext(ctx))),
			AttrEventStreamPos.String(fmt.Sprintf("%d", eventsourcing.VersionFromContext(ctx))),
			AttrStreamID.String(eventsourcing.StreamIDFromContext(ctx)),
			AttrSubscriberName.String(name),
		}

		attr = append(attr, t.cfg.Attributes...)

		if t.cfg.GetAttributes != nil {
			attr = append(attr, t.cfg.GetAttributes(ctx)...)
		}

		// Extract the SpanContext from the original trace
		originalCtx := otel.GetTextMapPropagator().Extract(context.Background(), carrier)
		originalSpanContext := trace.SpanContextFromContext(originalCtx)

		operationName := fmt.Sprintf("subscription.receive %s", name)

		ctx, span := tracer.Start(ctx, operationName,
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithLinks(trace.Link{
				SpanContext: originalSpanContext,
				Attributes: []attribute.KeyValue{
					attribute.String("link.reason", "event.consumed.from.stream"),
				},
			}),
			trace.WithAttributes(attr...),
		)
		defer span.End()

		EventBusHandled.Add(ctx, 1, metric.WithAttributes(AttrEventType.String(event.EventType())))

		startTime := time.Now()
		err := handler.Handle(ctx, event)
		EventBusDuration.Record(ctx,
			float64(time.Since(startTime).Milliseconds()),
			metric.WithAttributes(AttrEventType.String(event.EventType())),
		)

		if err != nil {
			var skipped *eventsourcing.ErrSkippedEvent
			if errors.As(err, &skipped) {
				span.SetStatus(codes.Ok, "")
			} else {
				EventBusErrors.Add(ctx, 1, metric.WithAttributes(AttrEventType.String(event.EventType())))
				span.SetStatus(codes.Error, err.Error())
				span.RecordError(err)
			}
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil

	}), options...)

}

// Errors returns the error channel from the underlying event bus.
func (t *TelemetryEventBus) Errors() <-chan error {
	return t.next.Errors()
}

// Close closes the underlying event bus and waits for all handlers to finish.
func (t *TelemetryEventBus) Close() error {
	return t.next.Close()
}

// WithEventBusTelemetry wraps an EventBus with OpenTelemetry tracing and metrics.
func WithEventBusTelemetry(next eventsourcing.EventBus, options ...Option) *TelemetryEventBus {
	cfg := &config{}
	for _, o := range options {
		o.apply(cfg)
	}

	return &TelemetryEventBus{
		next: next,
		cfg:  cfg,
	}
}
