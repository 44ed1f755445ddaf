package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/terraskye/booking/eventsourcing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var _ eventsourcing.EventStore = (*TelemetryStore)(nil)

// TelemetryStore decorates an EventStore with OpenTelemetry tracing and
// metrics. Save additionally injects the active trace context, causation and
// correlation identifiers into each envelope's metadata, so consumers on the
// other side of the bus can link their spans back to the producing command.
type TelemetryStore struct {
	next eventsourcing.EventStore
}

// Save with metrics + span
func (t TelemetryStore) Save(ctx context.Context, events []eventsourcing.Envelope, revision eventsourcing.StreamState) (eventsourcing.AppendResult, error) {
	var streamID string
	for _, event := range events {
		streamID = event.StreamID
		break
	}

	ctx, span := tracer.Start(ctx, "EventStore.Save",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrOperation.String("save"),
			AttrStreamID.String(streamID),
			AttrStreamVersion.String(fmt.Sprintf("%T", revision)),
		),
	)
	defer span.End()

	{
		carrier := propagation.MapCarrier{}

		causationID := eventsourcing.CausationFromContext(ctx)

		otel.GetTextMapPropagator().Inject(ctx, carrier)
		for i := range events {
			if events[i].Metadata == nil {
				events[i].Metadata = make(map[string]any)
			}
			if causationID != "" {
				events[i].Metadata["causationId"] = causationID
			}

			if span.SpanContext().HasTraceID() {
				events[i].Metadata["correlationId"] = span.SpanContext().TraceID().String()
			}

			for key, value := range carrier {
				events[i].Metadata[key] = value
			}
		}
	}

	start := time.Now()
	result, err := t.next.Save(ctx, events, revision)
	duration := time.Since(start)

	EventStoreDuration.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(
			AttrOperation.String("save"),
		),
	)
	EventStoreSaves.Add(ctx, 1)
	EventsAppended.Add(ctx, int64(len(events)))

	if err != nil {
		var conflict *eventsourcing.StreamRevisionConflictError
		if errors.As(err, &conflict) {
			ConcurrencyConflicts.Add(ctx, 1, metric.WithAttributes(AttrStreamID.String(streamID)))
		}
		EventStoreErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return result, err
}

// LoadStream with inline tracing middleware
func (t TelemetryStore) LoadStream(ctx context.Context, id string) (*eventsourcing.Iterator[*eventsourcing.Envelope], error) {
	iter, err := t.next.LoadStream(ctx, id)
	if err != nil {
		EventStoreErrors.Add(ctx, 1)
		return iter, err
	}
	return t.instrumentIterator(iter, "EventStore.LoadStream", AttrStreamID.String(id)), nil
}

// LoadStreamFrom with inline tracing middleware
func (t TelemetryStore) LoadStreamFrom(ctx context.Context, id string, version uint64) (*eventsourcing.Iterator[*eventsourcing.Envelope], error) {
	iter, err := t.next.LoadStreamFrom(ctx, id, version)
	if err != nil {
		EventStoreErrors.Add(ctx, 1)
		return iter, err
	}
	return t.instrumentIterator(iter, "EventStore.LoadStreamFrom", AttrStreamID.String(id)), nil
}

// LoadFromAll with inline tracing middleware
func (t TelemetryStore) LoadFromAll(ctx context.Context, version uint64) (*eventsourcing.Iterator[*eventsourcing.Envelope], error) {
	iter, err := t.next.LoadFromAll(ctx, version)
	if err != nil {
		EventStoreErrors.Add(ctx, 1)
		return iter, err
	}
	return t.instrumentIterator(iter, "EventStore.LoadFromAll"), nil
}

// instrumentIterator wraps a load iterator so the span covers the full read,
// from the first Next call until exhaustion or error.
func (t TelemetryStore) instrumentIterator(
	iter *eventsourcing.Iterator[*eventsourcing.Envelope],
	operation string,
	attrs ...attribute.KeyValue,
) *eventsourcing.Iterator[*eventsourcing.Envelope] {
	started := false
	var startedAt time.Time
	var span trace.Span
	var eventCount int64

	return eventsourcing.NewIteratorFunc(func(ctx context.Context) (*eventsourcing.Envelope, error) {
		if !started {
			started = true
			startedAt = time.Now()
			ctx, span = tracer.Start(ctx, operation,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(attrs...),
			)
		}

		if !iter.Next(ctx) {
			span.SetAttributes(AttrEventCount.Int64(eventCount))

			err := iter.Err()
			if err == nil {
				EventStoreDuration.Record(ctx, float64(time.Since(startedAt).Milliseconds()),
					metric.WithAttributes(AttrOperation.String(operation)))
				span.End()
				return nil, io.EOF
			}

			EventStoreErrors.Add(ctx, 1)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return nil, err
		}

		eventCount++
		EventsLoaded.Add(ctx, 1)
		return iter.Value(), nil
	})
}

// Close just forwards
func (t TelemetryStore) Close() error {
	return t.next.Close()
}

// WithEventStoreTelemetry wraps an EventStore with OpenTelemetry tracing and metrics.
func WithEventStoreTelemetry(next eventsourcing.EventStore, options ...Option) eventsourcing.EventStore {
	return TelemetryStore{next: next}
}
