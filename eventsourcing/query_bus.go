package eventsourcing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// QueryBus acts as a central registry for query handlers. It stores
// handlers keyed by their query and result types, allowing multiple
// query types to be registered in a single bus.
//
// Handlers can later be executed via a typed GenericQueryGateway.
//
// Example Usage:
//
//	bus := NewQueryBus()
//	RegisterQueryHandler[MyQuery, *MyResult](bus, NewQueryHandlerFunc(func(ctx context.Context, q MyQuery) (*MyResult, error) {
//	    return &MyResult{Value: 42}, nil
//	}))
type QueryBus struct {
	handlers map[string]any
}

// NewQueryBus creates a new QueryBus instance.
func NewQueryBus() *QueryBus {
	return &QueryBus{
		handlers: make(map[string]any),
	}
}

// HandlerOption represents an optional configuration function that can
// modify handler behavior or metadata. Currently reserved for future
// extensions such as worker pools, timeouts, or rate limiting.
type HandlerOption func(*handlerSettings)

// handlerSettings stores internal configuration for a registered handler.
type handlerSettings struct {
}

// RegisterQueryHandler registers a QueryHandler for a specific query
// and result type on the provided QueryBus.
//
// The handler is wrapped with OpenTelemetry instrumentation: a span per
// query, in-flight/handled/failed counters and a duration histogram. The
// key for storage is generated from the concrete query and result types.
func RegisterQueryHandler[T Query, R any | Iterator[any]](bus *QueryBus, handler QueryHandler[T, R], opts ...HandlerOption) {
	key := fmt.Sprintf("%T|%T", *new(T), *new(R))

	wrapped := NewQueryHandlerFunc(func(ctx context.Context, qry T) (R, error) {
		startTime := time.Now()

		ctx, span := StartQuerySpan(ctx, qry)
		defer span.End()

		QueriesInFlight.Add(ctx, 1,
			metric.WithAttributes(
				AttrQueryType.String(TypeName(qry)),
			),
		)
		defer QueriesInFlight.Add(ctx, -1,
			metric.WithAttributes(
				AttrQueryType.String(TypeName(qry)),
			),
		)

		result, err := handler.HandleQuery(ctx, qry)

		duration := float64(time.Since(startTime).Milliseconds())

		if err != nil {
			QueriesFailed.Add(ctx, 1,
				metric.WithAttributes(
					AttrQueryType.String(TypeName(qry)),
					AttrErrorType.String("handler_error"),
				),
			)
			EndQuerySpan(span, err)
			return result, err
		}

		QueriesHandled.Add(ctx, 1,
			metric.WithAttributes(
				AttrQueryType.String(TypeName(qry)),
			),
		)

		QueriesDuration.Record(ctx, duration,
			metric.WithAttributes(
				AttrQueryType.String(TypeName(qry)),
			),
		)

		EndQuerySpan(span, nil)
		return result, nil
	})

	meta := &handlerSettings{}
	for _, opt := range opts {
		opt(meta)
	}

	bus.handlers[key] = wrapped
}
