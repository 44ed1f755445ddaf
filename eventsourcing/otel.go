package eventsourcing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/terraskye/booking/eventsourcing"
)

// Semantic attribute keys following OpenTelemetry conventions
const (
	AttrQueryType  = attribute.Key("eventsourcing.query.type")
	AttrResultType = attribute.Key("eventsourcing.query.result_type")
	AttrErrorType  = attribute.Key("eventsourcing.error.type")
)

var (
	meter  = otel.Meter(instrumentationName, metric.WithInstrumentationVersion(InstrumentationVersion))
	tracer = otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(InstrumentationVersion))

	// Query metrics
	QueriesHandled, _ = meter.Int64Counter(
		"eventsourcing.queries.handled",
		metric.WithDescription("Total number of queries handled"),
		metric.WithUnit("{query}"),
	)

	QueriesDuration, _ = meter.Float64Histogram(
		"eventsourcing.queries.duration",
		metric.WithDescription("Query handling duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)

	QueriesInFlight, _ = meter.Int64UpDownCounter(
		"eventsourcing.queries.in_flight",
		metric.WithDescription("Number of queries currently being processed"),
		metric.WithUnit("{query}"),
	)

	QueriesFailed, _ = meter.Int64Counter(
		"eventsourcing.queries.failed",
		metric.WithDescription("Number of failed queries"),
		metric.WithUnit("{query}"),
	)
)

// StartQuerySpan starts an internal span for handling the given query.
func StartQuerySpan(ctx context.Context, qry any) (context.Context, trace.Span) {
	return tracer.Start(ctx, "query.handle "+TypeName(qry),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			AttrQueryType.String(TypeName(qry)),
		),
	)
}

// EndQuerySpan records the outcome of query handling on the span. The caller
// remains responsible for ending the span.
func EndQuerySpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
