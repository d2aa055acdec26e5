package tracing

import (
	"context"

	"github.com/mickyco94/minuteur/internal/executor"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Recorder turns each executor measurement into a span. The span is
// created after the fact, backdated to the measured start and end.
type Recorder struct {
	tracer trace.Tracer
}

func NewRecorder(tracer trace.Tracer) *Recorder {
	return &Recorder{tracer: tracer}
}

// Record implements executor.Recorder
func (r *Recorder) Record(m executor.Measurement) {
	_, span := r.tracer.Start(context.Background(), m.Name,
		trace.WithTimestamp(m.StartedAt),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.name", m.Name),
			attribute.String("operation.run_id", m.RunID),
			attribute.String("operation.outcome", m.Outcome()),
			attribute.Int64("operation.elapsed_ms", m.Elapsed.Milliseconds()),
		),
	)

	switch {
	case m.Panicked:
		span.SetStatus(codes.Error, "operation panicked")
	case m.Err != nil:
		span.RecordError(m.Err)
		span.SetStatus(codes.Error, m.Err.Error())
	default:
		span.SetStatus(codes.Ok, "")
	}

	span.End(trace.WithTimestamp(m.FinishedAt))
}
