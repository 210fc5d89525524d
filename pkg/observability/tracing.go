package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer colframe spans are created with.
const InstrumentationName = "github.com/ajitpratap0/colframe"

// Tracer returns the colframe tracer from the global provider. Without
// InitTracing it is a no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Span wraps a trace.Span, batching attributes until End.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// NewSpan starts a span named operationName.
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := Tracer().Start(ctx, operationName)

	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute adds an attribute to the span.
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// RecordError marks the span as failed, or as ok when err is nil.
func (s *Span) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		return
	}
	s.span.SetStatus(codes.Ok, "")
}

// End sets the batched attributes and the elapsed time, then ends the span.
func (s *Span) End() {
	s.attributes = append(s.attributes, attribute.Int64("duration_us", time.Since(s.startTime).Microseconds()))
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}

// FormatTracer opens spans for the scans and writes of one file format.
type FormatTracer struct {
	format string
}

// NewFormatTracer returns a tracer for format, e.g. "csv" or "parquet".
func NewFormatTracer(format string) *FormatTracer {
	return &FormatTracer{format: format}
}

// StartSpan starts a span named "<format>.<operation>".
func (ft *FormatTracer) StartSpan(ctx context.Context, operation, path string) (context.Context, *Span) {
	ctx, span := NewSpan(ctx, ft.format+"."+operation)
	span.SetAttribute("format", ft.format)
	span.SetAttribute("operation", operation)
	span.SetAttribute("path", path)
	return ctx, span
}

// Trace runs fn inside a span and records the number of rows it reports.
func (ft *FormatTracer) Trace(ctx context.Context, operation, path string, fn func(context.Context) (int, error)) error {
	ctx, span := ft.StartSpan(ctx, operation, path)
	defer span.End()

	rows, err := fn(ctx)
	span.SetAttribute("rows", rows)
	span.RecordError(err)
	return err
}
