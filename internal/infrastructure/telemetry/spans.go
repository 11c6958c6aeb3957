package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for application-level spans.
const TracerName = "tesoreria-backend"

// Span attribute keys for ledger operations.
const (
	SpanAttrRecordID       = "record_id"
	SpanAttrRecordKind     = "record_kind"
	SpanAttrSequenceNumber = "sequence_number"
	SpanAttrAgreementCode  = "agreement_code"
	SpanAttrObjectKey      = "object_key"
	SpanAttrBucket         = "bucket"
)

// StartSpan opens an internal span on the global tracer. The caller must end
// it. Span names follow {service}.{operation}, e.g. "ledger_record.create".
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindInternal)}
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name, opts...)
}

// RecordError marks the span failed and records the error event.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
