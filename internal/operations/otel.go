package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"mptcli/internal/infrastructure"
)

const (
	TracerName = "mptcli.operations"
)

// PipelineTracer provides OpenTelemetry instrumentation for batches, files and stages
type PipelineTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewPipelineTracer creates a tracer from the initialized providers. With nil
// providers every span and instrument is a no-op.
func NewPipelineTracer(providers *infrastructure.OTelProviders) (*PipelineTracer, error) {
	tracer := tracenoop.NewTracerProvider().Tracer(TracerName)
	var meter metric.Meter = metricnoop.NewMeterProvider().Meter(TracerName)
	if providers != nil {
		if providers.TracerProvider != nil {
			tracer = providers.TracerProvider.Tracer(TracerName)
		} else if providers.Tracer != nil {
			tracer = providers.Tracer
		}
		if providers.Meter != nil {
			meter = providers.Meter
		}
	}

	metrics, err := infrastructure.CreatePipelineMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	return &PipelineTracer{tracer: tracer, metrics: metrics}, nil
}

// TraceBatch creates a span for a whole batch
func (pt *PipelineTracer) TraceBatch(ctx context.Context, files int) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "batch.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("batch.files", files),
			attribute.String("batch.trace_id", infrastructure.GetTraceID(ctx)),
		),
	)
}

// TraceFile creates a span for one file of a batch
func (pt *PipelineTracer) TraceFile(ctx context.Context, source string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "file.process",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("file.source", source),
			attribute.String("file.trace_id", infrastructure.GetTraceID(ctx)),
		),
	)
}

// TraceStage creates a span for one stage of one file
func (pt *PipelineTracer) TraceStage(ctx context.Context, source, stage string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "stage."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("file.source", source),
			attribute.String("stage.id", stage),
		),
	)
}

// RecordStage ends a stage span and records its duration
func (pt *PipelineTracer) RecordStage(ctx context.Context, span trace.Span, stage string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attribute.Float64("stage.duration_seconds", duration.Seconds()))
	span.End()

	pt.metrics.StageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		),
	)
}

// RecordSkip counts a stage that does not apply to a file
func (pt *PipelineTracer) RecordSkip(ctx context.Context, stage, reason string) {
	trace.SpanFromContext(ctx).AddEvent("stage.skipped", trace.WithAttributes(
		attribute.String("stage.id", stage),
		attribute.String("stage.reason", reason),
	))
	pt.metrics.StagesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordRecords counts data records read by the parser and kept by the crop
func (pt *PipelineTracer) RecordRecords(ctx context.Context, parsed, retained int) {
	if parsed > 0 {
		pt.metrics.RecordsParsed.Add(ctx, int64(parsed))
	}
	if retained > 0 {
		pt.metrics.RecordsRetained.Add(ctx, int64(retained))
	}
}

// RecordFile ends a file span and counts its outcome
func (pt *PipelineTracer) RecordFile(ctx context.Context, span trace.Span, result *FileResult) {
	outcome := "success"
	if result.Err != nil {
		outcome = "failure"
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())

		stage, _ := FailedStage(result.Err)
		pt.metrics.FileFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attribute.String("file.outcome", outcome))
	span.End()

	pt.metrics.FilesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordBatch ends a batch span and records its duration
func (pt *PipelineTracer) RecordBatch(ctx context.Context, span trace.Span, result *BatchResult) {
	failed := len(result.Failed())
	span.SetAttributes(
		attribute.Int("batch.succeeded", len(result.Files)-failed),
		attribute.Int("batch.failed", failed),
		attribute.Float64("batch.duration_seconds", result.Duration.Seconds()),
	)
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d files failed", failed, len(result.Files)))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	pt.metrics.BatchDuration.Record(ctx, result.Duration.Seconds())
}
