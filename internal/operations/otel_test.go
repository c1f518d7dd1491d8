package operations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mptcli/internal/infrastructure"
	"mptcli/internal/operations"
)

type instrumented struct {
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	tracer *operations.PipelineTracer
}

func newInstrumented(t *testing.T) *instrumented {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	tracer, err := operations.NewPipelineTracer(&infrastructure.OTelProviders{
		TracerProvider: tp,
		MeterProvider:  mp,
		Meter:          mp.Meter(infrastructure.MeterName),
	})
	require.NoError(t, err)
	return &instrumented{spans: spans, reader: reader, tracer: tracer}
}

// counterTotal sums every data point of an int64 counter
func (in *instrumented) counterTotal(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, in.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestNewPipelineTracer_NilProviders(t *testing.T) {
	tracer, err := operations.NewPipelineTracer(nil)
	require.NoError(t, err)

	ctx, span := tracer.TraceStage(context.Background(), "a.mpt", operations.StageParse)
	tracer.RecordStage(ctx, span, operations.StageParse, 0, nil)
	assert.False(t, span.IsRecording())
}

func TestPipelineTracer_BatchInstrumentation(t *testing.T) {
	in := newInstrumented(t)
	p, err := operations.NewPipeline(defaultOptions(), in.tracer)
	require.NoError(t, err)

	result := operations.NewBatchRunner(p, 2).Run(context.Background(), writeBatch(t))
	require.Len(t, result.Failed(), 1)

	names := make(map[string]int)
	for _, s := range in.spans.Ended() {
		names[s.Name()]++
	}
	assert.Equal(t, 1, names["batch.run"])
	assert.Equal(t, 4, names["file.process"])
	assert.Equal(t, 4, names["stage.parse"])
	assert.Equal(t, 3, names["stage.crop"])
	assert.Equal(t, 2, names["stage.analyze"])

	assert.Equal(t, int64(4), in.counterTotal(t, "mpt_files_processed"))
	assert.Equal(t, int64(1), in.counterTotal(t, "mpt_file_failures"))
	assert.Equal(t, int64(20+6+20), in.counterTotal(t, "mpt_records_parsed"))
	assert.Equal(t, int64(20+6+20), in.counterTotal(t, "mpt_records_retained"))
	// time_zero on three files, columns and shift/segment/analyze on the OCV file
	assert.Equal(t, int64(3+4), in.counterTotal(t, "mpt_stages_skipped"))
}
