package operations

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"mptcli/internal/files"
	"mptcli/internal/infrastructure"
	"mptcli/pkg/contracts/domain"
)

// DefaultWorkers is the number of files processed concurrently when none is configured
const DefaultWorkers = 4

// BatchRunner processes independent files concurrently, one worker per file
type BatchRunner struct {
	pipeline *Pipeline
	workers  int
	logger   *slog.Logger
}

// NewBatchRunner creates a runner with at most workers files in flight
func NewBatchRunner(pipeline *Pipeline, workers int) *BatchRunner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &BatchRunner{
		pipeline: pipeline,
		workers:  workers,
		logger:   infrastructure.WithComponent(slog.Default(), "batch_runner"),
	}
}

// BatchResult holds the per-file results in input order
type BatchResult struct {
	TraceID  string
	Files    []*FileResult
	Duration time.Duration
}

// Run processes every path and waits for all of them. A failing file never
// stops its siblings; its error is recorded on its FileResult. Files are
// labelled with files.Labels so labels are unique within the batch.
func (b *BatchRunner) Run(ctx context.Context, paths []string) *BatchResult {
	ctx = infrastructure.EnsureTraceID(ctx)
	tracer := b.pipeline.tracer
	start := time.Now()

	ctx, span := tracer.TraceBatch(ctx, len(paths))
	b.logger.InfoContext(ctx, "Starting batch",
		slog.Int("files", len(paths)),
		slog.Int("workers", b.workers))

	labels := files.Labels(paths)
	results := make([]*FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = b.pipeline.run(infrastructure.ContextWithTraceID(gctx), path, labels[i])
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{
		TraceID:  infrastructure.GetTraceID(ctx),
		Files:    results,
		Duration: time.Since(start),
	}
	tracer.RecordBatch(ctx, span, result)

	b.logger.InfoContext(ctx, "Batch complete",
		slog.Int("files", len(results)),
		slog.Int("failed", len(result.Failed())),
		slog.Duration("duration", result.Duration))
	return result
}

// Succeeded returns the files where no stage failed, in input order
func (r *BatchResult) Succeeded() []*FileResult {
	var out []*FileResult
	for _, f := range r.Files {
		if f.Succeeded() {
			out = append(out, f)
		}
	}
	return out
}

// Failed returns the files where a stage failed, in input order
func (r *BatchResult) Failed() []*FileResult {
	var out []*FileResult
	for _, f := range r.Files {
		if !f.Succeeded() {
			out = append(out, f)
		}
	}
	return out
}

// CombinedCapacitances concatenates the capacitance rows of every successful
// file that was analyzed, tagged with the file label, in input order.
func (r *BatchResult) CombinedCapacitances() []domain.LabeledCapacitanceRecord {
	rows := []domain.LabeledCapacitanceRecord{}
	for _, f := range r.Succeeded() {
		if f.Capacitance == nil {
			continue
		}
		for _, rec := range f.Capacitance.Records {
			rows = append(rows, domain.LabeledCapacitanceRecord{File: f.Label, CapacitanceRecord: rec})
		}
	}
	return rows
}

// CombinedCropped concatenates the cropped series of every successful file
// over the columns all of them share, in the first file's column order.
func (r *BatchResult) CombinedCropped() *domain.CombinedSeries {
	var cropped []*FileResult
	for _, f := range r.Succeeded() {
		if f.Cropped != nil {
			cropped = append(cropped, f)
		}
	}

	combined := &domain.CombinedSeries{Columns: []string{}, Files: []string{}, Rows: [][]float64{}}
	if len(cropped) == 0 {
		return combined
	}

	for _, name := range cropped[0].Cropped.Series.Columns {
		shared := true
		for _, f := range cropped[1:] {
			if !f.Cropped.Series.HasColumn(name) {
				shared = false
				break
			}
		}
		if shared {
			combined.Columns = append(combined.Columns, name)
		}
	}

	for _, f := range cropped {
		series := f.Cropped.Series
		indices := make([]int, len(combined.Columns))
		for i, name := range combined.Columns {
			indices[i], _ = series.ColumnIndex(name)
		}
		for _, row := range series.Rows {
			values := make([]float64, len(indices))
			for i, idx := range indices {
				values[i] = row[idx]
			}
			combined.Rows = append(combined.Rows, values)
			combined.Files = append(combined.Files, f.Label)
		}
	}
	return combined
}
