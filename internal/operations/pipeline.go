package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mptcli/internal/config"
	"mptcli/internal/dataprocessing"
	"mptcli/internal/files"
	"mptcli/internal/infrastructure"
	"mptcli/pkg/contracts/domain"
)

// Options configures the per-file stages
type Options struct {
	Crop dataprocessing.CropOptions
	// Columns projects charge/discharge files before cropping; empty keeps every column
	Columns         []string
	ShiftTimeToZero bool
}

// OptionsFrom maps the pipeline section of the application configuration
func OptionsFrom(cfg config.PipelineConfig) Options {
	return Options{
		Crop: dataprocessing.CropOptions{
			DeltaTime:      cfg.DeltaTime,
			DeltaPotential: cfg.DeltaPotential,
		},
		Columns:         append([]string(nil), cfg.Columns...),
		ShiftTimeToZero: cfg.ShiftTimeToZero,
	}
}

// FileResult holds every stage output of one file. Outputs of stages that
// failed or were skipped are nil.
type FileResult struct {
	Source string
	// Label names the file's outputs and identifies it in combined tables
	Label string
	State *FileState

	Raw          *domain.RawMeasurement
	Cropped      *domain.CroppedSeries
	Shifted      *domain.ShiftedSeries
	Segmentation *domain.Segmentation
	Capacitance  *domain.CapacitanceTable

	// Err is a *StageError when a stage failed
	Err error
}

// Succeeded reports whether no stage failed
func (r *FileResult) Succeeded() bool {
	return r.Err == nil
}

// Pipeline runs the stages over one file
type Pipeline struct {
	opts   Options
	tracer *PipelineTracer
	logger *slog.Logger
}

// NewPipeline creates a pipeline. A nil tracer disables instrumentation.
func NewPipeline(opts Options, tracer *PipelineTracer) (*Pipeline, error) {
	if tracer == nil {
		var err error
		if tracer, err = NewPipelineTracer(nil); err != nil {
			return nil, err
		}
	}
	return &Pipeline{
		opts:   opts,
		tracer: tracer,
		logger: infrastructure.WithComponent(slog.Default(), "pipeline"),
	}, nil
}

// Run processes the file at path, labelled with its stem. Failures are
// reported on the result, never returned.
func (p *Pipeline) Run(ctx context.Context, path string) *FileResult {
	return p.run(ctx, path, files.Stem(path))
}

func (p *Pipeline) run(ctx context.Context, path, label string) *FileResult {
	ctx = infrastructure.EnsureTraceID(ctx)
	result := &FileResult{
		Source: path,
		Label:  label,
		State:  NewFileState(path, infrastructure.GetTraceID(ctx)),
	}

	ctx, span := p.tracer.TraceFile(ctx, path)
	result.State.Start()
	p.logger.InfoContext(ctx, "Processing measurement file", slog.String("file", path))

	if err := p.runStages(ctx, result); err != nil {
		result.Err = err
		result.State.Fail(err)
		p.logger.ErrorContext(ctx, "Measurement file failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
	} else {
		result.State.Complete()
		p.logger.InfoContext(ctx, "Measurement file processed",
			slog.String("file", path),
			slog.Duration("duration", result.State.Duration()),
			slog.Any("skipped_stages", result.State.StagesWithStatus(StepStatusSkipped)))
	}

	p.tracer.RecordFile(ctx, span, result)
	return result
}

func (p *Pipeline) runStages(ctx context.Context, r *FileResult) error {
	if err := p.stage(ctx, r, StageParse, func() error {
		raw, err := dataprocessing.ParseFile(r.Source)
		if err != nil {
			return err
		}
		r.Raw = raw
		p.tracer.RecordRecords(ctx, raw.Series.Len(), 0)
		return nil
	}); err != nil {
		return err
	}

	switch {
	case len(p.opts.Columns) == 0:
		p.skip(ctx, r, StageColumns, "no column projection configured")
	case !r.Raw.IsChargeDischarge():
		p.skip(ctx, r, StageColumns, fmt.Sprintf("technique %q keeps all columns", r.Raw.FileType))
	default:
		if err := p.stage(ctx, r, StageColumns, func() error {
			projected, err := dataprocessing.CropColumns(r.Raw, p.opts.Columns)
			if err != nil {
				return err
			}
			r.Raw = projected
			return nil
		}); err != nil {
			return err
		}
	}

	if !p.opts.ShiftTimeToZero {
		p.skip(ctx, r, StageTimeZero, "time-zero shift disabled")
	} else if err := p.stage(ctx, r, StageTimeZero, func() error {
		shifted, err := dataprocessing.ShiftTimeToZero(r.Raw)
		if err != nil {
			return err
		}
		r.Raw = shifted
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, r, StageCrop, func() error {
		cropped, err := dataprocessing.Crop(r.Raw, p.opts.Crop)
		if err != nil {
			return err
		}
		r.Cropped = cropped
		p.tracer.RecordRecords(ctx, 0, cropped.Series.Len())
		return nil
	}); err != nil {
		return err
	}

	if !r.Cropped.Series.HasColumn(domain.ColumnCycle) {
		reason := fmt.Sprintf("no %s column", domain.ColumnCycle)
		for _, id := range []string{StageShift, StageSegment, StageAnalyze} {
			p.skip(ctx, r, id, reason)
		}
		return nil
	}

	if err := p.stage(ctx, r, StageShift, func() error {
		shifted, err := dataprocessing.ShiftCycles(r.Cropped)
		if err != nil {
			return err
		}
		r.Shifted = shifted
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, r, StageSegment, func() error {
		seg, err := dataprocessing.Segment(r.Shifted)
		if err != nil {
			return err
		}
		r.Segmentation = seg
		return nil
	}); err != nil {
		return err
	}

	if !r.Raw.IsChargeDischarge() {
		p.skip(ctx, r, StageAnalyze, fmt.Sprintf("technique %q is not charge/discharge", r.Raw.FileType))
		return nil
	}
	return p.stage(ctx, r, StageAnalyze, func() error {
		table, err := dataprocessing.AnalyzeCapacitance(r.Segmentation)
		if err != nil {
			return err
		}
		r.Capacitance = table
		return nil
	})
}

// stage runs fn as one traced stage and wraps its failure in a StageError
func (p *Pipeline) stage(ctx context.Context, r *FileResult, id string, fn func() error) error {
	state := r.State.Stage(id)
	if err := ctx.Err(); err != nil {
		state.Fail(err)
		return NewStageError(id, r.Source, err)
	}

	stageCtx, span := p.tracer.TraceStage(ctx, r.Source, id)
	state.Start()
	start := time.Now()

	err := fn()
	p.tracer.RecordStage(stageCtx, span, id, time.Since(start), err)
	if err != nil {
		state.Fail(err)
		return NewStageError(id, r.Source, err)
	}
	state.Complete()

	p.logger.DebugContext(ctx, "Stage completed",
		slog.String("file", r.Source),
		slog.String("stage", id),
		slog.Duration("duration", state.Duration()))
	return nil
}

func (p *Pipeline) skip(ctx context.Context, r *FileResult, id, reason string) {
	r.State.Stage(id).Skip(reason)
	p.tracer.RecordSkip(ctx, id, reason)
	p.logger.DebugContext(ctx, "Stage skipped",
		slog.String("file", r.Source),
		slog.String("stage", id),
		slog.String("reason", reason))
}

