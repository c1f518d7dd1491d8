// Package operations runs measurement files through the processing stages
// and processes batches of independent files concurrently.
//
// Each file passes through the stages of StageOrder:
//
//	parse → columns → time_zero → crop → shift → segment → analyze
//
// A stage that does not apply to a file is skipped rather than failed: the
// column projection only applies to charge/discharge files, open circuit
// voltage files without a cycle_number column stop after the crop, and
// only charge/discharge files are analyzed. The first failing stage ends the
// file; its error is a *StageError naming the stage and the file.
//
// Core Components:
//
// Pipeline: runs the stages of one file and records a StepState per stage in
// the file's FileState.
//
// BatchRunner: processes every file of a batch with at most Workers files in
// flight. Each file gets its own trace id; a failing file never cancels its
// siblings. Results are returned in input order once the whole batch has
// finished, and BatchResult combines them into batch-wide tables.
//
// PipelineTracer: one span per batch, file and stage, plus the processing
// counters and duration histograms.
//
// Example usage:
//
//	tracer, err := operations.NewPipelineTracer(providers)
//	pipeline, err := operations.NewPipeline(operations.OptionsFrom(cfg.Pipeline), tracer)
//	result := operations.NewBatchRunner(pipeline, cfg.Pipeline.Workers).Run(ctx, paths)
//	for _, f := range result.Failed() {
//		log.Println(f.Err)
//	}
//	rows := result.CombinedCapacitances()
package operations
