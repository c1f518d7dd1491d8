// Package dataprocessing turns EC-Lab ASCII exports into analysis results.
// It covers the whole per-file lifecycle, from raw text to the per-cycle
// capacitance table.
//
// # Architecture
//
// The package is organized into four stages, each consuming the previous
// stage's result type so they cannot be run out of order:
//
// 1. Parser: reads the text export into a RawMeasurement (metadata, flags, technique table, series)
// 2. Cropper: drops samples below the time and potential resolution
// 3. Segmenter: shifts the cycle indices and splits the series into cycles and half-cycles
// 4. Analyzer: computes capacitance, ideality and faradaic efficiency per cycle
//
// # Usage
//
//	raw, err := dataprocessing.ParseFile("sample_C01.mpt")
//	if err != nil {
//	    return err
//	}
//	cropped, err := dataprocessing.Crop(raw, dataprocessing.Thresholds(10, 0.01))
//	if err != nil {
//	    return err
//	}
//	shifted, err := dataprocessing.ShiftCycles(cropped)
//	if err != nil {
//	    return err
//	}
//	seg, err := dataprocessing.Segment(shifted)
//	if err != nil {
//	    return err
//	}
//	table, err := dataprocessing.AnalyzeCapacitance(seg)
//
// # Data Flow
//
//	.mpt → Parse → RawMeasurement → Crop → CroppedSeries → ShiftCycles → ShiftedSeries
//	     → Segment → Segmentation → AnalyzeCapacitance → CapacitanceTable
//
// # Error Handling
//
// Errors are *errors.AppError values and can be classified with errors.Is
// against the sentinels of internal/errors:
//
//   - Malformed files fail with ErrFormat and carry the offending line
//   - Unconvertible numbers fail with ErrParse
//   - Missing crop thresholds fail with ErrConfig
//   - Stages run on unsuitable input fail with ErrMissingColumn,
//     ErrUnsupportedTechnique or ErrPrecursorNotRun
//
// Every stage returns new values and never mutates its input.
package dataprocessing
