// Package exporter writes pipeline results as CSV files for downstream tooling.
//
// Per measurement file, named by its batch label (see files.Labels), the
// CSVWriter produces:
//
//	<label>_cropped.csv       resolution-cropped series
//	<label>_cycle_NNN.csv     one series per cycle segment
//	<label>_capacitance.csv   capacitance table, one row per cycle
//	<label>_half_cycles.csv   per half-cycle capacitance and ideality
//
// and per batch capacitances.csv and cropped.csv, whose rows are tagged with
// the file they came from.
//
// Unset capacitance fields are written as empty cells and undefined values as
// NaN, so a reader can tell "not measured" from "not computable".
//
// Example usage:
//
//	w := exporter.NewCSVWriter(files.NewManager("out"))
//	path, err := w.WriteCapacitance(result.Label, table)
package exporter
