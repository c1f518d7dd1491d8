package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mptcli/internal/files"
	"mptcli/pkg/contracts/domain"
)

// Output file suffixes, appended to the measurement file's label
const (
	SuffixCropped     = "_cropped.csv"
	SuffixCycle       = "_cycle_%03d.csv"
	SuffixCapacitance = "_capacitance.csv"
	SuffixHalfCycles  = "_half_cycles.csv"

	// CombinedCapacitanceFile is the batch-wide capacitance table
	CombinedCapacitanceFile = "capacitances.csv"
	// CombinedCroppedFile is the batch-wide cropped series
	CombinedCroppedFile = "cropped.csv"
)

// CapacitanceHeaders is the column header of the capacitance table
var CapacitanceHeaders = []string{
	"cycle_number",
	"current/mA",
	"ideal_charge_capacitance/mF",
	"ideal_discharge_capacitance/mF",
	"charge_ideality",
	"discharge_ideality",
	"discharge_polarity_gap/V",
	"faradaic_efficiency",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter exports pipeline results as CSV files below the manager's output directory
type CSVWriter struct {
	files     *files.Manager
	bomPrefix bool
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(manager *files.Manager) *CSVWriter {
	return &CSVWriter{files: manager}
}

// WithBOM makes every written file start with a UTF-8 BOM, which spreadsheet
// tools use to detect the encoding of the unit headers.
func (w *CSVWriter) WithBOM(enabled bool) *CSVWriter {
	w.bomPrefix = enabled
	return w
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	slog.Debug("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteSimpleCSV writes a simple CSV file with headers and records
func (w *CSVWriter) WriteSimpleCSV(filePath string, headers []string, records [][]string) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: w.bomPrefix,
	})
}

// WriteSeries streams a series with its column names as header
func (w *CSVWriter) WriteSeries(filePath string, series *domain.Series) error {
	stream, err := w.CreateStreamWriter(filePath, series.Columns)
	if err != nil {
		return err
	}
	for i, row := range series.Rows {
		if err := stream.WriteRecord(formatRow(row)); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	return stream.Close()
}

// WriteCropped writes the resolution-cropped series of the file labelled label and returns its path
func (w *CSVWriter) WriteCropped(label string, c *domain.CroppedSeries) (string, error) {
	path := w.files.OutputPath(label, SuffixCropped)
	if err := w.WriteSeries(path, c.Series); err != nil {
		return "", err
	}
	return path, nil
}

// WriteCycles writes one file per cycle segment and returns the paths in cycle order
func (w *CSVWriter) WriteCycles(label string, seg *domain.Segmentation) ([]string, error) {
	paths := make([]string, 0, len(seg.Cycles))
	for _, cycle := range seg.Cycles {
		path := w.files.OutputPath(label, fmt.Sprintf(SuffixCycle, cycle.Number))
		if err := w.WriteSeries(path, cycle.Series); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteCapacitance writes the capacitance table of one file and returns its path
func (w *CSVWriter) WriteCapacitance(label string, table *domain.CapacitanceTable) (string, error) {
	path := w.files.OutputPath(label, SuffixCapacitance)
	records := make([][]string, len(table.Records))
	for i, rec := range table.Records {
		records[i] = capacitanceRow(rec)
	}
	if err := w.WriteSimpleCSV(path, CapacitanceHeaders, records); err != nil {
		return "", err
	}
	return path, nil
}

// WriteHalfCycles writes the per half-cycle analysis summary of one file and returns its path
func (w *CSVWriter) WriteHalfCycles(label string, table *domain.CapacitanceTable) (string, error) {
	path := w.files.OutputPath(label, SuffixHalfCycles)
	headers := []string{"half_cycle", "cycle_number", "charging", "ideal_capacitance/mF", "ideality", "polarity_gap/V"}
	records := make([][]string, len(table.HalfCycles))
	for i, a := range table.HalfCycles {
		records[i] = []string{
			formatInt(a.Number),
			formatInt(a.CycleNumber),
			formatBool(a.Charging),
			formatFloat(a.IdealCapacitance),
			formatFloat(a.Ideality),
			formatFloat(a.PolarityGap),
		}
	}
	if err := w.WriteSimpleCSV(path, headers, records); err != nil {
		return "", err
	}
	return path, nil
}

// WriteCombinedCapacitance writes the capacitance rows of a batch, each tagged
// with its file, and returns the path.
func (w *CSVWriter) WriteCombinedCapacitance(rows []domain.LabeledCapacitanceRecord) (string, error) {
	path := w.combinedPath(CombinedCapacitanceFile)
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = append([]string{r.File}, capacitanceRow(r.CapacitanceRecord)...)
	}
	if err := w.WriteSimpleCSV(path, append([]string{"file"}, CapacitanceHeaders...), records); err != nil {
		return "", err
	}
	return path, nil
}

// WriteCombinedCropped writes the concatenated cropped series of a batch and returns the path
func (w *CSVWriter) WriteCombinedCropped(combined *domain.CombinedSeries) (string, error) {
	path := w.combinedPath(CombinedCroppedFile)
	stream, err := w.CreateStreamWriter(path, append([]string{"file"}, combined.Columns...))
	if err != nil {
		return "", err
	}
	for i, row := range combined.Rows {
		if err := stream.WriteRecord(append([]string{combined.Files[i]}, formatRow(row)...)); err != nil {
			stream.Close()
			return "", fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	if err := stream.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func (w *CSVWriter) combinedPath(name string) string {
	return filepath.Join(w.files.OutputDir(), name)
}

func capacitanceRow(rec domain.CapacitanceRecord) []string {
	return []string{
		formatInt(rec.CycleNumber),
		formatFloat(rec.Current),
		formatOptionalFloat(rec.IdealChargeCapacitance),
		formatOptionalFloat(rec.IdealDischargeCapacitance),
		formatOptionalFloat(rec.ChargeIdeality),
		formatOptionalFloat(rec.DischargeIdeality),
		formatOptionalFloat(rec.DischargePolarityGap),
		formatOptionalFloat(rec.FaradaicEfficiency),
	}
}

// StreamWriter provides streaming CSV writing for large series
type StreamWriter struct {
	file   *os.File
	writer *csv.Writer
}

// CreateStreamWriter creates a new streaming CSV writer
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string) (*StreamWriter, error) {
	slog.Debug("Creating CSV stream writer",
		slog.String("file_path", filePath),
		slog.Int("header_count", len(headers)))

	file, err := w.files.Create(filePath)
	if err != nil {
		return nil, err
	}

	if w.bomPrefix {
		if _, err := file.Write(utf8BOM); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return &StreamWriter{
		file:   file,
		writer: writer,
	}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
