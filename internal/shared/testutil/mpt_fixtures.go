package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// techniqueCellWidth matches the fixed field width of the export's technique block
const techniqueCellWidth = 20

// MPTBuilder renders synthetic EC-Lab ASCII exports for tests.
// The header line count is computed from the rendered header.
type MPTBuilder struct {
	fileType     string
	fields       [][2]string
	flags        []string
	cycleDef     string
	technique    [][]string
	columns      []string
	rows         []string
	decimalComma bool
	headerLines  int
}

// NewMPTBuilder creates a builder for a charge/discharge export with no data
func NewMPTBuilder() *MPTBuilder {
	return &MPTBuilder{
		fileType: "Modulo Bat",
		cycleDef: "Charge/Discharge alternance",
	}
}

// WithFileType sets line 4 of the export
func (b *MPTBuilder) WithFileType(fileType string) *MPTBuilder {
	b.fileType = fileType
	return b
}

// WithField appends a "key : value" header line. An empty value renders a truncated "key :" line.
func (b *MPTBuilder) WithField(key, value string) *MPTBuilder {
	b.fields = append(b.fields, [2]string{key, value})
	return b
}

// WithFlag appends a header line without a colon
func (b *MPTBuilder) WithFlag(flag string) *MPTBuilder {
	b.flags = append(b.flags, flag)
	return b
}

// WithoutCycleDefinition omits the Cycle Definition field and with it the technique block
func (b *MPTBuilder) WithoutCycleDefinition() *MPTBuilder {
	b.cycleDef = ""
	return b
}

// WithTechniqueRow appends a fixed-width technique parameter line
func (b *MPTBuilder) WithTechniqueRow(name string, values ...string) *MPTBuilder {
	b.technique = append(b.technique, append([]string{name}, values...))
	return b
}

// WithColumns sets the column header. Spaces are kept as the instrument writes them.
func (b *MPTBuilder) WithColumns(columns ...string) *MPTBuilder {
	b.columns = columns
	return b
}

// WithDecimalComma renders data values with a decimal comma
func (b *MPTBuilder) WithDecimalComma() *MPTBuilder {
	b.decimalComma = true
	return b
}

// WithHeaderLines overrides the computed header line count
func (b *MPTBuilder) WithHeaderLines(n int) *MPTBuilder {
	b.headerLines = n
	return b
}

// WithRow appends a data line
func (b *MPTBuilder) WithRow(values ...float64) *MPTBuilder {
	cells := make([]string, len(values))
	for i, v := range values {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if b.decimalComma {
			s = strings.Replace(s, ".", ",", 1)
		}
		cells[i] = s
	}
	b.rows = append(b.rows, strings.Join(cells, "\t"))
	return b
}

// WithRawRow appends a data line verbatim
func (b *MPTBuilder) WithRawRow(line string) *MPTBuilder {
	b.rows = append(b.rows, line)
	return b
}

// Lines renders the export line by line
func (b *MPTBuilder) Lines() []string {
	var header []string
	for _, f := range b.fields {
		if f[1] == "" {
			header = append(header, f[0]+" :")
			continue
		}
		header = append(header, f[0]+" : "+f[1])
	}
	header = append(header, b.flags...)
	if b.cycleDef != "" {
		header = append(header, "Cycle Definition : "+b.cycleDef)
		for _, cells := range b.technique {
			var sb strings.Builder
			for _, c := range cells {
				sb.WriteString(fmt.Sprintf("%-*s", techniqueCellWidth, c))
			}
			header = append(header, sb.String())
		}
	}
	header = append(header, "")

	n := b.headerLines
	if n == 0 {
		n = 5 + len(header) + 1
	}

	lines := []string{
		"EC-Lab ASCII FILE",
		fmt.Sprintf("Nb header lines : %d", n),
		"",
		b.fileType,
		"",
	}
	lines = append(lines, header...)
	lines = append(lines, strings.Join(b.columns, "\t")+"\t")
	lines = append(lines, b.rows...)
	return lines
}

// String renders the export with CRLF line endings, as the instrument writes them
func (b *MPTBuilder) String() string {
	return strings.Join(b.Lines(), "\r\n") + "\r\n"
}

// WriteFile renders the export into dir and returns the file path
func (b *MPTBuilder) WriteFile(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create fixture directory %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path
}

// ChargeDischargeColumns are the columns of the charge/discharge fixture, as exported
var ChargeDischargeColumns = []string{"time/s", "Ewe/V", "Ece/V", "Ewe-Ece/V", "I/mA", "cycle number", "half cycle"}

// NewChargeDischargeBuilder returns a two-cycle galvanostatic export at ±10 mA.
// Every half-cycle spans 5 s and 1 V once the cycle indices are shifted, so
// each has an ideal capacitance of 50 mF and every cycle a faradaic
// efficiency of 1.
func NewChargeDischargeBuilder() *MPTBuilder {
	b := NewMPTBuilder().
		WithField("Run on channel", "1").
		WithField("Electrode material", "carbon").
		WithFlag("Internal resistance compensation").
		WithTechniqueRow("Ns", "0", "1").
		WithTechniqueRow("ctrl_type", "CC", "CC").
		WithTechniqueRow("ctrl1_val", "10,000", "-10,000").
		WithColumns(ChargeDischargeColumns...)

	for _, r := range ChargeDischargeRows() {
		b.WithRow(r...)
	}
	return b
}

// ChargeDischargeRows are the raw data rows of NewChargeDischargeBuilder.
// The half-cycle marker lags the potential reversal by one sample.
func ChargeDischargeRows() [][]float64 {
	type sample struct{ t, e, i, cycle, half float64 }
	samples := []sample{
		{0, 0, 10, 0, 0}, {1.25, 0.25, 10, 0, 0}, {2.5, 0.5, 10, 0, 0}, {3.75, 0.75, 10, 0, 0}, {5, 1.0, 10, 0, 0},
		{6, 0.8, -10, 0, 0}, {7, 0.6, -10, 0, 1}, {8, 0.4, -10, 0, 1}, {9, 0.2, -10, 0, 1}, {10, 0, -10, 0, 1},
		{11, 0.2, 10, 0, 1}, {12, 0.4, 10, 1, 2}, {13, 0.6, 10, 1, 2}, {14, 0.8, 10, 1, 2}, {15, 1.0, 10, 1, 2},
		{16, 0.8, -10, 1, 2}, {17, 0.6, -10, 1, 3}, {18, 0.4, -10, 1, 3}, {19, 0.2, -10, 1, 3}, {20, 0, -10, 1, 3},
	}
	rows := make([][]float64, len(samples))
	for k, s := range samples {
		rows[k] = []float64{s.t, s.e, 0, s.e, s.i, s.cycle, s.half}
	}
	return rows
}
