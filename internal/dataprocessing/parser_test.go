package dataprocessing

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mptcli/internal/errors"
	"mptcli/internal/shared/testutil"
	"mptcli/pkg/contracts/domain"
)

func join(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestParseIdempotent(t *testing.T) {
	content := testutil.NewChargeDischargeBuilder().String()

	first, err := Parse(strings.NewReader(content), "sample_C01.mpt")
	require.NoError(t, err)
	second, err := Parse(strings.NewReader(content), "sample_C01.mpt")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Metadata.Keys(), second.Metadata.Keys())
	require.Equal(t, first.Series.Len(), second.Series.Len())
	for i, row := range first.Series.Rows {
		for j, v := range row {
			assert.Equal(t, math.Float64bits(v), math.Float64bits(second.Series.Rows[i][j]), "row %d column %d", i, j)
		}
	}
}

func TestParseChargeDischargeFile(t *testing.T) {
	path := testutil.NewChargeDischargeBuilder().WriteFile(t, t.TempDir(), "sample_C01.mpt")

	m, err := ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, m.Source)
	assert.Equal(t, "Modulo Bat", m.FileType)
	assert.True(t, m.IsChargeDischarge())
	assert.False(t, m.IsRRDE())

	assert.Equal(t, []string{"Run on channel", "Electrode material", CycleDefinitionKey}, m.Metadata.Keys())
	v, ok := m.Metadata.Get("Electrode material")
	require.True(t, ok)
	assert.Equal(t, "carbon", v)
	v, _ = m.Metadata.Get(CycleDefinitionKey)
	assert.Equal(t, "Charge/Discharge alternance", v)

	assert.Equal(t, []string{"Internal resistance compensation"}, m.Flags)

	require.Equal(t, 3, m.Technique.Len())
	ctrl, ok := m.Technique.Value("ctrl1_val", 1)
	require.True(t, ok)
	assert.Equal(t, "10,000", ctrl)
	ctrl, ok = m.Technique.Value("ctrl1_val", 2)
	require.True(t, ok)
	assert.Equal(t, "-10,000", ctrl)

	assert.Equal(t, []string{
		domain.ColumnTime, domain.ColumnWorkingPotential, domain.ColumnCounterPotential,
		domain.ColumnPotential, domain.ColumnCurrent, domain.ColumnCycle, domain.ColumnHalfCycle,
	}, m.Series.Columns)
	require.Equal(t, 20, m.Series.Len())
	assert.Equal(t, testutil.ChargeDischargeRows()[0], m.Series.Rows[0])
	assert.Equal(t, testutil.ChargeDischargeRows()[19], m.Series.Rows[19])
}

func TestParseDecimalCommaData(t *testing.T) {
	b := testutil.NewMPTBuilder().
		WithColumns("time/s", "Ewe-Ece/V").
		WithDecimalComma().
		WithRow(0.5, -0.125).
		WithRow(1.5, 0.25)

	m, err := Parse(strings.NewReader(b.String()), "comma.mpt")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, -0.125}, {1.5, 0.25}}, m.Series.Rows)
}

func TestParseHeaderFields(t *testing.T) {
	b := testutil.NewMPTBuilder().
		WithField("Acquisition started on", "01/02/2024 10:11:12").
		WithField("Truncated", "").
		WithFlag("Record ox/red").
		WithFlag("Time:stamp").
		WithColumns("time/s")

	m, err := Parse(strings.NewReader(b.String()), "fields.mpt")
	require.NoError(t, err)

	v, ok := m.Metadata.Get("Acquisition started on")
	require.True(t, ok)
	assert.Equal(t, "01/02/2024 10:11:12", v)

	_, ok = m.Metadata.Get("Truncated")
	assert.False(t, ok, "a field with no value is dropped")

	assert.Equal(t, []string{"Record ox/red", "Time:stamp"}, m.Flags)
}

func TestParseWithoutCycleDefinition(t *testing.T) {
	b := testutil.NewMPTBuilder().
		WithFileType("Open Circuit Voltage").
		WithoutCycleDefinition().
		WithColumns("time/s", "Ewe/V").
		WithRow(0, 0.1)

	m, err := Parse(strings.NewReader(b.String()), "ocv.mpt")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Technique.Len())
	assert.False(t, m.IsChargeDischarge())
	assert.Equal(t, 1, m.Series.Len())
}

func TestParseRRDE(t *testing.T) {
	lines := testutil.NewMPTBuilder().WithColumns("time/s").WithRow(1).Lines()
	lines[3] = RRDEMarker
	lines[4] = "Disk channel : 2"

	m, err := Parse(strings.NewReader(join(lines)), "rrde.mpt")
	require.NoError(t, err)
	assert.Equal(t, domain.FileTypeRRDE, m.FileType)
	assert.True(t, m.IsRRDE())
}

func TestParseRejectsMalformedFiles(t *testing.T) {
	base := func() []string {
		return testutil.NewChargeDischargeBuilder().Lines()
	}

	tests := []struct {
		name    string
		mutate  func([]string) []string
		message string
	}{
		{
			name:    "not an EC-Lab export",
			mutate:  func(l []string) []string { l[0] = "Some other instrument"; return l },
			message: "Only EC-Lab ASCII files supported",
		},
		{
			name:    "line 3 not empty",
			mutate:  func(l []string) []string { l[2] = "x"; return l },
			message: "was the file copied before the measurement finished?",
		},
		{
			name:    "line 5 not empty",
			mutate:  func(l []string) []string { l[4] = "x"; return l },
			message: "lines 3 and 5 must be empty",
		},
		{
			name:    "missing header count",
			mutate:  func(l []string) []string { l[1] = "Nb header lines: 14"; return l },
			message: "Nb header lines",
		},
		{
			name:    "header count beyond end of file",
			mutate:  func(l []string) []string { l[1] = "Nb header lines : 400"; return l },
			message: "out of range",
		},
		{
			name:    "too short",
			mutate:  func(l []string) []string { return l[:3] },
			message: "too short",
		},
		{
			name:    "short data row",
			mutate:  func(l []string) []string { l[14] = "0\t0\t0"; return l },
			message: "expected 7",
		},
		{
			name:    "technique line shorter than one field",
			mutate:  func(l []string) []string { l[9] = "Ns  0"; return l },
			message: "shorter than one 20-character field",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(join(tt.mutate(base()))), "bad.mpt")
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrFormat), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "bad.mpt", appErr.Context["source"])
		})
	}
}

func TestParseNonNumericCell(t *testing.T) {
	lines := testutil.NewChargeDischargeBuilder().Lines()
	lines[15] = "1\t2\t3\t4,5.6\t5\t6\t7"

	_, err := Parse(strings.NewReader(join(lines)), "bad.mpt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrFormat))
	assert.True(t, errors.Is(err, apperrors.ErrParse))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 16, appErr.Context["line"])
	assert.Equal(t, domain.ColumnPotential, appErr.Context["column"])
}

func TestParseSkipsBlankDataLines(t *testing.T) {
	b := testutil.NewMPTBuilder().
		WithColumns("time/s").
		WithRow(1).
		WithRawRow("").
		WithRow(2)

	m, err := Parse(strings.NewReader(b.String()), "blank.mpt")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Series.Len())
}

func TestParseIgnoresExtraTokens(t *testing.T) {
	b := testutil.NewMPTBuilder().
		WithColumns("time/s", "I/mA").
		WithRawRow("1\t2\t\t")

	m, err := Parse(strings.NewReader(b.String()), "extra.mpt")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}}, m.Series.Rows)
}

func TestParseLegacyEncoding(t *testing.T) {
	b := testutil.NewMPTBuilder().
		WithField("Temperature", "25 DEG").
		WithColumns("time/s").
		WithRow(1)
	// 0xB0 is the degree sign in Windows-1252 and invalid on its own in UTF-8
	data := bytes.Replace([]byte(b.String()), []byte("DEG"), []byte{0xB0, 'C'}, 1)

	m, err := Parse(bytes.NewReader(data), "legacy.mpt")
	require.NoError(t, err)
	v, _ := m.Metadata.Get("Temperature")
	assert.Equal(t, "25 °C", v)
}

func TestParseByteOrderMark(t *testing.T) {
	b := testutil.NewMPTBuilder().WithColumns("time/s").WithRow(1)
	data := append([]byte{0xEF, 0xBB, 0xBF}, b.String()...)

	m, err := Parse(bytes.NewReader(data), "bom.mpt")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Series.Len())
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.mpt"))
	assert.Error(t, err)
}
