package dataprocessing

import (
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mptcli/internal/errors"
	"mptcli/internal/shared/testutil"
	"mptcli/pkg/contracts/domain"
)

func measurement(rows ...[]float64) *domain.RawMeasurement {
	return &domain.RawMeasurement{
		Source:   "test.mpt",
		FileType: domain.TechniqueChargeDischarge,
		Series:   domain.NewSeries([]string{domain.ColumnTime, domain.ColumnPotential}, rows),
	}
}

func TestCrop(t *testing.T) {
	tests := []struct {
		name   string
		dt, dp float64
		in     [][]float64
		want   [][]float64
	}{
		{
			name: "drops samples below both thresholds",
			dt:   10, dp: 0.01,
			in:   [][]float64{{0, 0}, {1, 0.001}, {2, 0.002}, {20, 0.002}},
			want: [][]float64{{0, 0}, {20, 0.002}},
		},
		{
			name: "potential step alone retains the sample",
			dt:   10, dp: 0.01,
			in:   [][]float64{{0, 0}, {1, 0.5}, {2, 0.505}, {3, 0.52}},
			want: [][]float64{{0, 0}, {1, 0.5}, {3, 0.52}},
		},
		{
			name: "comparison is against the last retained sample",
			dt:   2.5, dp: 1,
			in:   [][]float64{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}, {5, 0}},
			want: [][]float64{{0, 0}, {3, 0}},
		},
		{
			name: "threshold equality retains",
			dt:   1, dp: 1,
			in:   [][]float64{{0, 0}, {1, 0}, {1.5, 0}},
			want: [][]float64{{0, 0}, {1, 0}},
		},
		{
			name: "zero thresholds keep every sample",
			dt:   0, dp: 0,
			in:   [][]float64{{0, 0}, {0, 0}, {1, 1}},
			want: [][]float64{{0, 0}, {0, 0}, {1, 1}},
		},
		{
			name: "single sample",
			dt:   10, dp: 0.01,
			in:   [][]float64{{3, 1}},
			want: [][]float64{{3, 1}},
		},
		{
			name: "empty series",
			dt:   10, dp: 0.01,
			in:   nil,
			want: [][]float64{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := measurement(tt.in...)
			got, err := Crop(m, Thresholds(tt.dt, tt.dp))
			require.NoError(t, err)

			assert.Equal(t, tt.want, got.Series.Rows)
			assert.Equal(t, m.Series.Columns, got.Series.Columns)
			assert.Equal(t, len(tt.in), got.InputRows)
			assert.Equal(t, tt.dt, got.DeltaTime)
			assert.Equal(t, tt.dp, got.DeltaPotential)
			assert.Same(t, m, got.Measurement)
			assert.Equal(t, len(tt.in), m.Series.Len(), "input is not modified")
		})
	}
}

func TestCropRealisticFile(t *testing.T) {
	m, err := ParseFile(testutil.NewChargeDischargeBuilder().WriteFile(t, t.TempDir(), "a.mpt"))
	require.NoError(t, err)

	got, err := Crop(m, Thresholds(10, 0.01))
	require.NoError(t, err)
	// every fixture sample moves at least 0.2 V
	assert.Equal(t, m.Series.Rows, got.Series.Rows)
}

func TestCropConfigErrors(t *testing.T) {
	one := 1.0
	negative := -0.5
	nan := math.NaN()

	tests := []struct {
		name    string
		opts    CropOptions
		message string
	}{
		{"missing delta_time", CropOptions{DeltaPotential: &one}, "delta_time needs to be set"},
		{"missing delta_pot", CropOptions{DeltaTime: &one}, "delta_pot needs to be set"},
		{"nothing set", CropOptions{}, "delta_time needs to be set"},
		{"negative delta_time", CropOptions{DeltaTime: &negative, DeltaPotential: &one}, "delta_time must be a non-negative number"},
		{"negative delta_pot", CropOptions{DeltaTime: &one, DeltaPotential: &negative}, "delta_pot must be a non-negative number"},
		{"NaN delta_pot", CropOptions{DeltaTime: &one, DeltaPotential: &nan}, "delta_pot must be a non-negative number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(measurement([]float64{0, 0}), tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfig))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCropMissingColumn(t *testing.T) {
	m := &domain.RawMeasurement{
		Source: "ocv.mpt",
		Series: domain.NewSeries([]string{domain.ColumnTime, domain.ColumnWorkingPotential}, [][]float64{{0, 0}}),
	}
	_, err := Crop(m, Thresholds(1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMissingColumn))
	assert.Contains(t, err.Error(), domain.ColumnPotential)
}

func TestRecropWarns(t *testing.T) {
	handler := testutil.CaptureDefaultLogger(t)

	cropper, err := NewResolutionCropper(Thresholds(2.5, 1))
	require.NoError(t, err)

	m := measurement([]float64{0, 0}, []float64{1, 0}, []float64{3, 0}, []float64{4, 0})
	first, err := cropper.Crop(m)
	require.NoError(t, err)
	assert.Empty(t, first.Warnings)

	again, err := cropper.Recrop(first)
	require.NoError(t, err)

	assert.Equal(t, first.Series.Rows, again.Series.Rows, "re-crop is computed from the original samples")
	assert.Equal(t, 4, again.InputRows)
	require.Len(t, again.Warnings, 1)
	assert.Contains(t, again.Warnings[0], "already resolution cropped")

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "already resolution cropped")
	testutil.AssertLogAttr(t, handler, "component", "resolution_cropper")
	testutil.AssertLogAttr(t, handler, "source", "test.mpt")
}

func TestRecropWithoutCrop(t *testing.T) {
	cropper, err := NewResolutionCropper(Thresholds(1, 1))
	require.NoError(t, err)

	_, err = cropper.Recrop(nil)
	assert.True(t, errors.Is(err, apperrors.ErrPrecursorNotRun))
}

func TestCropColumns(t *testing.T) {
	m := &domain.RawMeasurement{
		Source: "a.mpt",
		Series: domain.NewSeries(
			[]string{domain.ColumnTime, domain.ColumnWorkingPotential, domain.ColumnPotential, domain.ColumnCurrent},
			[][]float64{{0, 1, 2, 3}, {4, 5, 6, 7}},
		),
	}

	got, err := CropColumns(m, []string{domain.ColumnCurrent, domain.ColumnTime})
	require.NoError(t, err)
	assert.Equal(t, []string{domain.ColumnCurrent, domain.ColumnTime}, got.Series.Columns)
	assert.Equal(t, [][]float64{{3, 0}, {7, 4}}, got.Series.Rows)
	assert.Equal(t, "a.mpt", got.Source)
	assert.Len(t, m.Series.Columns, 4, "input is not modified")

	_, err = CropColumns(m, []string{domain.ColumnTime, "control/V"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMissingColumn))
}

func TestShiftTimeToZero(t *testing.T) {
	m := measurement([]float64{12.5, 0.1}, []float64{13, 0.2}, []float64{20, 0.3})

	got, err := ShiftTimeToZero(m)
	require.NoError(t, err)
	t0, _ := got.Series.Column(domain.ColumnTime)
	assert.Equal(t, []float64{0, 0.5, 7.5}, t0)

	orig, _ := m.Series.Column(domain.ColumnTime)
	assert.Equal(t, []float64{12.5, 13, 20}, orig)

	empty, err := ShiftTimeToZero(measurement())
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Series.Len())
}
