package dataprocessing

import (
	"fmt"
	"log/slog"
	"math"

	apperrors "mptcli/internal/errors"
	"mptcli/pkg/contracts/domain"
)

// CropColumns returns a copy of the measurement whose series holds only the
// named columns, in the given order.
func CropColumns(m *domain.RawMeasurement, columns []string) (*domain.RawMeasurement, error) {
	indices := make([]int, len(columns))
	for i, name := range columns {
		idx, ok := m.Series.ColumnIndex(name)
		if !ok {
			return nil, apperrors.NewMissingColumnError(name).WithContext("source", m.Source)
		}
		indices[i] = idx
	}

	rows := make([][]float64, len(m.Series.Rows))
	for r, row := range m.Series.Rows {
		projected := make([]float64, len(indices))
		for i, idx := range indices {
			projected[i] = row[idx]
		}
		rows[r] = projected
	}
	return m.WithSeries(domain.NewSeries(append([]string(nil), columns...), rows)), nil
}

// ShiftTimeToZero returns a copy of the measurement whose time axis starts at 0
func ShiftTimeToZero(m *domain.RawMeasurement) (*domain.RawMeasurement, error) {
	tIdx, ok := m.Series.ColumnIndex(domain.ColumnTime)
	if !ok {
		return nil, apperrors.NewMissingColumnError(domain.ColumnTime).WithContext("source", m.Source)
	}
	series := m.Series.Clone()
	if series.Len() == 0 {
		return m.WithSeries(series), nil
	}
	start := series.Rows[0][tIdx]
	for _, row := range series.Rows {
		row[tIdx] -= start
	}
	return m.WithSeries(series), nil
}

// CropOptions are the resolution crop thresholds. Both are required.
type CropOptions struct {
	DeltaTime      *float64 // s
	DeltaPotential *float64 // V
}

// Thresholds builds CropOptions from plain values
func Thresholds(deltaTime, deltaPotential float64) CropOptions {
	return CropOptions{DeltaTime: &deltaTime, DeltaPotential: &deltaPotential}
}

func (o CropOptions) validate() error {
	if o.DeltaTime == nil {
		return apperrors.NewConfigError("delta_time needs to be set", nil)
	}
	if o.DeltaPotential == nil {
		return apperrors.NewConfigError("delta_pot needs to be set", nil)
	}
	thresholds := []struct {
		name  string
		value float64
	}{
		{"delta_time", *o.DeltaTime},
		{"delta_pot", *o.DeltaPotential},
	}
	for _, th := range thresholds {
		if math.IsNaN(th.value) || th.value < 0 {
			return apperrors.NewConfigError(fmt.Sprintf("%s must be a non-negative number, got %v", th.name, th.value), nil).
				WithContext(th.name, th.value)
		}
	}
	return nil
}

// ResolutionCropper drops samples that moved less than both thresholds since
// the last retained sample.
type ResolutionCropper struct {
	deltaTime      float64
	deltaPotential float64
	logger         *slog.Logger
}

// NewResolutionCropper creates a cropper. Missing or negative thresholds fail with a ConfigError.
func NewResolutionCropper(opts CropOptions) (*ResolutionCropper, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &ResolutionCropper{
		deltaTime:      *opts.DeltaTime,
		deltaPotential: *opts.DeltaPotential,
		logger:         slog.Default().With(slog.String("component", "resolution_cropper")),
	}, nil
}

// Crop runs the resolution crop over the measurement's series
func Crop(m *domain.RawMeasurement, opts CropOptions) (*domain.CroppedSeries, error) {
	c, err := NewResolutionCropper(opts)
	if err != nil {
		return nil, err
	}
	return c.Crop(m)
}

// Crop walks the series once. The first record is always retained; a later
// record is dropped when |Δtime| < delta_time and |Δpotential| < delta_pot
// against the last retained record, otherwise it becomes the new reference.
func (c *ResolutionCropper) Crop(m *domain.RawMeasurement) (*domain.CroppedSeries, error) {
	tIdx, ok := m.Series.ColumnIndex(domain.ColumnTime)
	if !ok {
		return nil, apperrors.NewMissingColumnError(domain.ColumnTime).WithContext("source", m.Source)
	}
	eIdx, ok := m.Series.ColumnIndex(domain.ColumnPotential)
	if !ok {
		return nil, apperrors.NewMissingColumnError(domain.ColumnPotential).WithContext("source", m.Source)
	}

	in := m.Series.Rows
	kept := make([][]float64, 0, len(in))
	if len(in) > 0 {
		kept = append(kept, in[0])
		lastTime, lastPot := in[0][tIdx], in[0][eIdx]
		for _, row := range in[1:] {
			t, e := row[tIdx], row[eIdx]
			if math.Abs(t-lastTime) < c.deltaTime && math.Abs(e-lastPot) < c.deltaPotential {
				continue
			}
			kept = append(kept, row)
			lastTime, lastPot = t, e
		}
	}

	c.logger.Debug("Resolution crop complete",
		slog.String("source", m.Source),
		slog.Float64("delta_time", c.deltaTime),
		slog.Float64("delta_pot", c.deltaPotential),
		slog.Int("input_rows", len(in)),
		slog.Int("retained_rows", len(kept)))

	return &domain.CroppedSeries{
		Measurement:    m,
		Series:         domain.NewSeries(m.Series.Columns, kept),
		DeltaTime:      c.deltaTime,
		DeltaPotential: c.deltaPotential,
		InputRows:      len(in),
	}, nil
}

// Recrop crops an already-cropped result again. This is a usage error that is
// reported as a warning: the crop is recomputed from the original measurement.
func (c *ResolutionCropper) Recrop(prev *domain.CroppedSeries) (*domain.CroppedSeries, error) {
	if prev == nil || prev.Measurement == nil {
		return nil, apperrors.NewPrecursorNotRunError("re-crop", "resolution crop")
	}
	warning := fmt.Sprintf("%s is already resolution cropped", prev.Measurement.Source)
	c.logger.Warn("File is already resolution cropped",
		slog.String("source", prev.Measurement.Source),
		slog.Float64("previous_delta_time", prev.DeltaTime),
		slog.Float64("previous_delta_pot", prev.DeltaPotential))

	out, err := c.Crop(prev.Measurement)
	if err != nil {
		return nil, err
	}
	out.Warnings = append(append([]string(nil), prev.Warnings...), warning)
	return out, nil
}
