package dataprocessing

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperrors "mptcli/internal/errors"
	"mptcli/pkg/contracts/domain"
)

// AnalyzeCapacitance computes per half-cycle capacitance and ideality and
// aggregates them into one record per cycle.
//
// Applies only to charge/discharge technique files whose half-cycle
// segmentation has run. The applied current is read from the technique table
// (ctrl1_val, column 1). A half-cycle is charging when its second record's
// current is positive; only one sample decides.
func AnalyzeCapacitance(seg *domain.Segmentation) (*domain.CapacitanceTable, error) {
	m := seg.Measurement()
	if m == nil {
		return nil, apperrors.NewPrecursorNotRunError("capacitance analysis", "cycle segmentation")
	}
	if !m.IsChargeDischarge() {
		return nil, apperrors.NewUnsupportedTechniqueError(m.FileType, domain.TechniqueChargeDischarge).
			WithContext("source", m.Source)
	}
	if !seg.HasHalfCycles {
		return nil, apperrors.NewPrecursorNotRunError("capacitance analysis", "half-cycle segmentation").
			WithContext("source", m.Source)
	}

	current, err := chargeCurrent(m)
	if err != nil {
		return nil, err
	}

	columns := seg.Shifted.Series
	for _, name := range []string{domain.ColumnTime, domain.ColumnPotential, domain.ColumnCurrent, domain.ColumnCycle} {
		if !columns.HasColumn(name) {
			return nil, apperrors.NewMissingColumnError(name).WithContext("source", m.Source)
		}
	}

	table := &domain.CapacitanceTable{
		Segmentation:  seg,
		ChargeCurrent: current,
		Records:       []domain.CapacitanceRecord{},
		HalfCycles:    make([]domain.HalfCycleAnalysis, 0, len(seg.HalfCycles)),
	}
	rowOf := make(map[int]int)

	for _, half := range seg.HalfCycles {
		if half.Series.Len() < 2 {
			table.Skipped = append(table.Skipped, half.Number)
			slog.Debug("Skipping half-cycle with fewer than two records",
				slog.String("source", m.Source),
				slog.Int("half_cycle", half.Number))
			continue
		}

		a := analyzeHalfCycle(half, current)
		table.HalfCycles = append(table.HalfCycles, a)

		p, ok := rowOf[a.CycleNumber]
		if !ok {
			p = len(table.Records)
			rowOf[a.CycleNumber] = p
			table.Records = append(table.Records, domain.CapacitanceRecord{CycleNumber: a.CycleNumber})
		}
		rec := &table.Records[p]
		if a.Charging {
			rec.IdealChargeCapacitance = float64Ptr(a.IdealCapacitance)
			rec.ChargeIdeality = float64Ptr(a.Ideality)
		} else {
			rec.IdealDischargeCapacitance = float64Ptr(a.IdealCapacitance)
			rec.DischargeIdeality = float64Ptr(a.Ideality)
			rec.DischargePolarityGap = float64Ptr(a.PolarityGap)
		}
		rec.Current = math.Abs(current)
	}

	// efficiency needs both halves of a cycle, so it runs over the finished table
	for i := range table.Records {
		rec := &table.Records[i]
		if rec.IdealChargeCapacitance != nil && rec.IdealDischargeCapacitance != nil {
			rec.FaradaicEfficiency = float64Ptr(*rec.IdealDischargeCapacitance / *rec.IdealChargeCapacitance)
		}
	}

	slog.Debug("Capacitance analysis complete",
		slog.String("source", m.Source),
		slog.Float64("charge_current", current),
		slog.Int("half_cycles", len(table.HalfCycles)),
		slog.Int("cycles", len(table.Records)),
		slog.Int("skipped", len(table.Skipped)))

	return table, nil
}

func chargeCurrent(m *domain.RawMeasurement) (float64, error) {
	raw, ok := m.Technique.Value(domain.TechniqueCurrentParameter, 1)
	if !ok {
		return 0, apperrors.NewFormatError("technique parameter ctrl1_val not found", nil).
			WithContext("source", m.Source)
	}
	v, err := ParseDecimal(raw)
	if err != nil {
		return 0, apperrors.NewFormatError("invalid technique parameter ctrl1_val", err).
			WithContext("source", m.Source)
	}
	return v, nil
}

func analyzeHalfCycle(half domain.Segment, current float64) domain.HalfCycleAnalysis {
	t, _ := half.Series.Column(domain.ColumnTime)
	e, _ := half.Series.Column(domain.ColumnPotential)
	i, _ := half.Series.Column(domain.ColumnCurrent)
	cycle, _ := half.Series.Value(0, domain.ColumnCycle)

	ideality, idealPotential := IdealityR2(t, e)
	return domain.HalfCycleAnalysis{
		Number:           half.Number,
		CycleNumber:      int(cycle) + 1,
		Charging:         i[1] > 0,
		IdealCapacitance: IdealCapacitance(t, e, current),
		Ideality:         ideality,
		PolarityGap:      e[0] - e[1],
		StepCapacitance:  StepCapacitance(t, e, i),
		IdealPotential:   idealPotential,
	}
}

// IdealCapacitance is |current| · (t_end − t_start) / |E_end − E_start| over the
// segment's endpoints. A zero potential span follows IEEE division.
func IdealCapacitance(t, e []float64, current float64) float64 {
	n := len(t)
	return math.Abs(current) * (t[n-1] - t[0]) / math.Abs(e[n-1]-e[0])
}

// StepCapacitance is current · Δtime / Δpotential between consecutive records.
// The first element has no predecessor and is NaN.
func StepCapacitance(t, e, current []float64) []float64 {
	n := len(t)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = math.NaN()
	if n == 1 {
		return out
	}
	dt := make([]float64, n-1)
	de := make([]float64, n-1)
	floats.SubTo(dt, t[1:], t[:n-1])
	floats.SubTo(de, e[1:], e[:n-1])
	for k := 1; k < n; k++ {
		out[k] = current[k] * dt[k-1] / de[k-1]
	}
	return out
}

// IdealityR2 scores the segment against the straight line through its first
// and last point (not a least-squares fit). It returns R² and the line's
// potential at every record; R² is NaN when the potential is constant.
func IdealityR2(t, e []float64) (float64, []float64) {
	n := len(t)
	slope := (e[n-1] - e[0]) / (t[n-1] - t[0])
	intercept := e[n-1] - slope*t[n-1]

	estimates := make([]float64, n)
	for k, tk := range t {
		estimates[k] = intercept + slope*tk
	}

	mean := stat.Mean(e, nil)
	var ssTot float64
	for _, ek := range e {
		d := ek - mean
		ssTot += d * d
	}
	if ssTot == 0 {
		return math.NaN(), estimates
	}
	return stat.RSquaredFrom(estimates, e, nil), estimates
}

func float64Ptr(v float64) *float64 {
	return &v
}
