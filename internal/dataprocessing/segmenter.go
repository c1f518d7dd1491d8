package dataprocessing

import (
	"log/slog"

	apperrors "mptcli/internal/errors"
	"mptcli/pkg/contracts/domain"
)

// ShiftCycles moves the cycle and half-cycle index columns back by one sample.
// The instrument writes the boundary marker one sample late; after the shift
// every record carries the index of the record that followed it and the last
// record repeats the second-to-last (shifted) index.
func ShiftCycles(c *domain.CroppedSeries) (*domain.ShiftedSeries, error) {
	if c == nil || c.Series == nil {
		return nil, apperrors.NewPrecursorNotRunError("cycle shift", "resolution crop")
	}
	cIdx, ok := c.Series.ColumnIndex(domain.ColumnCycle)
	if !ok {
		return nil, apperrors.NewMissingColumnError(domain.ColumnCycle)
	}

	series := c.Series.Clone()
	shiftColumn(series.Rows, cIdx)
	if hIdx, ok := series.ColumnIndex(domain.ColumnHalfCycle); ok {
		shiftColumn(series.Rows, hIdx)
	}
	return &domain.ShiftedSeries{Cropped: c, Series: series}, nil
}

func shiftColumn(rows [][]float64, idx int) {
	n := len(rows)
	if n < 2 {
		return
	}
	for i := 0; i < n-1; i++ {
		rows[i][idx] = rows[i+1][idx]
	}
	rows[n-1][idx] = rows[n-2][idx]
}

// Segment splits a shifted series into cycles and, when the half-cycle column
// is present, half-cycles. Segments are ordered by first appearance of their
// index value. Every segment after the first starts with a copy of the
// previous segment's last record relabeled with the current indices, and each
// segment's time axis is rebased to start at 0.
func Segment(s *domain.ShiftedSeries) (*domain.Segmentation, error) {
	if s == nil || s.Series == nil {
		return nil, apperrors.NewPrecursorNotRunError("cycle segmentation", "cycle shift")
	}
	series := s.Series
	cIdx, ok := series.ColumnIndex(domain.ColumnCycle)
	if !ok {
		return nil, apperrors.NewMissingColumnError(domain.ColumnCycle)
	}
	tIdx, ok := series.ColumnIndex(domain.ColumnTime)
	if !ok {
		return nil, apperrors.NewMissingColumnError(domain.ColumnTime)
	}
	hIdx, hasHalf := series.ColumnIndex(domain.ColumnHalfCycle)

	relabel := func(carried, first []float64) {
		carried[cIdx] = first[cIdx]
		if hasHalf {
			carried[hIdx] = first[hIdx]
		}
	}

	result := &domain.Segmentation{
		Shifted:       s,
		Cycles:        buildSegments(series, cIdx, tIdx, relabel),
		HasHalfCycles: hasHalf,
	}
	if hasHalf {
		result.HalfCycles = buildSegments(series, hIdx, tIdx, relabel)
	}

	slog.Debug("Segmented series",
		slog.Int("rows", series.Len()),
		slog.Int("cycles", len(result.Cycles)),
		slog.Int("half_cycles", len(result.HalfCycles)))

	return result, nil
}

func buildSegments(series *domain.Series, keyIdx, tIdx int, relabel func(carried, first []float64)) []domain.Segment {
	groups := partition(series.Rows, keyIdx)
	segments := make([]domain.Segment, len(groups))

	for i, g := range groups {
		rows := g.rows
		if i > 0 {
			prev := segments[i-1].Series.Rows
			carried := append([]float64(nil), prev[len(prev)-1]...)
			relabel(carried, rows[0])
			rows = append([][]float64{carried}, rows...)
		}
		segments[i] = domain.Segment{
			Number: int(g.key) + 1,
			Index:  g.key,
			Series: domain.NewSeries(series.Columns, rows),
		}
	}

	// rebase only after every boundary has been stitched from unrebased data
	for _, seg := range segments {
		rows := seg.Series.Rows
		start := rows[0][tIdx]
		for _, row := range rows {
			row[tIdx] -= start
		}
	}
	return segments
}

type group struct {
	key  float64
	rows [][]float64
}

// partition groups deep copies of rows by the value at keyIdx in first-seen order
func partition(rows [][]float64, keyIdx int) []group {
	var groups []group
	position := make(map[float64]int)
	for _, row := range rows {
		key := row[keyIdx]
		p, seen := position[key]
		if !seen {
			p = len(groups)
			position[key] = p
			groups = append(groups, group{key: key})
		}
		groups[p].rows = append(groups[p].rows, append([]float64(nil), row...))
	}
	return groups
}
