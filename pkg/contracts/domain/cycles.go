package domain

// CroppedSeries is the resolution-cropped view of a measurement's series
type CroppedSeries struct {
	Measurement    *RawMeasurement `json:"-"`
	Series         *Series         `json:"series"`
	DeltaTime      float64         `json:"delta_time"`
	DeltaPotential float64         `json:"delta_potential"`
	InputRows      int             `json:"input_rows"`
	Warnings       []string        `json:"warnings,omitempty"`
}

// ShiftedSeries is a cropped series whose cycle and half-cycle indices were moved back by one sample
type ShiftedSeries struct {
	Cropped *CroppedSeries `json:"-"`
	Series  *Series        `json:"series"`
}

// Segment is the ordered run of records sharing one cycle or half-cycle index.
// Time is rebased so the first record is at 0.
type Segment struct {
	Number int     `json:"number"` // raw index + 1
	Index  float64 `json:"index"`
	Series *Series `json:"series"`
}

// Segmentation holds the cycle and half-cycle segment lists of one measurement
type Segmentation struct {
	Shifted       *ShiftedSeries `json:"-"`
	Cycles        []Segment      `json:"cycles"`
	HalfCycles    []Segment      `json:"half_cycles,omitempty"`
	HasHalfCycles bool           `json:"has_half_cycles"`
}

// Measurement returns the raw measurement the segmentation was derived from
func (s *Segmentation) Measurement() *RawMeasurement {
	if s == nil || s.Shifted == nil || s.Shifted.Cropped == nil {
		return nil
	}
	return s.Shifted.Cropped.Measurement
}

// CycleNumbers returns the 1-based cycle numbers in segment order
func (s *Segmentation) CycleNumbers() []int {
	return segmentNumbers(s.Cycles)
}

// HalfCycleNumbers returns the 1-based half-cycle numbers in segment order
func (s *Segmentation) HalfCycleNumbers() []int {
	return segmentNumbers(s.HalfCycles)
}

func segmentNumbers(segments []Segment) []int {
	out := make([]int, len(segments))
	for i, seg := range segments {
		out[i] = seg.Number
	}
	return out
}

// CombinedSeries concatenates the series of several files over their shared
// columns. Files[i] labels Rows[i].
type CombinedSeries struct {
	Columns []string    `json:"columns"`
	Files   []string    `json:"files"`
	Rows    [][]float64 `json:"rows"`
}

// Len returns the number of rows
func (c *CombinedSeries) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Rows)
}
