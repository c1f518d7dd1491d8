package domain

// HalfCycleAnalysis holds the per half-cycle results of the capacitance analysis
type HalfCycleAnalysis struct {
	Number           int       `json:"number"`
	CycleNumber      int       `json:"cycle_number"`
	Charging         bool      `json:"charging"`
	IdealCapacitance float64   `json:"ideal_capacitance"` // mF
	Ideality         float64   `json:"ideality"`          // R² against the two-point line, NaN if undefined
	PolarityGap      float64   `json:"polarity_gap"`      // V
	StepCapacitance  []float64 `json:"step_capacitance"`  // mF, first element NaN
	IdealPotential   []float64 `json:"ideal_potential"`   // V
}

// CapacitanceRecord is one row of the capacitance table, keyed by cycle number.
// Nil fields are unset.
type CapacitanceRecord struct {
	CycleNumber               int      `json:"cycle_number"`
	Current                   float64  `json:"current"` // mA
	IdealChargeCapacitance    *float64 `json:"ideal_charge_capacitance,omitempty"`
	IdealDischargeCapacitance *float64 `json:"ideal_discharge_capacitance,omitempty"`
	ChargeIdeality            *float64 `json:"charge_ideality,omitempty"`
	DischargeIdeality         *float64 `json:"discharge_ideality,omitempty"`
	DischargePolarityGap      *float64 `json:"discharge_polarity_gap,omitempty"`
	FaradaicEfficiency        *float64 `json:"faradaic_efficiency,omitempty"`
}

// CapacitanceTable is the capacitance analysis result of one measurement
type CapacitanceTable struct {
	Segmentation  *Segmentation       `json:"-"`
	ChargeCurrent float64             `json:"charge_current"`
	Records       []CapacitanceRecord `json:"records"`
	HalfCycles    []HalfCycleAnalysis `json:"half_cycles"`
	Skipped       []int               `json:"skipped,omitempty"` // half-cycle numbers too short to analyze
}

// Record returns the row for a cycle number
func (t *CapacitanceTable) Record(cycle int) (CapacitanceRecord, bool) {
	for _, r := range t.Records {
		if r.CycleNumber == cycle {
			return r, true
		}
	}
	return CapacitanceRecord{}, false
}

// LabeledCapacitanceRecord is a capacitance row tagged with the file it came from
type LabeledCapacitanceRecord struct {
	File string `json:"file"`
	CapacitanceRecord
}
