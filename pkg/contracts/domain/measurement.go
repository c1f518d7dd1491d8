package domain

import (
	"strings"
)

// Column names as they appear after header normalization (spaces replaced by underscores)
const (
	ColumnTime             = "time/s"
	ColumnPotential        = "Ewe-Ece/V" // working minus counter
	ColumnWorkingPotential = "Ewe/V"
	ColumnCounterPotential = "Ece/V"
	ColumnCurrent          = "I/mA"
	ColumnCycle            = "cycle_number"
	ColumnHalfCycle        = "half_cycle"
)

// File type labels
const (
	FileTypeRRDE             = "RRDE"
	TechniqueChargeDischarge = "Modulo Bat"
)

// TechniqueCurrentParameter names the technique row holding the applied current (column 1)
const TechniqueCurrentParameter = "ctrl1_val"

// DefaultColumns is the column projection used for charge/discharge files
var DefaultColumns = []string{
	ColumnTime,
	ColumnCycle,
	ColumnHalfCycle,
	ColumnWorkingPotential,
	ColumnCounterPotential,
	ColumnPotential,
	ColumnCurrent,
}

// RawMeasurement is the structured content of one instrument export
type RawMeasurement struct {
	Source    string          `json:"source"`
	FileType  string          `json:"file_type"`
	Metadata  *Metadata       `json:"metadata"`
	Flags     []string        `json:"flags"`
	Technique *TechniqueTable `json:"technique"`
	Series    *Series         `json:"series"`
}

// IsRRDE reports whether the file is the disk-channel sub-variant
func (m *RawMeasurement) IsRRDE() bool {
	return m.FileType == FileTypeRRDE
}

// IsChargeDischarge reports whether the declared technique is the multi-step charge/discharge technique
func (m *RawMeasurement) IsChargeDischarge() bool {
	return strings.Contains(m.FileType, TechniqueChargeDischarge)
}

// WithSeries returns a shallow copy of the measurement carrying a different series
func (m *RawMeasurement) WithSeries(s *Series) *RawMeasurement {
	c := *m
	c.Series = s
	return &c
}

// Metadata holds colon-delimited header fields in insertion order
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata creates an empty metadata set
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]string)}
}

// Set stores a field. A repeated key keeps its first position and takes the new value.
func (m *Metadata) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored for key
func (m *Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns field names in insertion order
func (m *Metadata) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of fields
func (m *Metadata) Len() int {
	return len(m.keys)
}

// TechniqueRow is one parameter line of the technique block
type TechniqueRow struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// TechniqueTable is the technique parameter table, indexable by parameter name and column.
// Column 0 is the parameter name, columns 1..n its positional values.
type TechniqueTable struct {
	Rows []TechniqueRow `json:"rows"`
}

// Row returns the first row with the given parameter name
func (t *TechniqueTable) Row(name string) (TechniqueRow, bool) {
	if t == nil {
		return TechniqueRow{}, false
	}
	for _, r := range t.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return TechniqueRow{}, false
}

// Value returns the raw cell at (name, column)
func (t *TechniqueTable) Value(name string, column int) (string, bool) {
	row, ok := t.Row(name)
	if !ok || column < 1 || column > len(row.Values) {
		return "", false
	}
	return row.Values[column-1], true
}

// Len returns the number of parameter rows
func (t *TechniqueTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
