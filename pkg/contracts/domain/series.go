package domain

// Series is a numeric time series: a fixed column set and one row of values per sample.
// Every row has exactly len(Columns) values. A Series is treated as immutable once built;
// transformations return new series.
type Series struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
	index   map[string]int
}

// NewSeries creates a series over the given columns and rows. Rows are used as-is.
func NewSeries(columns []string, rows [][]float64) *Series {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	if rows == nil {
		rows = [][]float64{}
	}
	return &Series{Columns: columns, Rows: rows, index: index}
}

// Len returns the number of rows
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// ColumnIndex returns the position of a column
func (s *Series) ColumnIndex(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	if s.index == nil {
		for i, c := range s.Columns {
			if c == name {
				return i, true
			}
		}
		return 0, false
	}
	i, ok := s.index[name]
	return i, ok
}

// HasColumn reports whether the series carries the named column
func (s *Series) HasColumn(name string) bool {
	_, ok := s.ColumnIndex(name)
	return ok
}

// Column returns a copy of one column's values
func (s *Series) Column(name string) ([]float64, bool) {
	idx, ok := s.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Value returns the value of a column at a row
func (s *Series) Value(row int, name string) (float64, bool) {
	idx, ok := s.ColumnIndex(name)
	if !ok || row < 0 || row >= len(s.Rows) {
		return 0, false
	}
	return s.Rows[row][idx], true
}

// Record returns row i as a column-name keyed map
func (s *Series) Record(i int) map[string]float64 {
	rec := make(map[string]float64, len(s.Columns))
	for c, name := range s.Columns {
		rec[name] = s.Rows[i][c]
	}
	return rec
}

// Clone returns a deep copy
func (s *Series) Clone() *Series {
	rows := make([][]float64, len(s.Rows))
	for i, row := range s.Rows {
		rows[i] = append([]float64(nil), row...)
	}
	return NewSeries(append([]string(nil), s.Columns...), rows)
}
