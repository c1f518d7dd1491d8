package exporter

import (
	"strconv"
)

// formatFloat writes the shortest representation that round-trips. NaN is
// written as "NaN" and infinities as "+Inf"/"-Inf".
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatOptionalFloat writes an unset value as an empty cell
func formatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func formatRow(row []float64) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = formatFloat(v)
	}
	return out
}
