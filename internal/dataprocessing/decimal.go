package dataprocessing

import (
	"strconv"
	"strings"

	apperrors "mptcli/internal/errors"
)

// ParseDecimal converts an instrument-formatted number to float64.
//
// Accepted: an optional sign, digits, at most one decimal separator which may
// be '.' or ',' (locale-dependent exports), and an optional exponent
// ("1.5", "-0,25", "1,000E-03", "3e2"). Anything else fails with a ParseError:
// both separators in one value, repeated separators (thousands grouping),
// empty input, and NaN/Inf literals. A single comma is always read as the
// decimal separator, so "1,234" is 1.234.
func ParseDecimal(s string) (float64, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return 0, apperrors.NewParseError(s, "empty numeric value")
	}

	mantissa, exponent := in, ""
	if i := strings.IndexAny(in, "eE"); i >= 0 {
		mantissa, exponent = in[:i], in[i+1:]
		if !isInteger(exponent) {
			return 0, apperrors.NewParseError(s, "malformed exponent")
		}
	}

	dots := strings.Count(mantissa, ".")
	commas := strings.Count(mantissa, ",")
	switch {
	case dots > 0 && commas > 0:
		return 0, apperrors.NewParseError(s, "ambiguous value: mixes '.' and ',' separators")
	case dots+commas > 1:
		return 0, apperrors.NewParseError(s, "ambiguous value: more than one decimal separator")
	}
	mantissa = strings.Replace(mantissa, ",", ".", 1)

	digits := strings.TrimLeft(mantissa, "+-")
	if len(mantissa)-len(digits) > 1 {
		return 0, apperrors.NewParseError(s, "repeated sign")
	}
	if digits == "" || digits == "." {
		return 0, apperrors.NewParseError(s, "no digits")
	}
	for _, r := range digits {
		if (r < '0' || r > '9') && r != '.' {
			return 0, apperrors.NewParseError(s, "not a number")
		}
	}

	normalized := mantissa
	if exponent != "" {
		normalized += "e" + exponent
	}
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		// range errors still carry a value; reject them as well
		return 0, apperrors.NewParseError(s, err.Error())
	}
	return v, nil
}

func isInteger(s string) bool {
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
