package utils

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ParseFloat converts a raw catalog/table cell to a float64.
// Non-numeric cells come back as NaN so column lengths stay aligned.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return math.NaN()
}

// FormatFloat renders a table cell the way the output artifacts expect.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Percentile computes the p-th percentile of vals using linear
// interpolation between closest ranks. vals is not modified.
// Callers must reject empty columns first.
func Percentile(vals []float64, p float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// MagToFlux converts a magnitude to a normalized linear flux.
func MagToFlux(mag float64) float64 {
	return math.Pow(10, -0.4*mag)
}

// FluxToMag converts a normalized linear flux back to a magnitude.
func FluxToMag(flux float64) float64 {
	return -2.5 * math.Log10(flux)
}
