// Package stats holds the small numeric helpers the detectors share
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Median returns the median of values (mean of the two middle values for
// even-length input). Returns 0 for empty input.
// stat.Quantile picks one of the middle values instead of averaging them.
func Median(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

// MedianInt returns Median truncated toward zero
func MedianInt(values []int) int {
	return int(Median(values))
}

// Mean returns the arithmetic mean of values, 0 for empty input
func Mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(Floats(values), nil)
}

// Floats converts values to float64
func Floats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

// Round3 rounds to three decimals
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Percent returns int(100*part/total), 0 when total is 0
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return 100 * part / total
}

// Sorted returns a sorted copy of values
func Sorted(values []int) []int {
	out := make([]int, len(values))
	copy(out, values)
	sort.Ints(out)
	return out
}
