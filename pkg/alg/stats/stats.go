// Package stats provides the numeric helpers used to summarise unit cell
// populations. All standard deviation calculations use population stddev
// (÷n, not ÷(n−1)).
package stats

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultPlaces is the number of decimal places reported for cell statistics.
const DefaultPlaces = 2

// Mean returns the arithmetic mean of values.
// Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	return stat.Mean(values, nil)
}

// MeanStdDev returns the arithmetic mean and population standard deviation.
// Returns (0, 0) for an empty slice.
func MeanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}

	mean, stddev = stat.PopMeanStdDev(values, nil)
	if math.IsNaN(stddev) {
		stddev = 0
	}

	return mean, stddev
}

// Round rounds value to the given number of decimal places. Ties go to the
// even neighbour of the scaled value, so 50.125 becomes 50.12.
func Round(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))

	return math.RoundToEven(value*scale) / scale
}

// Summary holds the descriptive statistics of a sample.
type Summary struct {
	Count int     `json:"count" yaml:"count"`
	Min   float64 `json:"min"   yaml:"min"`
	Max   float64 `json:"max"   yaml:"max"`
	Mean  float64 `json:"mean"  yaml:"mean"`
	Std   float64 `json:"std"   yaml:"std"`
}

// Summarize computes min, max, mean and population standard deviation. Mean
// and std are rounded to places decimal places; min and max keep full
// precision. An empty sample yields a zero Summary.
func Summarize(values []float64, places int) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	mean, std := MeanStdDev(values)

	return Summary{
		Count: len(values),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
		Mean:  Round(mean, places),
		Std:   Round(std, places),
	}
}

// Bin is one histogram bucket covering [Lo, Hi).
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram distributes values into the requested number of equal-width bins
// spanning the sample range. A sample with a single distinct value collapses
// into one unit-width bin centred on it. Returns nil for empty input or a
// non-positive bin count.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []Bin{{Lo: lo - 0.5, Hi: hi + 0.5, Count: len(sorted)}}
	}

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// The upper divider is exclusive in stat.Histogram.
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)

	result := make([]Bin, bins)
	for i := range result {
		result[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: int(counts[i])}
	}

	return result
}

// Clamp restricts val to the range [lo, hi].
func Clamp[T cmp.Ordered](val, lo, hi T) T {
	return max(lo, min(val, hi))
}
