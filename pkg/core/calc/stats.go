package calc

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Sum of a float slice.
func Sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}

// Mean returns Undefined for an empty slice.
func Mean(xs []float64) Value {
	if len(xs) == 0 {
		return Undefined
	}
	return Defined(stat.Mean(xs, nil))
}

// StdDev is the sample (n-1) standard deviation. Fewer than two points
// yields Undefined.
func StdDev(xs []float64) Value {
	if len(xs) < 2 {
		return Undefined
	}
	return Defined(stat.StdDev(xs, nil))
}

// PopStdDev is the population (n) standard deviation.
func PopStdDev(xs []float64) Value {
	if len(xs) == 0 {
		return Undefined
	}
	return Defined(math.Sqrt(stat.PopVariance(xs, nil)))
}

// Quantile returns the p-quantile using linear interpolation between
// closest ranks.
func Quantile(xs []float64, p float64) Value {
	if len(xs) == 0 {
		return Undefined
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return Defined(sorted[0])
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return Defined(sorted[lo] + (sorted[hi]-sorted[lo])*frac)
}

// MeanDefined averages only the defined values.
func MeanDefined(vals []Value) Value {
	var xs []float64
	for _, v := range vals {
		if v.Valid {
			xs = append(xs, v.V)
		}
	}
	return Mean(xs)
}

// MinMax returns the extremes of a non-empty slice.
func MinMax(xs []float64) (lo, hi float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// Diff returns the first differences of xs.
func Diff(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}

// CumSum returns running totals.
func CumSum(xs []float64) []float64 {
	out := make([]float64, len(xs))
	s := 0.0
	for i, x := range xs {
		s += x
		out[i] = s
	}
	return out
}
