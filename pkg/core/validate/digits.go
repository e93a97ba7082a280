package validate

import (
	"math"
	"strconv"
)

// benfordExpected is the first-digit frequency for digits 1-9.
var benfordExpected = [9]float64{0.30103, 0.17609, 0.12494, 0.09691, 0.07918, 0.06695, 0.05799, 0.05115, 0.04576}

const (
	// MinDigitSample is the fewest amounts the screen will grade.
	MinDigitSample = 50

	DigitConforming    = "conforming"
	DigitMarginal      = "marginal"
	DigitNonconforming = "nonconforming"
	DigitInsufficient  = "insufficient_data"
)

// DigitScreen is a first-digit (Benford) screen over transaction amounts.
// MAD is the mean absolute deviation from the expected frequencies.
type DigitScreen struct {
	Counts      [9]int     `json:"digit_counts"`
	Frequencies [9]float64 `json:"digit_frequencies"`
	Total       int        `json:"total_count"`
	MAD         float64    `json:"mad"`
	Level       string     `json:"level"`
	Flagged     bool       `json:"flagged"`
}

// ScreenDigits grades the leading digits of amounts. Values below 1 and
// non-finite values are skipped.
//
// MAD thresholds:
//   - <= 0.010: conforming
//   - <= 0.015: marginal
//   - otherwise nonconforming (flagged)
func ScreenDigits(amounts []float64) DigitScreen {
	var s DigitScreen
	for _, v := range amounts {
		if d := leadingDigit(v); d > 0 {
			s.Counts[d-1]++
			s.Total++
		}
	}
	if s.Total < MinDigitSample {
		s.Level = DigitInsufficient
		return s
	}

	sumDiff := 0.0
	for i := range s.Counts {
		s.Frequencies[i] = float64(s.Counts[i]) / float64(s.Total)
		sumDiff += math.Abs(s.Frequencies[i] - benfordExpected[i])
	}
	s.MAD = sumDiff / 9

	switch {
	case s.MAD > 0.015:
		s.Level = DigitNonconforming
		s.Flagged = true
	case s.MAD > 0.010:
		s.Level = DigitMarginal
	default:
		s.Level = DigitConforming
	}
	return s
}

func leadingDigit(v float64) int {
	v = math.Abs(v)
	if v < 1 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	for _, c := range strconv.FormatFloat(v, 'f', -1, 64) {
		if c >= '1' && c <= '9' {
			return int(c - '0')
		}
	}
	return 0
}
