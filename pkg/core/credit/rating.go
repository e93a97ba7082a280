package credit

import (
	"sme_health/pkg/core/calc"
)

// Letter ratings, worst to best.
const (
	RatingD  = "D"
	RatingC  = "C"
	RatingB  = "B"
	RatingA  = "A"
	RatingAA = "AA"
	// RatingNone marks a period whose composite could not be computed.
	RatingNone = "NR"
)

var ratingBands = []struct {
	lower  float64
	rating string
}{
	{85, RatingAA},
	{70, RatingA},
	{55, RatingB},
	{40, RatingC},
}

// Rating maps a score to its letter. Lower bounds are inclusive; anything
// below 40 is D.
func Rating(score float64) string {
	for _, b := range ratingBands {
		if score >= b.lower {
			return b.rating
		}
	}
	return RatingD
}

// RatingFor is Rating over an optional score.
func RatingFor(score calc.Value) string {
	v, ok := score.Get()
	if !ok {
		return RatingNone
	}
	return Rating(v)
}

// RatingRank orders ratings so they can be compared; unknown ratings rank 0.
func RatingRank(rating string) int {
	switch rating {
	case RatingD:
		return 1
	case RatingC:
		return 2
	case RatingB:
		return 3
	case RatingA:
		return 4
	case RatingAA:
		return 5
	}
	return 0
}

// =============================================================================
// TREND
// =============================================================================

const (
	TrendImproving    = "Improving"
	TrendDeclining    = "Declining"
	TrendInsufficient = "Insufficient History"

	trendLookback = 6
)

// Trend compares the latest composite with the one five periods earlier.
func Trend(scores []Score) string {
	n := len(scores)
	if n < trendLookback {
		return TrendInsufficient
	}
	latest, ok1 := scores[n-1].Composite.Get()
	earlier, ok2 := scores[n-trendLookback].Composite.Get()
	if !ok1 || !ok2 {
		return TrendInsufficient
	}
	if latest > earlier {
		return TrendImproving
	}
	return TrendDeclining
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is the digest of a scored history.
type Summary struct {
	Periods      int        `json:"periods"`
	LatestPeriod string     `json:"latest_period"`
	LatestScore  calc.Value `json:"latest_credit_score"`
	LatestRating string     `json:"latest_credit_rating"`
	AvgScore     calc.Value `json:"avg_credit_score"`
	MinScore     calc.Value `json:"min_credit_score"`
	MaxScore     calc.Value `json:"max_credit_score"`
	Components   Components `json:"components"`
	Trend        string     `json:"credit_trend"`
}

// Summarize reports the latest score and the spread of defined composites.
func Summarize(scores []Score) Summary {
	s := Summary{Periods: len(scores), LatestRating: RatingNone, Trend: Trend(scores)}
	if len(scores) == 0 {
		return s
	}
	last := scores[len(scores)-1]
	s.LatestPeriod = last.Period
	s.LatestScore = last.Composite
	s.LatestRating = last.Rating
	s.Components = last.Components

	var defined []float64
	for _, c := range Composites(scores) {
		if v, ok := c.Get(); ok {
			defined = append(defined, v)
		}
	}
	if len(defined) > 0 {
		s.AvgScore = calc.Mean(defined)
		lo, hi := calc.MinMax(defined)
		s.MinScore, s.MaxScore = calc.Defined(lo), calc.Defined(hi)
	}
	return s
}
