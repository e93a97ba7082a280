// Package credit turns ratio bundles into component scores, a weighted
// composite, a letter rating and a trend.
package credit

import (
	"fmt"
	"math"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/ratios"
)

// =============================================================================
// WEIGHTS
// =============================================================================

// Weights sets each component's share of the composite. They must sum to 1.
type Weights struct {
	Profitability float64 `json:"profitability" yaml:"profitability"`
	Liquidity     float64 `json:"liquidity" yaml:"liquidity"`
	Leverage      float64 `json:"leverage" yaml:"leverage"`
	Efficiency    float64 `json:"efficiency" yaml:"efficiency"`
	Growth        float64 `json:"growth" yaml:"growth"`
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		Profitability: 0.25,
		Liquidity:     0.25,
		Leverage:      0.20,
		Efficiency:    0.15,
		Growth:        0.15,
	}
}

const weightTolerance = 1e-9

// ValidateWeights checks every weight is non-negative and the total is 1.
func ValidateWeights(w Weights) error {
	all := []float64{w.Profitability, w.Liquidity, w.Leverage, w.Efficiency, w.Growth}
	var sum float64
	for _, x := range all {
		if x < 0 || math.IsNaN(x) {
			return fmt.Errorf("credit weights must be non-negative, got %v", w)
		}
		sum += x
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("credit weights must sum to 1.0, got %.12f", sum)
	}
	return nil
}

// =============================================================================
// SCORING
// =============================================================================

// Ideal values that earn a full constituent score.
const (
	IdealGrossMargin       = 60.0
	IdealNetMargin         = 20.0
	IdealEBITDAMargin      = 30.0
	IdealCurrentRatio      = 3.0
	IdealQuickRatio        = 2.0
	IdealCashRatio         = 1.5
	CeilingDebtToEquity    = 2.0
	IdealInterestCoverage  = 5.0
	IdealDSCR              = 2.5
	IdealAssetTurnover     = 1.5
	IdealInventoryTurnover = 6.0
	CeilingCCC             = 120.0
	GrowthOffset           = 20.0
	GrowthSpan             = 40.0
	neutralGrowthScore     = 50.0
)

// Components holds the five component scores for one period.
type Components struct {
	Profitability calc.Value `json:"profitability_score"`
	Liquidity     calc.Value `json:"liquidity_score"`
	Leverage      calc.Value `json:"leverage_score"`
	Efficiency    calc.Value `json:"efficiency_score"`
	Growth        calc.Value `json:"growth_score"`
}

// Score is the credit assessment of one period.
type Score struct {
	Period string `json:"period"`
	Components
	Composite calc.Value `json:"credit_score"`
	Rating    string     `json:"credit_rating"`
}

// Scorer applies a validated weighting.
type Scorer struct {
	weights Weights
}

// NewScorer rejects weights that do not sum to 1.
func NewScorer(w Weights) (*Scorer, error) {
	if err := ValidateWeights(w); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the scorer's weighting.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score scores every bundle.
func (s *Scorer) Score(bundles []ratios.Bundle) []Score {
	out := make([]Score, len(bundles))
	for i, b := range bundles {
		out[i] = s.ScorePeriod(b)
	}
	return out
}

// ScorePeriod scores a single bundle. The composite is re-weighted over the
// defined components; with none defined it is undefined and unrated.
func (s *Scorer) ScorePeriod(b ratios.Bundle) Score {
	c := ScoreComponents(b)
	score := Score{Period: b.Period, Components: c}

	pairs := []struct {
		v calc.Value
		w float64
	}{
		{c.Profitability, s.weights.Profitability},
		{c.Liquidity, s.weights.Liquidity},
		{c.Leverage, s.weights.Leverage},
		{c.Efficiency, s.weights.Efficiency},
		{c.Growth, s.weights.Growth},
	}
	var weighted, total float64
	for _, p := range pairs {
		if v, ok := p.v.Get(); ok {
			weighted += v * p.w
			total += p.w
		}
	}
	score.Composite = calc.Div(weighted, total)
	score.Rating = RatingFor(score.Composite)
	return score
}

// ScoreComponents computes the five component scores. Each is the mean of
// its constituent scores; any undefined constituent leaves the component
// undefined, except growth where a missing rate scores a neutral 50.
func ScoreComponents(b ratios.Bundle) Components {
	p, l, e, v, g := b.Profitability, b.Liquidity, b.Efficiency, b.Leverage, b.Growth
	return Components{
		Profitability: meanAll(
			calc.ScoreAgainst(p.GrossMargin, IdealGrossMargin),
			calc.ScoreAgainst(p.NetMargin, IdealNetMargin),
			calc.ScoreAgainst(p.EBITDAMargin, IdealEBITDAMargin),
		),
		Liquidity: meanAll(
			calc.ScoreAgainst(l.CurrentRatio, IdealCurrentRatio),
			calc.ScoreAgainst(l.QuickRatio, IdealQuickRatio),
			calc.ScoreAgainst(l.CashRatio, IdealCashRatio),
		),
		Leverage: meanAll(
			calc.ScoreBelow(v.DebtToEquity, CeilingDebtToEquity),
			calc.ScoreAgainst(v.InterestCoverage, IdealInterestCoverage),
			calc.ScoreAgainst(v.DSCR, IdealDSCR),
		),
		Efficiency: meanAll(
			calc.ScoreAgainst(e.AssetTurnover, IdealAssetTurnover),
			calc.ScoreAgainst(e.InventoryTurnover, IdealInventoryTurnover),
			calc.ScoreBelow(e.CCC, CeilingCCC),
		),
		Growth: meanAll(
			growthScore(g.RevenueGrowthMoM),
			growthScore(g.ProfitGrowthMoM),
		),
	}
}

func growthScore(rate calc.Value) calc.Value {
	s := calc.ScoreAgainst(rate.Add(GrowthOffset), GrowthSpan)
	if !s.Valid {
		return calc.Defined(neutralGrowthScore)
	}
	return s
}

func meanAll(vals ...calc.Value) calc.Value {
	var sum float64
	for _, v := range vals {
		if !v.Valid {
			return calc.Undefined
		}
		sum += v.V
	}
	return calc.Div(sum, float64(len(vals)))
}

// Composites extracts the composite series.
func Composites(scores []Score) []calc.Value {
	out := make([]calc.Value, len(scores))
	for i, s := range scores {
		out[i] = s.Composite
	}
	return out
}
