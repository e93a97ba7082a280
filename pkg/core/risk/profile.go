// Package risk classifies the latest period's ratios into risk levels and
// compares them with industry benchmarks.
package risk

import (
	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/ratios"
)

// Level is a per-dimension risk grade.
type Level string

const (
	Low     Level = "Low"
	Medium  Level = "Medium"
	High    Level = "High"
	Unknown Level = "Unknown"
)

// Overall grades.
const (
	OverallLow     = "Low Risk"
	OverallMedium  = "Medium Risk"
	OverallHigh    = "High Risk"
	OverallUnknown = "Unknown"
)

var levelScore = map[Level]float64{Low: 1, Medium: 2, High: 3}

// Assessment is one dimension of the profile.
type Assessment struct {
	Category       string                `json:"category"`
	Level          Level                 `json:"level"`
	Metrics        map[string]calc.Value `json:"metrics"`
	Recommendation string                `json:"recommendation"`
}

// Profile is the combined risk view.
type Profile struct {
	Overall       string       `json:"overall_risk"`
	Score         calc.Value   `json:"risk_score"`
	Details       []Assessment `json:"risk_details"`
	HighRiskAreas []string     `json:"high_risk_areas"`
}

// Liquidity grades the current ratio: below 1.0 is high, below 1.5 medium.
func Liquidity(b ratios.Bundle) Assessment {
	level := grade(b.Liquidity.CurrentRatio, func(v float64) Level {
		switch {
		case v < 1.0:
			return High
		case v < 1.5:
			return Medium
		}
		return Low
	})
	return Assessment{
		Category: "Liquidity Risk",
		Level:    level,
		Metrics: map[string]calc.Value{
			"current_ratio": b.Liquidity.CurrentRatio,
			"quick_ratio":   b.Liquidity.QuickRatio,
		},
		Recommendation: pick(level, "Maintain liquidity buffer", "Improve cash position"),
	}
}

// Profitability grades the net margin in percent: negative is high, below 5
// medium.
func Profitability(b ratios.Bundle) Assessment {
	level := grade(b.Profitability.NetMargin, func(v float64) Level {
		switch {
		case v < 0:
			return High
		case v < 5:
			return Medium
		}
		return Low
	})
	return Assessment{
		Category:       "Profitability Risk",
		Level:          level,
		Metrics:        map[string]calc.Value{"net_margin": b.Profitability.NetMargin},
		Recommendation: pick(level, "Maintain margins", "Focus on cost optimization"),
	}
}

// Leverage grades debt to equity: above 2 is high, above 1.5 medium.
func Leverage(b ratios.Bundle) Assessment {
	level := grade(b.Leverage.DebtToEquity, func(v float64) Level {
		switch {
		case v > 2.0:
			return High
		case v > 1.5:
			return Medium
		}
		return Low
	})
	return Assessment{
		Category:       "Leverage Risk",
		Level:          level,
		Metrics:        map[string]calc.Value{"debt_to_equity": b.Leverage.DebtToEquity},
		Recommendation: pick(level, "Debt at manageable levels", "Reduce debt levels"),
	}
}

// Assess profiles a bundle. Unknown dimensions are reported but do not count
// toward the overall grade.
func Assess(b ratios.Bundle) Profile {
	p := Profile{
		Details:       []Assessment{Liquidity(b), Profitability(b), Leverage(b)},
		HighRiskAreas: []string{},
	}
	var scores []float64
	for _, d := range p.Details {
		if s, ok := levelScore[d.Level]; ok {
			scores = append(scores, s)
		}
		if d.Level == High {
			p.HighRiskAreas = append(p.HighRiskAreas, d.Category)
		}
	}
	p.Score = calc.Mean(scores)
	p.Overall = Overall(p.Score)
	return p
}

// Overall maps a mean level score onto the overall grade.
func Overall(score calc.Value) string {
	v, ok := score.Get()
	switch {
	case !ok:
		return OverallUnknown
	case v < 1.5:
		return OverallLow
	case v < 2.5:
		return OverallMedium
	default:
		return OverallHigh
	}
}

func grade(v calc.Value, fn func(float64) Level) Level {
	x, ok := v.Get()
	if !ok {
		return Unknown
	}
	return fn(x)
}

func pick(level Level, ok, attention string) string {
	switch level {
	case Low:
		return ok
	case Unknown:
		return "Insufficient data to assess"
	}
	return attention
}
