package calc

import "math"

// =============================================================================
// DIVISION & GROWTH
// =============================================================================

// Div returns num/den. A zero or non-finite denominator yields Undefined
// rather than 0 or Inf.
func Div(num, den float64) Value {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) || math.IsNaN(num) || math.IsInf(num, 0) {
		return Undefined
	}
	return Defined(num / den)
}

// DivV is Div over optional operands.
func DivV(num, den Value) Value {
	if !num.Valid || !den.Valid {
		return Undefined
	}
	return Div(num.V, den.V)
}

// Pct returns num/den*100.
func Pct(num, den float64) Value {
	return Div(num, den).Scale(100)
}

// PctChange returns (cur-prev)/prev*100, undefined when prev is zero.
func PctChange(cur, prev float64) Value {
	return Div(cur-prev, prev).Scale(100)
}

// PctChangeSeries mirrors a lagged percent change over a whole series.
// The first lag entries are undefined.
func PctChangeSeries(xs []float64, lag int) []Value {
	out := make([]Value, len(xs))
	for i := range xs {
		if i < lag {
			continue
		}
		out[i] = PctChange(xs[i], xs[i-lag])
	}
	return out
}

// RollingMean averages a trailing window of optional values. A window that
// is not yet full, or contains an undefined value, yields Undefined.
func RollingMean(xs []Value, window int) []Value {
	out := make([]Value, len(xs))
	for i := range xs {
		if i+1 < window {
			continue
		}
		sum := 0.0
		ok := true
		for _, v := range xs[i+1-window : i+1] {
			if !v.Valid {
				ok = false
				break
			}
			sum += v.V
		}
		if ok {
			out[i] = Defined(sum / float64(window))
		}
	}
	return out
}

// =============================================================================
// LIQUIDITY
// =============================================================================

// CurrentRatio = Current Assets / Current Liabilities
func CurrentRatio(currentAssets, currentLiabilities float64) Value {
	return Div(currentAssets, currentLiabilities)
}

// QuickRatio = (Current Assets - Inventory) / Current Liabilities
func QuickRatio(currentAssets, inventory, currentLiabilities float64) Value {
	return Div(currentAssets-inventory, currentLiabilities)
}

// CashRatio = Cash / Current Liabilities
func CashRatio(cash, currentLiabilities float64) Value {
	return Div(cash, currentLiabilities)
}

// =============================================================================
// EFFICIENCY
// =============================================================================

// DaysOutstanding converts a balance-sheet proxy and its flow into days.
// DIO = Inventory/COGS*365, DSO = AR/Revenue*365, DPO = AP/COGS*365
func DaysOutstanding(balance, flow float64) Value {
	return Div(balance, flow).Scale(365)
}

// CashConversionCycle = DIO + DSO - DPO
func CashConversionCycle(dio, dso, dpo Value) Value {
	if !dio.Valid || !dso.Valid || !dpo.Valid {
		return Undefined
	}
	return Defined(dio.V + dso.V - dpo.V)
}

// =============================================================================
// LEVERAGE
// =============================================================================

// InterestCoverage = EBITDA / Interest Expense
func InterestCoverage(ebitda, interest float64) Value {
	return Div(ebitda, interest)
}

// DSCR = EBITDA / (Interest + Principal)
func DSCR(ebitda, interest, principal float64) Value {
	return Div(ebitda, interest+principal)
}

// =============================================================================
// SCORING
// =============================================================================

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// ScoreAgainst maps actual/ideal onto 0-100.
func ScoreAgainst(actual Value, ideal float64) Value {
	if !actual.Valid || ideal == 0 {
		return Undefined
	}
	return Defined(Clamp(actual.V/ideal*100, 0, 100))
}

// ScoreBelow maps (ceiling-actual)/ceiling onto 0-100. Lower is better.
func ScoreBelow(actual Value, ceiling float64) Value {
	if !actual.Valid || ceiling == 0 {
		return Undefined
	}
	return Defined(Clamp((ceiling-actual.V)/ceiling*100, 0, 100))
}
