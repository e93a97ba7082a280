package projection

import (
	"math"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/cashflow"
)

const cashLookback = 6

// CashPoint is one month of projected cash movement.
type CashPoint struct {
	Period        string  `json:"period"`
	Inflow        float64 `json:"forecast_inflow"`
	Outflow       float64 `json:"forecast_outflow"`
	NetCashFlow   float64 `json:"forecast_net_cash_flow"`
	EndingBalance float64 `json:"forecast_ending_balance"`
}

// CashFlow projects inflow and outflow separately as the recent average plus
// the recent average monthly change, each floored at zero, and carries the
// balance forward from the last observed month.
func CashFlow(months []cashflow.Month, horizon int) ([]CashPoint, error) {
	if len(months) < MinHistory {
		return nil, &InsufficientHistoryError{Points: len(months), Required: MinHistory}
	}
	last := months[len(months)-1]
	labels, err := NextPeriods(last.Period, horizon)
	if err != nil {
		return nil, err
	}

	inflows := make([]float64, len(months))
	outflows := make([]float64, len(months))
	for i, m := range months {
		inflows[i] = m.CashInflow
		outflows[i] = m.TotalOutflow
	}
	inAvg, inTrend := recentLevelAndTrend(inflows)
	outAvg, outTrend := recentLevelAndTrend(outflows)

	balance := last.EndingCashBalance
	out := make([]CashPoint, horizon)
	for i := 0; i < horizon; i++ {
		step := float64(i + 1)
		inflow := inAvg + inTrend*step
		outflow := outAvg + outTrend*step
		net := inflow - outflow
		balance += net
		out[i] = CashPoint{
			Period:        labels[i],
			Inflow:        math.Max(0, inflow),
			Outflow:       math.Max(0, outflow),
			NetCashFlow:   net,
			EndingBalance: balance,
		}
	}
	return out, nil
}

func recentLevelAndTrend(xs []float64) (float64, float64) {
	level, _ := calc.Mean(xs[len(xs)-min(cashLookback, len(xs)):]).Get()
	diffs := calc.Diff(xs)
	trend, _ := calc.Mean(diffs[len(diffs)-min(cashLookback, len(diffs)):]).Get()
	return level, trend
}
