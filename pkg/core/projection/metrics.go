package projection

import (
	"math"
	"sort"

	"sme_health/pkg/core/calc"
)

// Accuracy compares a forecast with what actually happened.
type Accuracy struct {
	Overlap int        `json:"overlap"`
	MAE     calc.Value `json:"mae"`
	MAPE    calc.Value `json:"mape"`
	RMSE    calc.Value `json:"rmse"`
}

// Evaluate scores predicted against actual over the periods both contain.
// MAPE skips zero actuals; an empty overlap leaves every metric undefined.
func Evaluate(actual, predicted map[string]float64) Accuracy {
	var common []string
	for p := range actual {
		if _, ok := predicted[p]; ok {
			common = append(common, p)
		}
	}
	sort.Strings(common)
	acc := Accuracy{Overlap: len(common)}
	if len(common) == 0 {
		return acc
	}

	var absSum, sqSum, pctSum float64
	pctN := 0
	for _, p := range common {
		err := actual[p] - predicted[p]
		absSum += math.Abs(err)
		sqSum += err * err
		if actual[p] != 0 {
			pctSum += math.Abs(err / actual[p])
			pctN++
		}
	}
	n := float64(len(common))
	acc.MAE = calc.Defined(absSum / n)
	acc.RMSE = calc.Defined(math.Sqrt(sqSum / n))
	if pctN > 0 {
		acc.MAPE = calc.Defined(pctSum / float64(pctN) * 100)
	}
	return acc
}

// ByPeriod keys a forecast's points by period.
func ByPeriod(t *Table) map[string]float64 {
	out := make(map[string]float64, len(t.Points))
	for _, p := range t.Points {
		out[p.Period] = p.Value
	}
	return out
}
