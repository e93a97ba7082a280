package statements

import (
	"fmt"
	"sort"
	"strconv"

	"sme_health/pkg/core/calc"
)

// =============================================================================
// QUARTERLY / ANNUAL ROLL-UP
// =============================================================================

// Aggregate is a statement summed over a quarter or year. Margins are
// re-derived from the sums rather than averaged.
type Aggregate struct {
	Key               string  `json:"key"` // "2016Q1" or "2016"
	Periods           int     `json:"periods"`
	TotalRevenue      float64 `json:"total_revenue"`
	TotalCOGS         float64 `json:"total_cogs"`
	GrossProfit       float64 `json:"gross_profit"`
	OperatingExpenses float64 `json:"operating_expenses"`
	EBITDA            float64 `json:"ebitda"`
	Depreciation      float64 `json:"depreciation"`
	InterestExpense   float64 `json:"interest_expense"`
	TaxExpense        float64 `json:"tax_expense"`
	NetProfit         float64 `json:"net_profit"`
	UnitsSold         float64 `json:"units_sold"`

	GrossMargin     calc.Value `json:"gross_margin"`
	OperatingMargin calc.Value `json:"operating_margin"`
	NetProfitMargin calc.Value `json:"net_profit_margin"`

	// Annual rows only; fractions, undefined for the first year.
	RevenueGrowthYoY calc.Value `json:"revenue_growth_yoy"`
	ProfitGrowthYoY  calc.Value `json:"profit_growth_yoy"`
}

// QuarterKey maps "2016-05" to "2016Q2".
func QuarterKey(period string) (string, error) {
	year, month, err := splitPeriod(period)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%dQ%d", year, (month-1)/3+1), nil
}

// YearKey maps "2016-05" to "2016".
func YearKey(period string) (string, error) {
	year, _, err := splitPeriod(period)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(year), nil
}

func splitPeriod(period string) (int, int, error) {
	if len(period) != 7 || period[4] != '-' {
		return 0, 0, fmt.Errorf("invalid period %q", period)
	}
	year, err := strconv.Atoi(period[:4])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid period %q: %w", period, err)
	}
	month, err := strconv.Atoi(period[5:])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid period %q", period)
	}
	return year, month, nil
}

// Quarterly sums monthly statements by calendar quarter.
func Quarterly(monthly []Statement) ([]Aggregate, error) {
	return rollUp(monthly, QuarterKey)
}

// Annual sums monthly statements by calendar year and adds YoY growth.
func Annual(monthly []Statement) ([]Aggregate, error) {
	rows, err := rollUp(monthly, YearKey)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(rows); i++ {
		rows[i].RevenueGrowthYoY = calc.Div(rows[i].TotalRevenue-rows[i-1].TotalRevenue, rows[i-1].TotalRevenue)
		rows[i].ProfitGrowthYoY = calc.Div(rows[i].NetProfit-rows[i-1].NetProfit, rows[i-1].NetProfit)
	}
	return rows, nil
}

func rollUp(monthly []Statement, keyFn func(string) (string, error)) ([]Aggregate, error) {
	groups := make(map[string]*Aggregate)
	var keys []string
	for _, m := range monthly {
		key, err := keyFn(m.Period)
		if err != nil {
			return nil, err
		}
		a, ok := groups[key]
		if !ok {
			a = &Aggregate{Key: key}
			groups[key] = a
			keys = append(keys, key)
		}
		a.Periods++
		a.TotalRevenue += m.TotalRevenue
		a.TotalCOGS += m.TotalCOGS
		a.GrossProfit += m.GrossProfit
		a.OperatingExpenses += m.OperatingExpenses
		a.EBITDA += m.EBITDA
		a.Depreciation += m.Depreciation
		a.InterestExpense += m.InterestExpense
		a.TaxExpense += m.TaxExpense
		a.NetProfit += m.NetProfit
		a.UnitsSold += m.UnitsSold
	}
	sort.Strings(keys)

	out := make([]Aggregate, 0, len(keys))
	for _, k := range keys {
		a := groups[k]
		a.GrossMargin = calc.Div(a.GrossProfit, a.TotalRevenue)
		a.OperatingMargin = calc.Div(a.EBITDA, a.TotalRevenue)
		a.NetProfitMargin = calc.Div(a.NetProfit, a.TotalRevenue)
		out = append(out, *a)
	}
	return out, nil
}
