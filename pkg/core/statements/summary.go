package statements

import "sme_health/pkg/core/calc"

// Summary is the flat, serializable digest of a monthly statement series.
type Summary struct {
	Periods                int     `json:"periods"`
	TotalRevenue           float64 `json:"total_revenue"`
	TotalCOGS              float64 `json:"total_cogs"`
	TotalGrossProfit       float64 `json:"total_gross_profit"`
	TotalOperatingExpenses float64 `json:"total_operating_expenses"`
	TotalEBITDA            float64 `json:"total_ebitda"`
	TotalNetProfit         float64 `json:"total_net_profit"`

	AvgGrossMargin     calc.Value `json:"avg_gross_margin"`
	AvgOperatingMargin calc.Value `json:"avg_operating_margin"`
	AvgNetProfitMargin calc.Value `json:"avg_net_profit_margin"`

	AvgMonthlyRevenue calc.Value `json:"avg_monthly_revenue"`
	MaxMonthlyRevenue float64    `json:"max_monthly_revenue"`
	MinMonthlyRevenue float64    `json:"min_monthly_revenue"`

	RevenueVolatility calc.Value `json:"revenue_volatility"`
	ProfitVolatility  calc.Value `json:"profit_volatility"`

	PeriodsProfitable   int        `json:"periods_profitable"`
	PeriodsUnprofitable int        `json:"periods_unprofitable"`
	ProfitabilityRate   calc.Value `json:"profitability_rate"`

	LatestPeriod  string  `json:"latest_period"`
	LatestRevenue float64 `json:"latest_revenue"`
}

// Summarize computes totals, averages, extremes and volatility.
func Summarize(monthly []Statement) Summary {
	s := Summary{Periods: len(monthly)}
	if len(monthly) == 0 {
		return s
	}

	revenues := Revenues(monthly)
	profits := NetProfits(monthly)
	var gross, op, net []calc.Value
	for _, m := range monthly {
		s.TotalRevenue += m.TotalRevenue
		s.TotalCOGS += m.TotalCOGS
		s.TotalGrossProfit += m.GrossProfit
		s.TotalOperatingExpenses += m.OperatingExpenses
		s.TotalEBITDA += m.EBITDA
		s.TotalNetProfit += m.NetProfit
		gross = append(gross, m.GrossMargin)
		op = append(op, m.OperatingMargin)
		net = append(net, m.NetProfitMargin)
		if m.NetProfit > 0 {
			s.PeriodsProfitable++
		} else {
			s.PeriodsUnprofitable++
		}
	}

	s.AvgGrossMargin = calc.MeanDefined(gross)
	s.AvgOperatingMargin = calc.MeanDefined(op)
	s.AvgNetProfitMargin = calc.MeanDefined(net)
	s.AvgMonthlyRevenue = calc.Mean(revenues)
	s.MinMonthlyRevenue, s.MaxMonthlyRevenue = calc.MinMax(revenues)
	s.RevenueVolatility = calc.StdDev(revenues)
	s.ProfitVolatility = calc.StdDev(profits)
	s.ProfitabilityRate = calc.Div(float64(s.PeriodsProfitable), float64(len(monthly)))

	last := monthly[len(monthly)-1]
	s.LatestPeriod = last.Period
	s.LatestRevenue = last.TotalRevenue
	return s
}
