// Package cashflow derives daily and monthly cash movement, working
// capital proxies and cash health warnings from cleaned transactions.
package cashflow

import (
	"sort"
	"time"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/clean"
	"sme_health/pkg/core/statements"
)

const (
	// OpeningBalance is the assumed cash on hand before the first day.
	OpeningBalance = 100000.0
	// LowBalanceFloor triggers a warning when the ending balance drops below it.
	LowBalanceFloor = 50000.0
	// MaxNegativeRun is the longest tolerated streak of negative-flow days.
	MaxNegativeRun = 7
)

// Day is one calendar day of cash movement.
type Day struct {
	Date             time.Time `json:"date"`
	Period           string    `json:"period"`
	CashInflow       float64   `json:"cash_inflow"`
	OutflowCOGS      float64   `json:"outflow_cogs"`
	OutflowOperating float64   `json:"outflow_operating"`
	TotalOutflow     float64   `json:"total_outflow"`
	NetCashFlow      float64   `json:"net_cash_flow"`
	CumulativeNet    float64   `json:"cumulative_net"`
	CashBalance      float64   `json:"cash_balance"`
}

// Month is the rollup of a month's days.
type Month struct {
	Period            string  `json:"period"`
	CashInflow        float64 `json:"cash_inflow"`
	OutflowCOGS       float64 `json:"outflow_cogs"`
	OutflowOperating  float64 `json:"outflow_operating"`
	TotalOutflow      float64 `json:"total_outflow"`
	NetCashFlow       float64 `json:"net_cash_flow"`
	EndingCashBalance float64 `json:"ending_cash_balance"`
}

// Daily expands every observed month into one row per calendar day. Sales are
// booked on their own day; operating expenses are spread evenly over the
// month. The opening balance applies before the first day.
func Daily(txs []clean.Transaction, monthly []statements.Statement, opening float64) []Day {
	type flows struct{ inflow, cogs float64 }
	byDay := make(map[string]*flows)
	for _, tx := range txs {
		key := tx.Date.Format("2006-01-02")
		f, ok := byDay[key]
		if !ok {
			f = &flows{}
			byDay[key] = f
		}
		f.inflow += tx.Revenue
		f.cogs += tx.COGS
	}

	rows := make([]statements.Statement, len(monthly))
	copy(rows, monthly)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Period < rows[j].Period })

	var out []Day
	var cumulative float64
	for _, m := range rows {
		first, err := time.Parse("2006-01", m.Period)
		if err != nil {
			continue
		}
		days := daysIn(first)
		opexPerDay := m.OperatingExpenses / float64(days)
		for d := 0; d < days; d++ {
			date := first.AddDate(0, 0, d)
			day := Day{Date: date, Period: m.Period, OutflowOperating: opexPerDay}
			if f, ok := byDay[date.Format("2006-01-02")]; ok {
				day.CashInflow = f.inflow
				day.OutflowCOGS = f.cogs
			}
			day.TotalOutflow = day.OutflowCOGS + day.OutflowOperating
			day.NetCashFlow = day.CashInflow - day.TotalOutflow
			cumulative += day.NetCashFlow
			day.CumulativeNet = cumulative
			day.CashBalance = opening + cumulative
			out = append(out, day)
		}
	}
	return out
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// Monthly sums days by period. The ending balance is the last day's balance.
func Monthly(days []Day) []Month {
	var out []Month
	for _, d := range days {
		if len(out) == 0 || out[len(out)-1].Period != d.Period {
			out = append(out, Month{Period: d.Period})
		}
		m := &out[len(out)-1]
		m.CashInflow += d.CashInflow
		m.OutflowCOGS += d.OutflowCOGS
		m.OutflowOperating += d.OutflowOperating
		m.TotalOutflow += d.TotalOutflow
		m.NetCashFlow += d.NetCashFlow
		m.EndingCashBalance = d.CashBalance
	}
	return out
}

// Metrics summarizes a monthly cash series.
type Metrics struct {
	TotalInflow        float64    `json:"total_inflow"`
	TotalOutflow       float64    `json:"total_outflow"`
	NetCashFlow        float64    `json:"net_cash_flow"`
	AvgMonthlyInflow   calc.Value `json:"avg_monthly_inflow"`
	AvgMonthlyOutflow  calc.Value `json:"avg_monthly_outflow"`
	AvgMonthlyNet      calc.Value `json:"avg_monthly_net"`
	MonthsPositive     int        `json:"months_positive"`
	MonthsNegative     int        `json:"months_negative"`
	MaxMonthlyInflow   float64    `json:"max_monthly_inflow"`
	MinMonthlyInflow   float64    `json:"min_monthly_inflow"`
	Volatility         calc.Value `json:"cash_flow_volatility"`
	EndingCashBalance  float64    `json:"ending_cash_balance"`
	CashRunwayMonths   calc.Value `json:"cash_runway_months"`
	RunwayUnbounded    bool       `json:"runway_unbounded"`
	AvgMonthlyBurnRate calc.Value `json:"avg_monthly_burn_rate"`
}

// ComputeMetrics derives totals, averages and runway. Runway is the ending
// balance divided by the mean burn of negative months; with no burning month
// it is unbounded and left undefined.
func ComputeMetrics(months []Month) Metrics {
	var m Metrics
	if len(months) == 0 {
		return m
	}

	inflows := make([]float64, len(months))
	outflows := make([]float64, len(months))
	nets := make([]float64, len(months))
	var burns []float64
	for i, mo := range months {
		inflows[i] = mo.CashInflow
		outflows[i] = mo.TotalOutflow
		nets[i] = mo.NetCashFlow
		if mo.NetCashFlow > 0 {
			m.MonthsPositive++
		} else {
			m.MonthsNegative++
		}
		if mo.NetCashFlow < 0 {
			burns = append(burns, -mo.NetCashFlow)
		}
	}

	m.TotalInflow = calc.Sum(inflows)
	m.TotalOutflow = calc.Sum(outflows)
	m.NetCashFlow = calc.Sum(nets)
	m.AvgMonthlyInflow = calc.Mean(inflows)
	m.AvgMonthlyOutflow = calc.Mean(outflows)
	m.AvgMonthlyNet = calc.Mean(nets)
	m.MinMonthlyInflow, m.MaxMonthlyInflow = calc.MinMax(inflows)
	m.Volatility = calc.StdDev(nets)
	m.EndingCashBalance = months[len(months)-1].EndingCashBalance

	if len(burns) == 0 {
		m.RunwayUnbounded = true
		m.CashRunwayMonths = calc.Undefined
		return m
	}
	m.AvgMonthlyBurnRate = calc.Mean(burns)
	if m.EndingCashBalance <= 0 {
		m.CashRunwayMonths = calc.Defined(0)
		return m
	}
	m.CashRunwayMonths = calc.DivV(calc.Defined(m.EndingCashBalance), m.AvgMonthlyBurnRate)
	return m
}

// EndingBalances extracts the month-end balance keyed by period.
func EndingBalances(months []Month) map[string]float64 {
	out := make(map[string]float64, len(months))
	for _, m := range months {
		out[m.Period] = m.EndingCashBalance
	}
	return out
}
