// Package statements aggregates cleaned transactions into monthly P&L
// statements and rolls them up to quarters and years.
//
// Operating expenses, depreciation, interest and tax are synthetic: each is a
// configured fraction of revenue, not a measured ledger value.
package statements

import (
	"sort"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/clean"
	"sme_health/pkg/core/config"
)

// Statement is one monthly P&L row.
type Statement struct {
	Period       string  `json:"period"`
	TotalRevenue float64 `json:"total_revenue"`
	TotalCOGS    float64 `json:"total_cogs"`
	GrossProfit  float64 `json:"gross_profit"`
	UnitsSold    float64 `json:"units_sold"`

	// Expenses holds each synthetic category amount keyed by category name.
	Expenses          map[string]float64 `json:"expenses"`
	OperatingExpenses float64            `json:"operating_expenses"`
	EBITDA            float64            `json:"ebitda"`
	Depreciation      float64            `json:"depreciation"`
	InterestExpense   float64            `json:"interest_expense"`
	EBT               float64            `json:"ebt"`
	TaxExpense        float64            `json:"tax_expense"`
	NetProfit         float64            `json:"net_profit"`

	// Margins are fractions of revenue, undefined when revenue is zero.
	GrossMargin     calc.Value `json:"gross_margin"`
	OperatingMargin calc.Value `json:"operating_margin"`
	NetProfitMargin calc.Value `json:"net_profit_margin"`

	EstimatedAssets float64    `json:"estimated_assets"` // 2x monthly revenue
	ROA             calc.Value `json:"roa"`              // annualized
}

// Generator builds statements from a fixed set of financial assumptions.
type Generator struct {
	cfg config.FinancialConfig
}

// NewGenerator creates a generator for the given assumptions.
func NewGenerator(cfg config.FinancialConfig) *Generator {
	return &Generator{cfg: cfg}
}

// Monthly groups transactions by period and derives one statement per
// observed period, ordered chronologically.
func (g *Generator) Monthly(txs []clean.Transaction) []Statement {
	type bucket struct {
		revenue, cogs, gp, units float64
	}
	buckets := make(map[string]*bucket)
	var periods []string
	for _, tx := range txs {
		b, ok := buckets[tx.Period]
		if !ok {
			b = &bucket{}
			buckets[tx.Period] = b
			periods = append(periods, tx.Period)
		}
		b.revenue += tx.Revenue
		b.cogs += tx.COGS
		b.gp += tx.GrossProfit
		b.units += tx.Quantity
	}
	sort.Strings(periods)

	out := make([]Statement, 0, len(periods))
	for _, p := range periods {
		b := buckets[p]
		out = append(out, g.Build(p, b.revenue, b.cogs, b.gp, b.units))
	}
	return out
}

// Build derives a full statement from period totals.
func (g *Generator) Build(period string, revenue, cogs, grossProfit, units float64) Statement {
	s := Statement{
		Period:       period,
		TotalRevenue: revenue,
		TotalCOGS:    cogs,
		GrossProfit:  grossProfit,
		UnitsSold:    units,
		Expenses:     make(map[string]float64, len(g.cfg.ExpenseRatios)),
	}

	for _, name := range g.cfg.ExpenseCategories() {
		amount := revenue * g.cfg.ExpenseRatios[name]
		s.Expenses[name] = amount
		s.OperatingExpenses += amount
	}

	s.EBITDA = s.GrossProfit - s.OperatingExpenses
	s.Depreciation = revenue * g.cfg.DepreciationRate
	s.InterestExpense = revenue * g.cfg.InterestRate
	s.EBT = s.EBITDA - s.Depreciation - s.InterestExpense

	// Floored per period; a loss is not carried forward.
	s.TaxExpense = s.EBT * g.cfg.TaxRate
	if s.TaxExpense < 0 {
		s.TaxExpense = 0
	}
	s.NetProfit = s.EBT - s.TaxExpense

	s.GrossMargin = calc.Div(s.GrossProfit, revenue)
	s.OperatingMargin = calc.Div(s.EBITDA, revenue)
	s.NetProfitMargin = calc.Div(s.NetProfit, revenue)

	s.EstimatedAssets = revenue * 2
	s.ROA = calc.Div(s.NetProfit, s.EstimatedAssets).Scale(12)
	return s
}

// Revenues extracts the revenue series.
func Revenues(rows []Statement) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.TotalRevenue
	}
	return out
}

// NetProfits extracts the net profit series.
func NetProfits(rows []Statement) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.NetProfit
	}
	return out
}
