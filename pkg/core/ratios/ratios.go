// Package ratios computes the per-period financial ratio bundle from monthly
// statements and the month-end cash position.
//
// Balance sheet lines are heuristic proxies: debt is 1.5x revenue, equity is
// a fixed base plus cumulative net profit and total assets are working
// capital plus 3x revenue. Ratios built on them are indicative only.
package ratios

import (
	"sort"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/cashflow"
	"sme_health/pkg/core/statements"
)

const (
	BaseEquity        = 500000.0
	DebtToRevenue     = 1.5
	AssetsToRevenue   = 3.0
	AnnualPrincipal   = 0.10
	yoyMinimumPeriods = 12
)

// Category names used as keys in Bundle.Categories.
const (
	CategoryProfitability = "profitability"
	CategoryLiquidity     = "liquidity"
	CategoryEfficiency    = "efficiency"
	CategoryLeverage      = "leverage"
	CategoryGrowth        = "growth"
)

// Profitability margins are percentages.
type Profitability struct {
	GrossMargin     calc.Value `json:"gross_margin"`
	OperatingMargin calc.Value `json:"operating_margin"`
	NetMargin       calc.Value `json:"net_margin"`
	EBITDAMargin    calc.Value `json:"ebitda_margin"`
}

type Liquidity struct {
	CashBalance         calc.Value `json:"cash_balance"`
	CurrentAssets       calc.Value `json:"current_assets"`
	CurrentLiabilities  float64    `json:"current_liabilities"`
	CurrentRatio        calc.Value `json:"current_ratio"`
	QuickRatio          calc.Value `json:"quick_ratio"`
	CashRatio           calc.Value `json:"cash_ratio"`
	WorkingCapital      float64    `json:"working_capital"`
	WorkingCapitalRatio calc.Value `json:"working_capital_ratio"`
}

type Efficiency struct {
	TotalAssets         float64    `json:"total_assets"`
	AssetTurnover       calc.Value `json:"asset_turnover"`
	InventoryTurnover   calc.Value `json:"inventory_turnover"`
	ReceivablesTurnover calc.Value `json:"receivables_turnover"`
	DIO                 calc.Value `json:"days_inventory_outstanding"`
	DSO                 calc.Value `json:"days_sales_outstanding"`
	DPO                 calc.Value `json:"days_payables_outstanding"`
	CCC                 calc.Value `json:"cash_conversion_cycle"`
}

type Leverage struct {
	TotalDebt        float64    `json:"total_debt"`
	TotalEquity      float64    `json:"total_equity"`
	DebtToEquity     calc.Value `json:"debt_to_equity"`
	DebtRatio        calc.Value `json:"debt_ratio"`
	EquityRatio      calc.Value `json:"equity_ratio"`
	InterestCoverage calc.Value `json:"interest_coverage"`
	DSCR             calc.Value `json:"dscr"`
}

// Growth rates are percentages; MoM is undefined for the first period and
// YoY is only computed once twelve periods exist.
type Growth struct {
	RevenueGrowthMoM   calc.Value `json:"revenue_growth_mom"`
	ProfitGrowthMoM    calc.Value `json:"profit_growth_mom"`
	EBITDAGrowthMoM    calc.Value `json:"ebitda_growth_mom"`
	RevenueGrowth3MAvg calc.Value `json:"revenue_growth_3m_avg"`
	RevenueGrowthYoY   calc.Value `json:"revenue_growth_yoy"`
	ProfitGrowthYoY    calc.Value `json:"profit_growth_yoy"`
}

// Bundle is every ratio for one period.
type Bundle struct {
	Period        string        `json:"period"`
	Profitability Profitability `json:"profitability"`
	Liquidity     Liquidity     `json:"liquidity"`
	Efficiency    Efficiency    `json:"efficiency"`
	Leverage      Leverage      `json:"leverage"`
	Growth        Growth        `json:"growth"`
}

// Compute derives one bundle per statement. Month-end cash is looked up by
// period; a period with no cash row leaves the cash-based liquidity ratios
// undefined.
func Compute(monthly []statements.Statement, cash []cashflow.Month) []Bundle {
	wc := cashflow.ComputeWorkingCapital(monthly)
	ending := cashflow.EndingBalances(cash)

	revenues := statements.Revenues(monthly)
	profits := statements.NetProfits(monthly)
	ebitda := make([]float64, len(monthly))
	for i, s := range monthly {
		ebitda[i] = s.EBITDA
	}
	cumNet := calc.CumSum(profits)

	revGrowth := calc.PctChangeSeries(revenues, 1)
	profitGrowth := calc.PctChangeSeries(profits, 1)
	ebitdaGrowth := calc.PctChangeSeries(ebitda, 1)
	rev3m := calc.RollingMean(revGrowth, 3)
	var revYoY, profitYoY []calc.Value
	if len(monthly) >= yoyMinimumPeriods {
		revYoY = calc.PctChangeSeries(revenues, 12)
		profitYoY = calc.PctChangeSeries(profits, 12)
	}

	out := make([]Bundle, len(monthly))
	for i, s := range monthly {
		w := wc[i]
		b := Bundle{Period: s.Period}

		b.Profitability = Profitability{
			GrossMargin:     calc.Pct(s.GrossProfit, s.TotalRevenue),
			OperatingMargin: calc.Pct(s.EBITDA, s.TotalRevenue),
			NetMargin:       calc.Pct(s.NetProfit, s.TotalRevenue),
			EBITDAMargin:    calc.Pct(s.EBITDA, s.TotalRevenue),
		}

		liq := Liquidity{
			CurrentLiabilities:  w.AccountsPayable,
			WorkingCapital:      w.WorkingCapital,
			WorkingCapitalRatio: calc.Div(w.WorkingCapital, s.TotalRevenue),
		}
		if bal, ok := ending[s.Period]; ok {
			ca := bal + w.AccountsReceivable + w.Inventory
			liq.CashBalance = calc.Defined(bal)
			liq.CurrentAssets = calc.Defined(ca)
			liq.CurrentRatio = calc.CurrentRatio(ca, w.AccountsPayable)
			liq.QuickRatio = calc.QuickRatio(ca, w.Inventory, w.AccountsPayable)
			liq.CashRatio = calc.CashRatio(bal, w.AccountsPayable)
		}
		b.Liquidity = liq

		totalAssets := w.WorkingCapital + AssetsToRevenue*s.TotalRevenue
		b.Efficiency = Efficiency{
			TotalAssets:         totalAssets,
			AssetTurnover:       calc.Div(s.TotalRevenue, totalAssets),
			InventoryTurnover:   calc.Div(s.TotalCOGS, w.Inventory),
			ReceivablesTurnover: calc.Div(s.TotalRevenue, w.AccountsReceivable),
			DIO:                 w.DIO,
			DSO:                 w.DSO,
			DPO:                 w.DPO,
			CCC:                 w.CCC,
		}

		debt := DebtToRevenue * s.TotalRevenue
		equity := BaseEquity + cumNet[i]
		principal := debt * AnnualPrincipal / 12
		b.Leverage = Leverage{
			TotalDebt:        debt,
			TotalEquity:      equity,
			DebtToEquity:     calc.Div(debt, equity),
			DebtRatio:        calc.Div(debt, totalAssets),
			EquityRatio:      calc.Div(equity, totalAssets),
			InterestCoverage: calc.InterestCoverage(s.EBITDA, s.InterestExpense),
			DSCR:             calc.DSCR(s.EBITDA, s.InterestExpense, principal),
		}

		g := Growth{
			RevenueGrowthMoM:   revGrowth[i],
			ProfitGrowthMoM:    profitGrowth[i],
			EBITDAGrowthMoM:    ebitdaGrowth[i],
			RevenueGrowth3MAvg: rev3m[i],
		}
		if revYoY != nil {
			g.RevenueGrowthYoY = revYoY[i]
			g.ProfitGrowthYoY = profitYoY[i]
		}
		b.Growth = g

		out[i] = b
	}
	return out
}

// Categories flattens the bundle into category -> ratio name -> value. Raw
// balance lines (assets, debt, equity) are left out.
func (b Bundle) Categories() map[string]map[string]calc.Value {
	p, l, e, v, g := b.Profitability, b.Liquidity, b.Efficiency, b.Leverage, b.Growth
	return map[string]map[string]calc.Value{
		CategoryProfitability: {
			"gross_margin":     p.GrossMargin,
			"operating_margin": p.OperatingMargin,
			"net_margin":       p.NetMargin,
			"ebitda_margin":    p.EBITDAMargin,
		},
		CategoryLiquidity: {
			"current_ratio":         l.CurrentRatio,
			"quick_ratio":           l.QuickRatio,
			"cash_ratio":            l.CashRatio,
			"working_capital_ratio": l.WorkingCapitalRatio,
		},
		CategoryEfficiency: {
			"asset_turnover":             e.AssetTurnover,
			"inventory_turnover":         e.InventoryTurnover,
			"receivables_turnover":       e.ReceivablesTurnover,
			"days_inventory_outstanding": e.DIO,
			"days_sales_outstanding":     e.DSO,
			"days_payables_outstanding":  e.DPO,
			"cash_conversion_cycle":      e.CCC,
		},
		CategoryLeverage: {
			"debt_to_equity":    v.DebtToEquity,
			"debt_ratio":        v.DebtRatio,
			"equity_ratio":      v.EquityRatio,
			"interest_coverage": v.InterestCoverage,
			"dscr":              v.DSCR,
		},
		CategoryGrowth: {
			"revenue_growth_mom":    g.RevenueGrowthMoM,
			"profit_growth_mom":     g.ProfitGrowthMoM,
			"ebitda_growth_mom":     g.EBITDAGrowthMoM,
			"revenue_growth_3m_avg": g.RevenueGrowth3MAvg,
			"revenue_growth_yoy":    g.RevenueGrowthYoY,
			"profit_growth_yoy":     g.ProfitGrowthYoY,
		},
	}
}

// Summary is the per-category mean of each ratio over its defined periods.
type Summary map[string]map[string]calc.Value

// Summarize averages every ratio across bundles, skipping undefined values.
// A ratio never defined in any period stays undefined.
func Summarize(bundles []Bundle) Summary {
	collected := make(map[string]map[string][]calc.Value)
	for _, b := range bundles {
		for cat, ratios := range b.Categories() {
			if collected[cat] == nil {
				collected[cat] = make(map[string][]calc.Value)
			}
			for name, v := range ratios {
				collected[cat][name] = append(collected[cat][name], v)
			}
		}
	}

	out := make(Summary, len(collected))
	for cat, ratios := range collected {
		out[cat] = make(map[string]calc.Value, len(ratios))
		for name, vals := range ratios {
			out[cat][name] = calc.MeanDefined(vals)
		}
	}
	return out
}

// Names lists the ratio names of a category in sorted order.
func (s Summary) Names(category string) []string {
	names := make([]string, 0, len(s[category]))
	for name := range s[category] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Latest returns the last bundle, if any.
func Latest(bundles []Bundle) (Bundle, bool) {
	if len(bundles) == 0 {
		return Bundle{}, false
	}
	return bundles[len(bundles)-1], true
}
