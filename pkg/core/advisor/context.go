// Package advisor flattens an analysis into the context map handed to a
// recommendation writer and produces template recommendations from it.
package advisor

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/cashflow"
	"sme_health/pkg/core/credit"
	"sme_health/pkg/core/risk"
	"sme_health/pkg/core/statements"
)

// Context keys.
const (
	KeyIndustry          = "industry"
	KeyLatestRevenue     = "latest_revenue"
	KeyGrossMargin       = "gross_margin"
	KeyNetMargin         = "net_margin"
	KeyProfitabilityRate = "profitability_rate"
	KeyCreditScore       = "credit_score"
	KeyCreditRating      = "credit_rating"
	KeyCreditTrend       = "credit_trend"
	KeyTotalRevenue      = "total_revenue"
	KeyTotalProfit       = "total_profit"
	KeyForecastGrowth    = "forecast_growth"
	KeyRiskLevel         = "risk_level"
	KeyCashRunway        = "cash_runway"
)

const notAvailable = "N/A"

var printer = message.NewPrinter(language.English)

// Inputs gathers what the context is built from. Nil sections are omitted
// or reported as N/A.
type Inputs struct {
	Industry       string
	Statements     statements.Summary
	Credit         credit.Summary
	ForecastGrowth calc.Value // percent; undefined when no forecast ran
	Risk           *risk.Profile
	Cash           *cashflow.Metrics
	CashIssues     *cashflow.Issues
}

// BuildContext renders the inputs as display strings: money as "$1,234.00",
// margins and rates as "55.0%" and the score as "69.7/100".
func BuildContext(in Inputs) map[string]string {
	ctx := map[string]string{
		KeyIndustry:          in.Industry,
		KeyLatestRevenue:     Money(in.Statements.LatestRevenue),
		KeyGrossMargin:       Percent(in.Statements.AvgGrossMargin.Scale(100)),
		KeyNetMargin:         Percent(in.Statements.AvgNetProfitMargin.Scale(100)),
		KeyProfitabilityRate: Percent(in.Statements.ProfitabilityRate.Scale(100)),
		KeyCreditScore:       Score(in.Credit.LatestScore),
		KeyCreditRating:      in.Credit.LatestRating,
		KeyCreditTrend:       in.Credit.Trend,
		KeyTotalRevenue:      Money(in.Statements.TotalRevenue),
		KeyTotalProfit:       Money(in.Statements.TotalNetProfit),
	}
	if ctx[KeyIndustry] == "" {
		ctx[KeyIndustry] = notAvailable
	}
	if ctx[KeyCreditRating] == "" {
		ctx[KeyCreditRating] = notAvailable
	}
	if g, ok := in.ForecastGrowth.Get(); ok {
		ctx[KeyForecastGrowth] = printer.Sprintf("%+.1f%%", g)
	}
	if in.Risk != nil {
		ctx[KeyRiskLevel] = in.Risk.Overall
	}
	if in.Cash != nil {
		ctx[KeyCashRunway] = Runway(*in.Cash)
	}
	return ctx
}

// Money formats an amount with thousands separators.
func Money(v float64) string {
	if v < 0 {
		return printer.Sprintf("-$%.2f", -v)
	}
	return printer.Sprintf("$%.2f", v)
}

// Percent formats a percentage to one decimal.
func Percent(v calc.Value) string {
	x, ok := v.Get()
	if !ok {
		return notAvailable
	}
	return printer.Sprintf("%.1f%%", x)
}

// Score formats a 0-100 score.
func Score(v calc.Value) string {
	x, ok := v.Get()
	if !ok {
		return notAvailable
	}
	return printer.Sprintf("%.1f/100", x)
}

// Runway describes how many months the cash lasts at the current burn.
func Runway(m cashflow.Metrics) string {
	if m.RunwayUnbounded {
		return "unbounded (no cash burn)"
	}
	x, ok := m.CashRunwayMonths.Get()
	if !ok {
		return notAvailable
	}
	return printer.Sprintf("%.1f months", x)
}
