package advisor

// Signal names available to template conditions.
const (
	SignalCreditScore      = "credit_score"
	SignalNetMargin        = "net_margin"
	SignalGrossMargin      = "gross_margin"
	SignalForecastGrowth   = "forecast_growth"
	SignalRunwayMonths     = "cash_runway_months"
	SignalRunwayUnbounded  = "runway_unbounded"
	SignalNegativeCashDays = "negative_cash_days"
	SignalRiskScore        = "risk_score"
	SignalHighRiskAreas    = "high_risk_areas"
)

func when(signal, op string, threshold float64) Condition {
	return Condition{Signal: signal, Op: op, Threshold: threshold}
}

func builtinTemplates() []*Template {
	return []*Template{
		// ==========================================
		// GENERAL
		// ==========================================
		{
			ID: "general.cash_management", FocusArea: FocusGeneral, Title: "Improve Cash Flow Management", Priority: 1,
			Body: "Monitor daily cash positions and maintain a cash reserve of 3-6 months of operating expenses. Consider negotiating better payment terms with suppliers.",
		},
		{
			ID: "general.inventory", FocusArea: FocusGeneral, Title: "Optimize Inventory Levels", Priority: 2,
			Body: "Review inventory turnover rates and reduce excess stock. Just-in-time purchasing frees up working capital.",
		},
		{
			ID: "general.profitability", FocusArea: FocusGeneral, Title: "Enhance Profitability", Priority: 3,
			Body: "Gross margin is {{.gross_margin}} and net margin {{.net_margin}}. Focus on high-margin products and consider discontinuing low-margin items.",
		},
		{
			ID: "general.credit_maintain", FocusArea: FocusGeneral, Title: "Strengthen Credit Profile", Priority: 4,
			Conditions: []Condition{when(SignalCreditScore, ">=", 75)},
			Body:       "Credit score is {{.credit_score}} ({{.credit_rating}}). Maintain it by continuing current practices.",
		},
		{
			ID: "general.credit_improve", FocusArea: FocusGeneral, Title: "Strengthen Credit Profile", Priority: 4,
			Conditions: []Condition{when(SignalCreditScore, "<", 75)},
			Body:       "Credit score is {{.credit_score}} ({{.credit_rating}}). Improve payment history and reduce the debt-to-equity ratio to enhance creditworthiness.",
		},
		{
			ID: "general.plan", FocusArea: FocusGeneral, Title: "Plan for Growth", Priority: 5,
			Body: "Develop a 12-month financial forecast and set clear revenue targets.{{if .forecast_growth}} Revenue is projected at {{.forecast_growth}} against the last six months.{{end}}",
		},

		// ==========================================
		// CASH FLOW
		// ==========================================
		{
			ID: "cash_flow.negative_days", FocusArea: FocusCashFlow, Title: "Eliminate Negative Balance Days", Priority: 1,
			Conditions: []Condition{when(SignalNegativeCashDays, ">", 0)},
			Body:       "The cash balance went negative during the period. Arrange a standby credit line and align supplier payments with collection dates.",
		},
		{
			ID: "cash_flow.runway", FocusArea: FocusCashFlow, Title: "Extend Cash Runway", Priority: 2,
			Conditions: []Condition{when(SignalRunwayMonths, "<", 6)},
			Body:       "At the current burn rate cash lasts {{.cash_runway}}. Defer discretionary spending and draw down excess inventory.",
		},
		{
			ID: "cash_flow.reserve", FocusArea: FocusCashFlow, Title: "Build a Cash Reserve", Priority: 3,
			Body: "Monitor daily cash positions and hold 3-6 months of operating expenses in reserve. Invoice promptly and follow up on receivables past 30 days.",
		},
		{
			ID: "cash_flow.surplus", FocusArea: FocusCashFlow, Title: "Deploy Surplus Cash", Priority: 4,
			Conditions: []Condition{when(SignalRunwayUnbounded, ">=", 1)},
			Body:       "Operations generate cash every month. Consider paying down expensive debt or funding inventory for peak season.",
		},

		// ==========================================
		// PROFITABILITY
		// ==========================================
		{
			ID: "profitability.restore", FocusArea: FocusProfitability, Title: "Restore Profitability", Priority: 1,
			Conditions: []Condition{when(SignalNetMargin, "<", 0)},
			Body:       "The business is losing money with a net margin of {{.net_margin}}. Review every operating expense line and cut non-essential spending.",
		},
		{
			ID: "profitability.widen", FocusArea: FocusProfitability, Title: "Widen Net Margin", Priority: 2,
			Conditions: []Condition{when(SignalNetMargin, ">=", 0), when(SignalNetMargin, "<", 5)},
			Body:       "Net margin of {{.net_margin}} leaves little room for shocks. Negotiate supplier rates and automate manual processes.",
		},
		{
			ID: "profitability.gross", FocusArea: FocusProfitability, Title: "Protect Gross Margin", Priority: 3,
			Conditions: []Condition{when(SignalGrossMargin, "<", 35)},
			Body:       "Gross margin of {{.gross_margin}} is low for the industry. Revisit pricing and leverage purchasing volume with suppliers.",
		},
		{
			ID: "profitability.mix", FocusArea: FocusProfitability, Title: "Focus on High-Margin Products", Priority: 4,
			Body: "Analyze the product mix and shift sales effort toward the highest-margin lines.",
		},

		// ==========================================
		// GROWTH
		// ==========================================
		{
			ID: "growth.decline", FocusArea: FocusGrowth, Title: "Reverse Revenue Decline", Priority: 1,
			Conditions: []Condition{when(SignalForecastGrowth, "<", 0)},
			Body:       "Revenue is forecast at {{.forecast_growth}} against recent months. Invest in customer retention before new acquisition.",
		},
		{
			ID: "growth.expand", FocusArea: FocusGrowth, Title: "Fund Expansion", Priority: 2,
			Conditions: []Condition{when(SignalForecastGrowth, ">=", 5), when(SignalCreditScore, ">=", 70)},
			Body:       "With {{.forecast_growth}} projected growth and a {{.credit_rating}} rating, financing for new locations or product lines should be attainable.",
		},
		{
			ID: "growth.marketing", FocusArea: FocusGrowth, Title: "Digital Marketing", Priority: 3,
			Body: "Invest in online channels including search, social media and email campaigns to reach new customers.",
		},
		{
			ID: "growth.partnerships", FocusArea: FocusGrowth, Title: "Strategic Partnerships", Priority: 4,
			Body: "Partner with complementary businesses to reach new customer segments.",
		},

		// ==========================================
		// RISK
		// ==========================================
		{
			ID: "risk.high_areas", FocusArea: FocusRisk, Title: "Address High Risk Areas", Priority: 1,
			Conditions: []Condition{when(SignalHighRiskAreas, ">", 0)},
			Body:       "The overall profile is {{.risk_level}} with at least one dimension graded high. Address it before seeking new financing.",
		},
		{
			ID: "risk.debt", FocusArea: FocusRisk, Title: "Reduce Debt Levels", Priority: 2,
			Conditions: []Condition{when(SignalCreditScore, "<", 70)},
			Body:       "Credit score is {{.credit_score}}. Pay down existing debt to improve the debt-to-equity ratio.",
		},
		{
			ID: "risk.maintain", FocusArea: FocusRisk, Title: "Maintain Credit Standing", Priority: 2,
			Conditions: []Condition{when(SignalCreditScore, ">=", 70)},
			Body:       "Credit score is {{.credit_score}} and trending {{.credit_trend}}. Debt levels are healthy; keep payments on schedule.",
		},
		{
			ID: "risk.records", FocusArea: FocusRisk, Title: "Document Financial Performance", Priority: 3,
			Body: "Keep accurate, up-to-date records to support future credit applications and diversify credit sources.",
		},
	}
}
