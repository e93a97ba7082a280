package analysis

import (
	"time"

	"sme_health/pkg/core/advisor"
	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/cashflow"
	"sme_health/pkg/core/clean"
	"sme_health/pkg/core/credit"
	"sme_health/pkg/core/projection"
	"sme_health/pkg/core/ratios"
	"sme_health/pkg/core/risk"
	"sme_health/pkg/core/statements"
	"sme_health/pkg/core/validate"
)

// EntityAnalysis is the complete financial health profile of one business
// derived from its cleaned transactions.
type EntityAnalysis struct {
	EntityID   string    `json:"entity_id,omitempty"`
	RunID      string    `json:"run_id"`
	Industry   string    `json:"industry"`
	AnalyzedAt time.Time `json:"analyzed_at"`

	// 1. Cleaning
	Cleaning *clean.Report `json:"cleaning_report,omitempty"`

	// 2. Statements
	Monthly   []statements.Statement `json:"monthly_statements"`
	Quarterly []statements.Aggregate `json:"quarterly_statements"`
	Annual    []statements.Aggregate `json:"annual_statements"`
	Summary   statements.Summary     `json:"financial_summary"`

	// 3. Cash flow and working capital
	DailyCash      []cashflow.Day            `json:"-"`
	MonthlyCash    []cashflow.Month          `json:"monthly_cash_flow"`
	CashMetrics    cashflow.Metrics          `json:"cash_flow_metrics"`
	WorkingCapital []cashflow.WorkingCapital `json:"working_capital"`
	CashIssues     cashflow.Issues           `json:"cash_flow_issues"`
	WCPlan         *cashflow.Plan            `json:"working_capital_plan,omitempty"`

	// 4. Ratios
	Ratios       []ratios.Bundle `json:"ratios"`
	RatioSummary ratios.Summary  `json:"ratio_summary"`

	// 5. Credit
	CreditScores []credit.Score `json:"credit_scores"`
	Credit       credit.Summary `json:"credit_summary"`

	// 6. Forecasts
	Forecast       *projection.Table      `json:"forecast"`
	ForecastGrowth calc.Value             `json:"forecast_growth"`
	CashForecast   []projection.CashPoint `json:"cash_flow_forecast,omitempty"`

	// 7. Risk, benchmarks and advice
	Risk            *risk.Profile            `json:"risk_profile,omitempty"`
	Benchmarks      []risk.Comparison        `json:"benchmarks,omitempty"`
	Context         map[string]string        `json:"recommendation_context"`
	Recommendations []advisor.Recommendation `json:"recommendations"`

	Diagnostics Diagnostics `json:"diagnostics"`
}

// Diagnostics collects the non-fatal findings of a run.
type Diagnostics struct {
	FallbackReasons []string               `json:"fallback_reasons,omitempty"`
	StatementIssues []validate.Issue       `json:"statement_issues,omitempty"`
	Linkage         validate.LinkageReport `json:"linkage"`
	DigitScreen     validate.DigitScreen   `json:"digit_screen"`
	Warnings        []string               `json:"warnings,omitempty"`
}

// Inputs returns the advisor view of the analysis.
func (a *EntityAnalysis) Inputs() advisor.Inputs {
	return advisor.Inputs{
		Industry:       a.Industry,
		Statements:     a.Summary,
		Credit:         a.Credit,
		ForecastGrowth: a.ForecastGrowth,
		Risk:           a.Risk,
		Cash:           &a.CashMetrics,
		CashIssues:     &a.CashIssues,
	}
}
