// Package analysis runs every calculation stage over one entity's cleaned
// transactions and assembles the result.
package analysis

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sme_health/pkg/core/advisor"
	"sme_health/pkg/core/cashflow"
	"sme_health/pkg/core/clean"
	"sme_health/pkg/core/config"
	"sme_health/pkg/core/credit"
	"sme_health/pkg/core/logging"
	"sme_health/pkg/core/projection"
	"sme_health/pkg/core/ratios"
	"sme_health/pkg/core/risk"
	"sme_health/pkg/core/statements"
	"sme_health/pkg/core/validate"
)

// Engine holds the configured calculators. It is safe for concurrent use;
// every call works on its own input.
type Engine struct {
	cfg         config.Config
	generator   *statements.Generator
	scorer      *credit.Scorer
	forecaster  *projection.Forecaster
	benchmarker *risk.Benchmarker
	advisor     *advisor.Advisor
	log         logrus.FieldLogger
}

// NewEngine validates the configuration and builds the calculators. An
// industry without benchmark tables is allowed; comparisons are skipped.
func NewEngine(cfg config.Config, log logrus.FieldLogger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = logging.Discard()
	}
	scorer, err := credit.NewScorer(credit.DefaultWeights())
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:        cfg,
		generator:  statements.NewGenerator(cfg.Financial),
		scorer:     scorer,
		forecaster: projection.NewForecaster(log),
		advisor:    advisor.New(nil),
		log:        log,
	}
	if bm, err := risk.NewBenchmarker(cfg); err == nil {
		e.benchmarker = bm
	} else {
		log.WithField("industry", cfg.Industry).Warn("benchmarks unavailable; comparisons skipped")
	}
	return e, nil
}

// SetAdvisor replaces the recommendation templates.
func (e *Engine) SetAdvisor(a *advisor.Advisor) {
	e.advisor = a
}

// Analyze runs stages 2 through 7 plus risk and integrity checks. Fewer than
// two months of history cannot be forecast and returns the forecaster's
// *projection.InsufficientHistoryError.
func (e *Engine) Analyze(txs []clean.Transaction, report *clean.Report) (*EntityAnalysis, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("no transactions to analyze")
	}

	a := &EntityAnalysis{
		RunID:      uuid.NewString(),
		Industry:   e.cfg.Industry,
		AnalyzedAt: time.Now().UTC(),
		Cleaning:   report,
	}

	// 1. Statements
	a.Monthly = e.generator.Monthly(txs)
	var err error
	if a.Quarterly, err = statements.Quarterly(a.Monthly); err != nil {
		return nil, fmt.Errorf("quarterly roll-up failed: %w", err)
	}
	if a.Annual, err = statements.Annual(a.Monthly); err != nil {
		return nil, fmt.Errorf("annual roll-up failed: %w", err)
	}
	a.Summary = statements.Summarize(a.Monthly)

	// 2. Cash flow and working capital
	a.DailyCash = cashflow.Daily(txs, a.Monthly, cashflow.OpeningBalance)
	a.MonthlyCash = cashflow.Monthly(a.DailyCash)
	a.CashMetrics = cashflow.ComputeMetrics(a.MonthlyCash)
	a.WorkingCapital = cashflow.ComputeWorkingCapital(a.Monthly)
	a.CashIssues = cashflow.DetectIssues(a.DailyCash, cashflow.LowBalanceFloor)
	if plan, ok := cashflow.Optimize(a.WorkingCapital); ok {
		a.WCPlan = &plan
	}

	// 3. Ratios and credit
	a.Ratios = ratios.Compute(a.Monthly, a.MonthlyCash)
	a.RatioSummary = ratios.Summarize(a.Ratios)
	a.CreditScores = e.scorer.Score(a.Ratios)
	a.Credit = credit.Summarize(a.CreditScores)

	// 4. Forecasts
	if err := e.forecast(a); err != nil {
		return nil, err
	}

	// 5. Risk and benchmarks
	if latest, ok := ratios.Latest(a.Ratios); ok {
		profile := risk.Assess(latest)
		a.Risk = &profile
		if e.benchmarker != nil {
			a.Benchmarks = e.benchmarker.Compare(latest)
		}
	}

	// 6. Integrity checks
	a.Diagnostics.StatementIssues = validate.Statements(a.Monthly)
	a.Diagnostics.Linkage = validate.Linkages(a.Monthly, a.Annual, a.MonthlyCash, cashflow.OpeningBalance)
	amounts := make([]float64, len(txs))
	for i, tx := range txs {
		amounts[i] = tx.Revenue
	}
	a.Diagnostics.DigitScreen = validate.ScreenDigits(amounts)
	if a.Diagnostics.DigitScreen.Flagged {
		e.log.WithField("mad", a.Diagnostics.DigitScreen.MAD).Warn("transaction amounts deviate from the first-digit distribution")
	}

	// 7. Advice
	in := a.Inputs()
	a.Context = advisor.BuildContext(in)
	for _, focus := range []string{advisor.FocusCashFlow, advisor.FocusProfitability, advisor.FocusGrowth, advisor.FocusRisk} {
		recs, err := e.advisor.Recommend(in, focus)
		if err != nil {
			a.Diagnostics.Warnings = append(a.Diagnostics.Warnings, err.Error())
			continue
		}
		a.Recommendations = append(a.Recommendations, recs...)
	}

	return a, nil
}

func (e *Engine) forecast(a *EntityAnalysis) error {
	periods := make([]string, len(a.Monthly))
	for i, m := range a.Monthly {
		periods[i] = m.Period
	}
	revenues := statements.Revenues(a.Monthly)

	table, err := e.forecaster.Ensemble(periods, revenues, e.cfg.Forecast.Periods)
	if err != nil {
		return fmt.Errorf("revenue forecast failed: %w", err)
	}
	a.Forecast = table
	a.ForecastGrowth = projection.Growth(revenues, table)
	a.Diagnostics.FallbackReasons = append(a.Diagnostics.FallbackReasons, table.FallbackReasons...)

	cash, err := projection.CashFlow(a.MonthlyCash, e.cfg.Forecast.Periods)
	if err != nil {
		a.Diagnostics.Warnings = append(a.Diagnostics.Warnings, fmt.Sprintf("cash flow forecast skipped: %v", err))
		return nil
	}
	a.CashForecast = cash
	return nil
}
