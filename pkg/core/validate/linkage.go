package validate

import (
	"fmt"

	"sme_health/pkg/core/cashflow"
	"sme_health/pkg/core/statements"
)

// =============================================================================
// CROSS-TABLE LINKAGE
// =============================================================================

// LinkageReport ties the monthly statements to their roll-ups and the
// monthly cash table to its balances.
type LinkageReport struct {
	Aggregation *AggregationLinkage `json:"aggregation,omitempty"`
	Cash        *CashLinkage        `json:"cash,omitempty"`
	AllPassed   bool                `json:"all_passed"`
	Failed      []string            `json:"failed_checks,omitempty"`
}

// AggregationLinkage validates that annual sums equal monthly sums.
type AggregationLinkage struct {
	Revenue   IdentityCheck `json:"revenue"`
	NetProfit IdentityCheck `json:"net_profit"`
	Periods   IdentityCheck `json:"periods"`
	IsLinked  bool          `json:"is_linked"`
}

// CashLinkage validates ending balance[i] - ending balance[i-1] equals the
// month's net cash flow, starting from the opening balance.
type CashLinkage struct {
	Breaks   []string `json:"breaks,omitempty"` // periods where the roll-forward fails
	IsLinked bool     `json:"is_linked"`
}

// Linkages runs all cross-table checks. Nil or empty inputs skip the check.
func Linkages(monthly []statements.Statement, annual []statements.Aggregate, months []cashflow.Month, opening float64) LinkageReport {
	report := LinkageReport{AllPassed: true}

	if len(monthly) > 0 && len(annual) > 0 {
		report.Aggregation = aggregationLinkage(monthly, annual)
		if !report.Aggregation.IsLinked {
			report.AllPassed = false
			report.Failed = append(report.Failed, "Annual totals → monthly totals")
		}
	}
	if len(months) > 0 {
		report.Cash = cashLinkage(months, opening)
		if !report.Cash.IsLinked {
			report.AllPassed = false
			report.Failed = append(report.Failed, "Net cash flow → ending balance roll-forward")
		}
	}
	return report
}

func aggregationLinkage(monthly []statements.Statement, annual []statements.Aggregate) *AggregationLinkage {
	var monthRev, monthNet, yearRev, yearNet float64
	var yearPeriods int
	for _, m := range monthly {
		monthRev += m.TotalRevenue
		monthNet += m.NetProfit
	}
	for _, a := range annual {
		yearRev += a.TotalRevenue
		yearNet += a.NetProfit
		yearPeriods += a.Periods
	}

	l := &AggregationLinkage{
		Revenue:   CheckIdentity(yearRev, monthRev, Tolerance),
		NetProfit: CheckIdentity(yearNet, monthNet, Tolerance),
		Periods:   CheckIdentity(float64(yearPeriods), float64(len(monthly)), 0),
	}
	l.IsLinked = l.Revenue.Holds && l.NetProfit.Holds && l.Periods.Holds
	return l
}

func cashLinkage(months []cashflow.Month, opening float64) *CashLinkage {
	l := &CashLinkage{IsLinked: true}
	prev := opening
	for _, m := range months {
		if c := CheckIdentity(m.EndingCashBalance-prev, m.NetCashFlow, Tolerance); !c.Holds {
			l.IsLinked = false
			l.Breaks = append(l.Breaks, fmt.Sprintf("%s (off by %.2f)", m.Period, c.Difference))
		}
		prev = m.EndingCashBalance
	}
	return l
}
