// Package validate runs advisory integrity checks over generated statements.
// Issues are reported, never fatal; callers decide whether to surface them.
package validate

import (
	"fmt"
	"math"

	"sme_health/pkg/core/statements"
)

// Tolerance is the absolute slack allowed on accounting identities.
const Tolerance = 0.01

// COGSRevenueLimit flags COGS above this multiple of revenue.
const COGSRevenueLimit = 1.01

// OutlierThresholdPct flags month-over-month revenue moves beyond this.
const OutlierThresholdPct = 200.0

// Check names.
const (
	CheckNegativeRevenue     = "negative_revenue"
	CheckCOGSExceedsRevenue  = "cogs_exceeds_revenue"
	CheckGrossProfitIdentity = "gross_profit_identity"
	CheckEBITDAIdentity      = "ebitda_identity"
	CheckNetProfitIdentity   = "net_profit_identity"
	CheckInvalidPeriod       = "invalid_period"
	CheckRevenueOutlier      = "revenue_outlier"
)

// Severity of an issue.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is one failed check on one period.
type Issue struct {
	Period     string  `json:"period"`
	Check      string  `json:"check"`
	Severity   string  `json:"severity"`
	Message    string  `json:"message"`
	Difference float64 `json:"difference,omitempty"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Period, i.Check, i.Message)
}

// =============================================================================
// IDENTITY CHECKS
// =============================================================================

// IdentityCheck compares a reported figure with its recomputed value.
type IdentityCheck struct {
	Reported   float64
	Computed   float64
	Difference float64
	Holds      bool
}

// CheckIdentity validates reported == computed within tolerance.
func CheckIdentity(reported, computed, tolerance float64) IdentityCheck {
	diff := reported - computed
	return IdentityCheck{
		Reported:   reported,
		Computed:   computed,
		Difference: diff,
		Holds:      math.Abs(diff) <= tolerance,
	}
}

// Statement checks one monthly statement.
func Statement(s statements.Statement) []Issue {
	var issues []Issue
	add := func(check, severity string, diff float64, format string, args ...interface{}) {
		issues = append(issues, Issue{
			Period:     s.Period,
			Check:      check,
			Severity:   severity,
			Message:    fmt.Sprintf(format, args...),
			Difference: diff,
		})
	}

	if _, err := statements.QuarterKey(s.Period); err != nil {
		add(CheckInvalidPeriod, SeverityError, 0, "period key %q is not YYYY-MM", s.Period)
	}
	if s.TotalRevenue < 0 {
		add(CheckNegativeRevenue, SeverityError, 0, "revenue is negative (%.2f)", s.TotalRevenue)
	}
	if s.TotalCOGS > COGSRevenueLimit*s.TotalRevenue && s.TotalCOGS > 0 {
		add(CheckCOGSExceedsRevenue, SeverityWarning, s.TotalCOGS-s.TotalRevenue,
			"COGS %.2f exceeds revenue %.2f", s.TotalCOGS, s.TotalRevenue)
	}
	if c := CheckIdentity(s.GrossProfit, s.TotalRevenue-s.TotalCOGS, Tolerance); !c.Holds {
		add(CheckGrossProfitIdentity, SeverityError, c.Difference,
			"gross profit %.2f != revenue - COGS %.2f", c.Reported, c.Computed)
	}
	if c := CheckIdentity(s.EBITDA, s.GrossProfit-s.OperatingExpenses, Tolerance); !c.Holds {
		add(CheckEBITDAIdentity, SeverityError, c.Difference,
			"EBITDA %.2f != gross profit - operating expenses %.2f", c.Reported, c.Computed)
	}
	if c := CheckIdentity(s.NetProfit, s.EBITDA-s.Depreciation-s.InterestExpense-s.TaxExpense, Tolerance); !c.Holds {
		add(CheckNetProfitIdentity, SeverityError, c.Difference,
			"net profit %.2f != EBITDA - depreciation - interest - tax %.2f", c.Reported, c.Computed)
	}
	return issues
}

// Statements checks every statement and flags revenue outliers between
// consecutive periods.
func Statements(monthly []statements.Statement) []Issue {
	var issues []Issue
	for i, s := range monthly {
		issues = append(issues, Statement(s)...)
		if i == 0 {
			continue
		}
		if o := CheckForOutlier(s.TotalRevenue, monthly[i-1].TotalRevenue, OutlierThresholdPct); o.IsOutlier {
			issues = append(issues, Issue{
				Period:     s.Period,
				Check:      CheckRevenueOutlier,
				Severity:   SeverityWarning,
				Message:    o.Reason,
				Difference: s.TotalRevenue - monthly[i-1].TotalRevenue,
			})
		}
	}
	return issues
}

// =============================================================================
// OUTLIER DETECTION
// =============================================================================

// OutlierCheck describes a suspicious change between two values.
type OutlierCheck struct {
	Value      float64
	PriorValue float64
	ChangePct  float64
	IsOutlier  bool
	Reason     string
}

// CheckForOutlier flags a drop to zero or a change beyond thresholdPct.
// A zero prior cannot be compared and is never an outlier.
func CheckForOutlier(current, prior, thresholdPct float64) OutlierCheck {
	check := OutlierCheck{Value: current, PriorValue: prior}
	if prior == 0 {
		return check
	}
	check.ChangePct = (current - prior) / math.Abs(prior) * 100

	if current == 0 && prior > 0 {
		check.IsOutlier = true
		check.Reason = "revenue dropped to zero"
		return check
	}
	if math.Abs(check.ChangePct) > thresholdPct {
		check.IsOutlier = true
		check.Reason = fmt.Sprintf("revenue change of %.1f%% exceeds %.1f%%", check.ChangePct, thresholdPct)
	}
	return check
}

// Errors counts issues with error severity.
func Errors(issues []Issue) int {
	n := 0
	for _, i := range issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}
