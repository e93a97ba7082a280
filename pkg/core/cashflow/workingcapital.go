package cashflow

import (
	"fmt"
	"math"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/statements"
)

// =============================================================================
// WORKING CAPITAL
// =============================================================================

// WorkingCapital holds the per-period balance sheet proxies. There is no
// ledger behind these: receivables equal a month of revenue, inventory is
// 1.5x COGS and payables equal COGS.
type WorkingCapital struct {
	Period             string     `json:"period"`
	Revenue            float64    `json:"total_revenue"`
	COGS               float64    `json:"total_cogs"`
	AccountsReceivable float64    `json:"accounts_receivable"`
	Inventory          float64    `json:"inventory"`
	AccountsPayable    float64    `json:"accounts_payable"`
	WorkingCapital     float64    `json:"working_capital"`
	WCPctRevenue       calc.Value `json:"wc_pct_revenue"`
	ChangeInWC         calc.Value `json:"change_in_wc"`
	DIO                calc.Value `json:"days_inventory_outstanding"`
	DSO                calc.Value `json:"days_sales_outstanding"`
	DPO                calc.Value `json:"days_payables_outstanding"`
	CCC                calc.Value `json:"cash_conversion_cycle"`
}

// ComputeWorkingCapital derives the working capital proxies and the cash
// conversion cycle for each monthly statement.
func ComputeWorkingCapital(monthly []statements.Statement) []WorkingCapital {
	out := make([]WorkingCapital, len(monthly))
	for i, s := range monthly {
		wc := WorkingCapital{
			Period:             s.Period,
			Revenue:            s.TotalRevenue,
			COGS:               s.TotalCOGS,
			AccountsReceivable: s.TotalRevenue,
			Inventory:          s.TotalCOGS * 1.5,
			AccountsPayable:    s.TotalCOGS,
		}
		wc.WorkingCapital = wc.AccountsReceivable + wc.Inventory - wc.AccountsPayable
		wc.WCPctRevenue = calc.Pct(wc.WorkingCapital, s.TotalRevenue)
		if i > 0 {
			wc.ChangeInWC = calc.Defined(wc.WorkingCapital - out[i-1].WorkingCapital)
		}
		wc.DIO = calc.DaysOutstanding(wc.Inventory, s.TotalCOGS)
		wc.DSO = calc.DaysOutstanding(wc.AccountsReceivable, s.TotalRevenue)
		wc.DPO = calc.DaysOutstanding(wc.AccountsPayable, s.TotalCOGS)
		wc.CCC = calc.CashConversionCycle(wc.DIO, wc.DSO, wc.DPO)
		out[i] = wc
	}
	return out
}

// =============================================================================
// ISSUE DETECTION
// =============================================================================

// Issues is the advisory cash health report. Nothing here stops a run.
type Issues struct {
	Issues                 []string `json:"issues"`
	Warnings               []string `json:"warnings"`
	NegativeBalanceDays    int      `json:"negative_balance_days"`
	NegativeBalancePeriods []string `json:"negative_balance_periods"`
	LongestNegativeRun     int      `json:"longest_negative_run"`
}

// Count returns the number of issues and warnings.
func (i Issues) Count() int {
	return len(i.Issues) + len(i.Warnings)
}

// DetectIssues scans the daily series for negative balances, long runs of
// negative flow, unstable flow and a low ending balance.
func DetectIssues(days []Day, floor float64) Issues {
	res := Issues{Issues: []string{}, Warnings: []string{}, NegativeBalancePeriods: []string{}}
	if len(days) == 0 {
		return res
	}

	seenPeriod := make(map[string]bool)
	run := 0
	nets := make([]float64, len(days))
	for i, d := range days {
		nets[i] = d.NetCashFlow
		if d.CashBalance < 0 {
			res.NegativeBalanceDays++
			if !seenPeriod[d.Period] {
				seenPeriod[d.Period] = true
				res.NegativeBalancePeriods = append(res.NegativeBalancePeriods, d.Period)
			}
		}
		if d.NetCashFlow < 0 {
			run++
			if run > res.LongestNegativeRun {
				res.LongestNegativeRun = run
			}
		} else {
			run = 0
		}
	}

	if res.NegativeBalanceDays > 0 {
		res.Issues = append(res.Issues, fmt.Sprintf("Negative cash balance on %d days", res.NegativeBalanceDays))
	}
	if res.LongestNegativeRun > MaxNegativeRun {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Extended negative cash flow period: %d consecutive days", res.LongestNegativeRun))
	}

	if std, ok := calc.StdDev(nets).Get(); ok {
		mean, _ := calc.Mean(nets).Get()
		if std > 2*math.Abs(mean) {
			res.Warnings = append(res.Warnings, "High cash flow volatility detected")
		}
	}

	ending := days[len(days)-1].CashBalance
	if ending < floor {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Low ending cash balance: $%.2f", ending))
	}
	return res
}
