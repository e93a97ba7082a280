package cashflow

import (
	"math"
	"testing"
	"time"

	"sme_health/pkg/core/clean"
	"sme_health/pkg/core/config"
	"sme_health/pkg/core/statements"
)

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func februarySales() ([]clean.Transaction, []statements.Statement) {
	txs := []clean.Transaction{
		{Date: day("2024-02-03"), Period: "2024-02", Quantity: 1, Revenue: 10000, COGS: 4500, GrossProfit: 5500},
		{Date: day("2024-02-20"), Period: "2024-02", Quantity: 2, Revenue: 20000, COGS: 9000, GrossProfit: 11000},
	}
	monthly := statements.NewGenerator(config.Default().Financial).Monthly(txs)
	return txs, monthly
}

func TestDaily_CoversEveryCalendarDay(t *testing.T) {
	txs, monthly := februarySales()
	days := Daily(txs, monthly, OpeningBalance)

	if len(days) != 29 {
		t.Fatalf("expected 29 days for February 2024, got %d", len(days))
	}
	var inflow, opex float64
	for _, d := range days {
		inflow += d.CashInflow
		opex += d.OutflowOperating
	}
	if inflow != 30000 {
		t.Errorf("expected total inflow 30000, got %.2f", inflow)
	}
	if math.Abs(opex-monthly[0].OperatingExpenses) > 1e-6 {
		t.Errorf("expected opex %.2f spread over the month, got %.2f", monthly[0].OperatingExpenses, opex)
	}
	if days[2].CashInflow != 10000 || days[3].CashInflow != 0 {
		t.Errorf("sales booked on the wrong day: %+v / %+v", days[2], days[3])
	}

	want := OpeningBalance + 30000 - 13500 - monthly[0].OperatingExpenses
	if math.Abs(days[len(days)-1].CashBalance-want) > 1e-6 {
		t.Errorf("expected ending balance %.2f, got %.2f", want, days[len(days)-1].CashBalance)
	}
}

func TestMonthly_RollsUpDays(t *testing.T) {
	txs, monthly := februarySales()
	days := Daily(txs, monthly, OpeningBalance)
	months := Monthly(days)

	if len(months) != 1 {
		t.Fatalf("expected 1 month, got %d", len(months))
	}
	m := months[0]
	if m.CashInflow != 30000 || m.OutflowCOGS != 13500 {
		t.Errorf("unexpected rollup: %+v", m)
	}
	if m.EndingCashBalance != days[len(days)-1].CashBalance {
		t.Errorf("ending balance should equal the last daily balance")
	}
	if math.Abs(m.NetCashFlow-(m.CashInflow-m.TotalOutflow)) > 1e-6 {
		t.Errorf("net flow identity broken: %+v", m)
	}
}

func TestComputeMetrics_Runway(t *testing.T) {
	months := []Month{
		{Period: "2024-01", CashInflow: 50000, TotalOutflow: 60000, NetCashFlow: -10000, EndingCashBalance: 90000},
		{Period: "2024-02", CashInflow: 70000, TotalOutflow: 50000, NetCashFlow: 20000, EndingCashBalance: 110000},
		{Period: "2024-03", CashInflow: 40000, TotalOutflow: 70000, NetCashFlow: -30000, EndingCashBalance: 80000},
	}
	m := ComputeMetrics(months)

	if m.MonthsPositive != 1 || m.MonthsNegative != 2 {
		t.Errorf("expected 1 positive / 2 negative months, got %d / %d", m.MonthsPositive, m.MonthsNegative)
	}
	if m.RunwayUnbounded {
		t.Fatal("expected bounded runway")
	}
	runway, ok := m.CashRunwayMonths.Get()
	if !ok || math.Abs(runway-4) > 1e-9 {
		t.Errorf("expected runway 80000/20000 = 4, got %v (%v)", runway, ok)
	}
	if m.MaxMonthlyInflow != 70000 || m.MinMonthlyInflow != 40000 {
		t.Errorf("unexpected inflow extremes: %+v", m)
	}
}

func TestComputeMetrics_NoBurnIsUnbounded(t *testing.T) {
	m := ComputeMetrics([]Month{
		{Period: "2024-01", NetCashFlow: 1000, EndingCashBalance: 101000},
	})
	if !m.RunwayUnbounded || m.CashRunwayMonths.Valid {
		t.Errorf("expected unbounded, undefined runway; got %+v", m)
	}
	if m.Volatility.Valid {
		t.Error("expected undefined volatility for a single month")
	}
}

func TestComputeWorkingCapital(t *testing.T) {
	g := statements.NewGenerator(config.Default().Financial)
	wc := ComputeWorkingCapital([]statements.Statement{
		g.Build("2024-01", 1000, 450, 550, 1),
		g.Build("2024-02", 0, 0, 0, 0),
	})

	first := wc[0]
	if first.AccountsReceivable != 1000 || first.Inventory != 675 || first.AccountsPayable != 450 {
		t.Errorf("unexpected proxies: %+v", first)
	}
	if first.WorkingCapital != 1225 {
		t.Errorf("expected working capital 1225, got %.2f", first.WorkingCapital)
	}
	if first.ChangeInWC.Valid {
		t.Error("expected undefined change in WC for the first period")
	}
	ccc, ok := first.CCC.Get()
	if !ok || math.Abs(ccc-547.5) > 1e-9 {
		t.Errorf("expected CCC 547.5, got %v (%v)", ccc, ok)
	}

	second := wc[1]
	if second.DSO.Valid || second.DIO.Valid || second.CCC.Valid {
		t.Errorf("expected undefined days metrics for a zero period, got %+v", second)
	}
	if change, _ := second.ChangeInWC.Get(); change != -1225 {
		t.Errorf("expected change in WC -1225, got %.2f", change)
	}
}

func TestDetectIssues(t *testing.T) {
	var days []Day
	balance := 3.0
	for i := 0; i < 10; i++ {
		balance--
		days = append(days, Day{
			Date:        day("2024-01-01").AddDate(0, 0, i),
			Period:      "2024-01",
			NetCashFlow: -1,
			CashBalance: balance,
		})
	}

	res := DetectIssues(days, LowBalanceFloor)
	if res.NegativeBalanceDays != 7 {
		t.Errorf("expected 7 negative balance days, got %d", res.NegativeBalanceDays)
	}
	if len(res.Issues) != 1 {
		t.Errorf("expected 1 issue, got %v", res.Issues)
	}
	if res.LongestNegativeRun != 10 {
		t.Errorf("expected longest run 10, got %d", res.LongestNegativeRun)
	}
	// long negative run and low ending balance; constant flow is not volatile
	if len(res.Warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", res.Warnings)
	}
	if len(res.NegativeBalancePeriods) != 1 || res.NegativeBalancePeriods[0] != "2024-01" {
		t.Errorf("unexpected negative periods: %v", res.NegativeBalancePeriods)
	}
}

func TestDetectIssues_Healthy(t *testing.T) {
	txs, monthly := februarySales()
	res := DetectIssues(Daily(txs, monthly, 1e6), LowBalanceFloor)
	if len(res.Issues) != 0 || res.NegativeBalanceDays != 0 {
		t.Errorf("expected no issues, got %+v", res)
	}
}

func TestOptimize(t *testing.T) {
	g := statements.NewGenerator(config.Default().Financial)
	plan, ok := Optimize(ComputeWorkingCapital([]statements.Statement{g.Build("2024-01", 1000, 450, 550, 1)}))
	if !ok {
		t.Fatal("expected a plan")
	}
	if plan.OptimalWC != 150 || plan.Status != "Surplus" {
		t.Errorf("unexpected plan: optimal=%.2f status=%s", plan.OptimalWC, plan.Status)
	}
	wantRelease := 1000 - 1000*30.0/365
	if math.Abs(plan.Receivables.CashRelease-wantRelease) > 1e-9 {
		t.Errorf("expected receivables release %.4f, got %.4f", wantRelease, plan.Receivables.CashRelease)
	}
	if math.Abs(plan.Inventory.ExcessInventory-600) > 1e-9 {
		t.Errorf("expected excess inventory 600, got %.4f", plan.Inventory.ExcessInventory)
	}

	if _, ok := Optimize(nil); ok {
		t.Error("expected no plan for an empty series")
	}
}
