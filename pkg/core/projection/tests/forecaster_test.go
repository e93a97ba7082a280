package projection_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sme_health/pkg/core/cashflow"
	"sme_health/pkg/core/projection"
)

func periods(start string, n int) []string {
	rest, err := projection.NextPeriods(start, n-1)
	if err != nil {
		panic(err)
	}
	return append([]string{start}, rest...)
}

func TestForecaster_InsufficientHistory(t *testing.T) {
	f := projection.NewForecaster(nil)
	entries := map[string]func([]string, []float64, int) (*projection.Table, error){
		"arima":    f.ARIMA,
		"es":       f.ExpSmoothing,
		"ensemble": f.Ensemble,
	}
	for name, run := range entries {
		_, err := run([]string{"2024-01"}, []float64{100}, 6)
		var histErr *projection.InsufficientHistoryError
		if !errors.As(err, &histErr) {
			t.Errorf("%s: expected InsufficientHistoryError, got %v", name, err)
			continue
		}
		if histErr.Points != 1 || histErr.Required != 2 {
			t.Errorf("%s: unexpected error detail %+v", name, histErr)
		}
	}
}

func TestForecaster_TwoIdenticalValuesYieldFullHorizon(t *testing.T) {
	f := projection.NewForecaster(nil)
	table, err := f.Ensemble([]string{"2024-01", "2024-02"}, []float64{500, 500}, 6)
	if err != nil {
		t.Fatalf("Ensemble failed: %v", err)
	}
	if len(table.Points) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(table.Points))
	}
	for _, p := range table.Points {
		if math.IsNaN(p.Value) || !p.ARIMA.Valid || !p.ExpSmoothing.Valid {
			t.Errorf("%s: expected a fully populated row, got %+v", p.Period, p)
		}
	}
	if table.Points[0].Period != "2024-03" || table.Points[5].Period != "2024-08" {
		t.Errorf("unexpected labels: %s..%s", table.Points[0].Period, table.Points[5].Period)
	}
	// ARIMA chain: ARIMA and smoothing both decline; smoothing chain: smoothing declines.
	if len(table.FallbackReasons) != 3 {
		t.Errorf("expected 3 fallback reasons, got %v", table.FallbackReasons)
	}
}

func TestForecaster_ARIMAChainFallsBack(t *testing.T) {
	f := projection.NewForecaster(nil)
	table, err := f.ARIMA(periods("2024-01", 5), []float64{10, 12, 14, 16, 18}, 4)
	if err != nil {
		t.Fatalf("ARIMA chain failed: %v", err)
	}
	if table.Method != projection.MethodExpSmoothing {
		t.Errorf("expected fallback to smoothing on 5 points, got %s", table.Method)
	}
	for _, p := range table.Points {
		if p.Method != table.Method || p.ARIMA.Valid {
			t.Errorf("unexpected row %+v", p)
		}
	}
}

func TestForecaster_EnsembleContainsConstituents(t *testing.T) {
	var values []float64
	for i := 0; i < 30; i++ {
		values = append(values, 800000+25000*float64(i)+40000*math.Sin(float64(i)/2))
	}
	f := projection.NewForecaster(nil)
	table, err := f.Ensemble(periods("2022-01", len(values)), values, 6)
	if err != nil {
		t.Fatalf("Ensemble failed: %v", err)
	}
	for _, p := range table.Points {
		a, e := p.ARIMA.V, p.ExpSmoothing.V
		if p.Lower > a || p.Lower > e || p.Upper < a || p.Upper < e {
			t.Errorf("%s: band [%.0f, %.0f] does not contain %.0f and %.0f", p.Period, p.Lower, p.Upper, a, e)
		}
		if math.Abs(p.Value-(a+e)/2) > 1e-6 {
			t.Errorf("%s: expected the mean of constituents", p.Period)
		}
		if p.Method != projection.MethodEnsemble {
			t.Errorf("%s: expected Ensemble method, got %s", p.Period, p.Method)
		}
	}
}

func TestForecaster_RejectsBadInput(t *testing.T) {
	f := projection.NewForecaster(nil)
	if _, err := f.ARIMA([]string{"2024-01"}, []float64{1, 2}, 3); err == nil {
		t.Error("expected error for mismatched periods and values")
	}
	if _, err := f.ARIMA([]string{"2024-01", "2024-02"}, []float64{1, 2}, 0); err == nil {
		t.Error("expected error for zero horizon")
	}
	if _, err := f.ARIMA([]string{"bad", "worse"}, []float64{1, 2}, 1); err == nil {
		t.Error("expected error for malformed period")
	}
}

func TestNextPeriods_CrossesYear(t *testing.T) {
	got, err := projection.NextPeriods("2024-11", 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"2024-12", "2025-01", "2025-02"}, got); diff != "" {
		t.Errorf("NextPeriods mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate(t *testing.T) {
	actual := map[string]float64{"2024-01": 100, "2024-02": 200, "2024-03": 0}
	predicted := map[string]float64{"2024-01": 110, "2024-02": 180, "2024-03": 10, "2024-04": 5}

	acc := projection.Evaluate(actual, predicted)
	if acc.Overlap != 3 {
		t.Fatalf("expected overlap 3, got %d", acc.Overlap)
	}
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"MAE", acc.MAE.V, 40.0 / 3},
		{"RMSE", acc.RMSE.V, math.Sqrt(200)},
		{"MAPE", acc.MAPE.V, 10},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s: expected %.6f, got %.6f", c.name, c.want, c.got)
		}
	}

	empty := projection.Evaluate(actual, map[string]float64{"2030-01": 1})
	if empty.Overlap != 0 || empty.MAE.Valid || empty.MAPE.Valid {
		t.Errorf("expected empty metrics, got %+v", empty)
	}
}

func TestGrowth(t *testing.T) {
	table := &projection.Table{Points: []projection.Point{{Value: 110}, {Value: 110}}}
	g, ok := projection.Growth([]float64{50, 100, 100, 100, 100, 100, 100}, table).Get()
	if !ok || math.Abs(g-10) > 1e-9 {
		t.Errorf("expected 10%% growth over the last six months, got %v (%v)", g, ok)
	}
}

func TestCashFlowForecast(t *testing.T) {
	months := []cashflow.Month{
		{Period: "2024-01", CashInflow: 100, TotalOutflow: 50, EndingCashBalance: 900},
		{Period: "2024-02", CashInflow: 200, TotalOutflow: 50, EndingCashBalance: 950},
		{Period: "2024-03", CashInflow: 300, TotalOutflow: 50, EndingCashBalance: 1000},
	}
	got, err := projection.CashFlow(months, 2)
	if err != nil {
		t.Fatalf("CashFlow failed: %v", err)
	}
	want := []projection.CashPoint{
		{Period: "2024-04", Inflow: 300, Outflow: 50, NetCashFlow: 250, EndingBalance: 1250},
		{Period: "2024-05", Inflow: 400, Outflow: 50, NetCashFlow: 350, EndingBalance: 1600},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cash forecast mismatch (-want +got):\n%s", diff)
	}

	if _, err := projection.CashFlow(months[:1], 2); err == nil {
		t.Error("expected error for a single month")
	}
}

func ExampleNextPeriods() {
	labels, _ := projection.NextPeriods("2016-12", 2)
	fmt.Println(labels)
	// Output: [2017-01 2017-02]
}
