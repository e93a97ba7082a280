package clean

import (
	"errors"
	"math"
	"testing"

	"sme_health/pkg/core/ingest"
)

func salesTable(rows ...[]string) *ingest.Table {
	return ingest.NewTable("sales", []string{"Order Date", "ProductKey", "Quantity"}, rows)
}

func productTable() *ingest.Table {
	return ingest.NewTable("products", []string{"ProductKey", "Product Name", "Unit Price USD", "Unit Cost USD"}, [][]string{
		{"1", "Speaker", "$1,200.00", "$540.00"},
		{"2", "Cable", "$10.00", "$4.00"},
		{"3", "Broken", "$0.00", "$4.00"},
		{"4", "Unpriced", "", "$4.00"},
	})
}

func TestClean_NegativeQuantityDroppedAndCounted(t *testing.T) {
	sales := salesTable(
		[]string{"2016-01-04", "1", "2"},
		[]string{"2016-01-05", "2", "-5"},
	)

	txs, report, err := Clean(sales, productTable())
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 clean transaction, got %d", len(txs))
	}
	if report.RemovedRows != 1 {
		t.Errorf("expected 1 removed row, got %d", report.RemovedRows)
	}
	if report.RemovedByReason[ReasonNonPositiveQty] != 1 {
		t.Errorf("expected non-positive quantity count 1, got %v", report.RemovedByReason)
	}
	if len(report.Issues) != 1 || report.Issues[0].Row != 2 {
		t.Errorf("expected issue on row 2, got %+v", report.Issues)
	}
}

func TestClean_DropRules(t *testing.T) {
	sales := salesTable(
		[]string{"2016-01-04", "1", "2"},        // ok
		[]string{"", "1", "2"},                  // missing date
		[]string{"2016-01-04", "2", "abc"},      // non-numeric quantity
		[]string{"2016-01-04", "2", "0"},        // zero quantity
		[]string{"not a date", "2", "1"},        // bad date
		[]string{"2016-01-04", "99", "1"},       // unknown product
		[]string{"2016-01-04", "3", "1"},        // product with zero price
		[]string{"1/15/2016", "2", "3"},         // ok, US layout
		[]string{"2016-02-01", "4", "1"},        // product with blank price
		[]string{"2016-02-01", "1", "NaN"},      // NaN quantity
		[]string{"2016-02-01", "1", "Inf"},      // infinite quantity
	)

	txs, report, err := Clean(sales, productTable())
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 clean transactions, got %d", len(txs))
	}

	want := map[Reason]int{
		ReasonMissingField:     1,
		ReasonInvalidQuantity:  3,
		ReasonNonPositiveQty:   1,
		ReasonInvalidDate:      1,
		ReasonUnmatchedProduct: 3,
	}
	for reason, n := range want {
		if report.RemovedByReason[reason] != n {
			t.Errorf("reason %s: expected %d, got %d", reason, n, report.RemovedByReason[reason])
		}
	}
	if report.InitialRows != 11 || report.FinalRows != 2 || report.RemovedRows != 9 {
		t.Errorf("unexpected row counts: %+v", report)
	}
	if report.ProductsTotal != 4 || report.ProductsValid != 2 {
		t.Errorf("expected 2 of 4 valid products, got %d of %d", report.ProductsValid, report.ProductsTotal)
	}
}

func TestClean_DerivedFields(t *testing.T) {
	sales := salesTable([]string{"2016-03-09", "1", "2"})
	txs, report, err := Clean(sales, productTable())
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	tx := txs[0]
	if tx.Revenue != 2400 || tx.COGS != 1080 || tx.GrossProfit != 1320 {
		t.Errorf("unexpected derived values: %+v", tx)
	}
	if tx.Period != "2016-03" {
		t.Errorf("expected period 2016-03, got %s", tx.Period)
	}
	if report.DateRange.Start != "2016-03-09" || report.TotalRevenue != 2400 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestClean_InlinePricingSkipsJoin(t *testing.T) {
	sales := ingest.NewTable("tx", []string{"date", "product", "qty", "unit_price", "unit_cost"}, [][]string{
		{"2024-05-01", "A", "3", "10", "4"},
		{"2024-05-02", "B", "1", "bad", "4"},
		{"2024-05-03", "C", "2", "NaN", "4"},
		{"2024-05-04", "D", "2", "10", "Infinity"},
	})
	txs, report, err := Clean(sales, nil)
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if len(txs) != 1 || txs[0].Revenue != 30 {
		t.Errorf("unexpected transactions: %+v", txs)
	}
	if report.RemovedByReason[ReasonInvalidPrice] != 2 || report.RemovedByReason[ReasonInvalidCost] != 1 {
		t.Errorf("expected 2 invalid prices and 1 invalid cost, got %v", report.RemovedByReason)
	}
	if math.IsNaN(report.TotalRevenue) || report.TotalRevenue != 30 {
		t.Errorf("expected finite total revenue 30, got %v", report.TotalRevenue)
	}
	if report.CatalogSkipped {
		t.Error("no catalog was passed, none can be skipped")
	}
}

func TestClean_InlinePricingRecordsUnusedCatalog(t *testing.T) {
	sales := ingest.NewTable("tx", []string{"date", "product", "qty", "unit_price", "unit_cost"}, [][]string{
		{"2024-05-01", "1", "3", "10", "4"},
	})
	txs, report, err := Clean(sales, productTable())
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if txs[0].UnitPrice != 10 {
		t.Errorf("inline price must win over the catalog, got %v", txs[0].UnitPrice)
	}
	if !report.CatalogSkipped || report.ProductsTotal != 4 || report.ProductsValid != 0 {
		t.Errorf("expected the unused catalog of 4 products to be recorded, got skipped=%v total=%d valid=%d",
			report.CatalogSkipped, report.ProductsTotal, report.ProductsValid)
	}
}

func TestClean_SchemaErrors(t *testing.T) {
	var schemaErr *ingest.SchemaError

	sales := ingest.NewTable("sales", []string{"Order Date", "Quantity"}, nil)
	if _, _, err := Clean(sales, productTable()); !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError for missing product column, got %v", err)
	}

	if _, _, err := Clean(salesTable(), nil); !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError for missing product table, got %v", err)
	}
	if schemaErr.Table != "products" {
		t.Errorf("expected products table in error, got %s", schemaErr.Table)
	}
}

func TestClean_FlagsOutliers(t *testing.T) {
	var rows [][]string
	for i := 0; i < 200; i++ {
		rows = append(rows, []string{"2016-01-04", "2", "1"})
	}
	rows = append(rows, []string{"2016-01-05", "1", "10"})

	txs, report, err := Clean(salesTable(rows...), productTable())
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if report.OutliersFlagged != 1 {
		t.Errorf("expected 1 outlier, got %d", report.OutliersFlagged)
	}
	if !txs[len(txs)-1].Outlier {
		t.Error("expected the large order to be flagged")
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$1,234.50", 1234.5, true},
		{" 12 ", 12, true},
		{"(15.00)", -15, true},
		{"€99", 99, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"NaN", 0, false},
		{"-Inf", 0, false},
		{"$Infinity", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCurrency(tt.in)
		if ok != tt.ok || math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseCurrency(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
