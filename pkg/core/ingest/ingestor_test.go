package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV_UTF8(t *testing.T) {
	data := []byte("\xef\xbb\xbfOrder Date,ProductKey,Quantity\n2016-01-01,214,2\n")
	tbl, err := ReadCSV("sales", data)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if tbl.Encoding != "utf-8" {
		t.Errorf("expected utf-8, got %s", tbl.Encoding)
	}
	if !tbl.Has(FieldDate, FieldProduct, FieldQuantity) {
		t.Errorf("expected all fields to resolve, columns=%v", tbl.Columns)
	}
	if tbl.Len() != 1 {
		t.Errorf("expected 1 row, got %d", tbl.Len())
	}
}

func TestReadCSV_FallsBackToLatin1(t *testing.T) {
	// 0xE9 is "é" in latin-1 and an invalid lone byte in utf-8.
	data := []byte("ProductKey,Product Name,Product Price,Product Cost\n1,Caf\xe9 Mug,$12.00,$4.00\n")
	tbl, err := ReadCSV("products", data)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if tbl.Encoding != "latin-1" {
		t.Errorf("expected latin-1 fallback, got %s", tbl.Encoding)
	}
	if got := tbl.Cell(0, 1); got != "Café Mug" {
		t.Errorf("expected decoded name 'Café Mug', got %q", got)
	}
}

func TestResolve_SchemaErrorNamesAllMissing(t *testing.T) {
	tbl := NewTable("sales", []string{"Order Date"}, nil)
	_, err := tbl.Resolve(FieldDate, FieldProduct, FieldQuantity)

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if diff := cmp.Diff([]string{"product", "quantity"}, schemaErr.Missing); diff != "" {
		t.Errorf("missing columns mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(err.Error(), "sales") {
		t.Errorf("expected table name in error, got %s", err)
	}
}

func TestLookup_Aliases(t *testing.T) {
	tbl := NewTable("tx", []string{"transaction_date", "Product_ID", "QTY", "Unit Price", "unit-cost"}, nil)
	for _, f := range []Field{FieldDate, FieldProduct, FieldQuantity, FieldPrice, FieldCost} {
		if tbl.Lookup(f) < 0 {
			t.Errorf("expected %s to resolve", f)
		}
	}
}

func TestReadJSON_Lenient(t *testing.T) {
	data := []byte(`[
		{"date": "2024-01-03", "product": "A", "quantity": 3, "unit_price": 10, "unit_cost": 4},
		{"date": "2024-01-04", "product": "B", "quantity": 1, "unit_price": 20, "unit_cost": 5},
	]`)
	tbl, err := ReadJSON("tx", data)
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	q := tbl.Lookup(FieldQuantity)
	if got := tbl.Cell(0, q); got != "3" {
		t.Errorf("expected quantity '3', got %q", got)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]interface{}{"Order Date", "ProductKey", "Quantity"})
	_ = f.SetSheetRow(sheet, "A2", &[]interface{}{"2016-01-01", "214", "2"})
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to build workbook: %v", err)
	}

	tbl, err := Load("sales.xlsx", buf)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tbl.Name != "sales" {
		t.Errorf("expected table name 'sales', got %q", tbl.Name)
	}
	if tbl.Len() != 1 || tbl.Cell(0, tbl.Lookup(FieldProduct)) != "214" {
		t.Errorf("unexpected rows: %v", tbl.Rows)
	}
}

func TestDetectFormat_Unsupported(t *testing.T) {
	if _, err := DetectFormat("data.parquet"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
