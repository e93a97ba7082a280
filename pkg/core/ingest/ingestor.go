// Package ingest reads raw transaction and product tables from CSV, Excel and
// JSON sources into untyped string tables and resolves their columns.
package ingest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Field is a logical column the cleaning stage understands.
type Field string

const (
	FieldDate     Field = "date"
	FieldProduct  Field = "product"
	FieldQuantity Field = "quantity"
	FieldPrice    Field = "unit_price"
	FieldCost     Field = "unit_cost"
)

// columnAliases lists accepted header spellings, already normalized.
var columnAliases = map[Field][]string{
	FieldDate:     {"orderdate", "date", "transactiondate"},
	FieldProduct:  {"productkey", "product", "productid", "category"},
	FieldQuantity: {"quantity", "qty", "units"},
	FieldPrice:    {"productprice", "unitpriceusd", "unitprice", "price"},
	FieldCost:     {"productcost", "unitcostusd", "unitcost", "cost"},
}

// Table is a raw, untyped table as read from a source.
type Table struct {
	Name     string     `json:"name"`
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
	Encoding string     `json:"encoding,omitempty"`
}

// NewTable builds a table from literal columns and rows.
func NewTable(name string, columns []string, rows [][]string) *Table {
	return &Table{Name: name, Columns: columns, Rows: rows}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Cell returns the trimmed value at (row, col), or "" when out of range.
func (t *Table) Cell(row, col int) string {
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// Lookup finds the column index for a logical field, or -1.
func (t *Table) Lookup(f Field) int {
	if t == nil {
		return -1
	}
	for _, alias := range columnAliases[f] {
		for i, c := range t.Columns {
			if normalizeHeader(c) == alias {
				return i
			}
		}
	}
	return -1
}

// Has reports whether every field resolves to a column.
func (t *Table) Has(fields ...Field) bool {
	for _, f := range fields {
		if t.Lookup(f) < 0 {
			return false
		}
	}
	return true
}

// Resolve maps every requested field to a column index. Any field without a
// matching column produces a SchemaError listing all of them.
func (t *Table) Resolve(fields ...Field) (map[Field]int, error) {
	idx := make(map[Field]int, len(fields))
	var missing []string
	for _, f := range fields {
		i := t.Lookup(f)
		if i < 0 {
			missing = append(missing, string(f))
			continue
		}
		idx[f] = i
	}
	if len(missing) > 0 {
		name := "<nil>"
		if t != nil {
			name = t.Name
		}
		return nil, &SchemaError{Table: name, Missing: missing}
	}
	return idx, nil
}

// SchemaError reports structurally missing columns. It aborts a run.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	missing := append([]string(nil), e.Missing...)
	sort.Strings(missing)
	return fmt.Sprintf("schema error: table %q is missing required column(s): %s", e.Table, strings.Join(missing, ", "))
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(strings.TrimSpace(s))
	r := strings.NewReplacer(" ", "", "_", "", "-", "", ".", "")
	return r.Replace(s)
}

// Format is a supported source file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// DetectFormat picks a format from a file name.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".json", ".hjson":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
}
