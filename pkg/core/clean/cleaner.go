// Package clean validates raw transaction rows, joins them to product pricing
// and derives per-transaction revenue, cost and period fields.
package clean

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/ingest"
)

// OutlierQuantile marks transactions whose revenue exceeds this quantile.
const OutlierQuantile = 0.99

// Transaction is one validated sale.
type Transaction struct {
	Date        time.Time `json:"date"`
	Period      string    `json:"period"` // YYYY-MM
	ProductKey  string    `json:"product_key"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	UnitCost    float64   `json:"unit_cost"`
	Revenue     float64   `json:"revenue"`
	COGS        float64   `json:"cogs"`
	GrossProfit float64   `json:"gross_profit"`
	Outlier     bool      `json:"is_outlier"`
}

// Product is a priced catalog entry.
type Product struct {
	Key   string  `json:"product_key"`
	Price float64 `json:"price"`
	Cost  float64 `json:"cost"`
}

// Reason classifies why a row was dropped.
type Reason string

const (
	ReasonMissingField     Reason = "missing_field"
	ReasonInvalidQuantity  Reason = "invalid_quantity"
	ReasonNonPositiveQty   Reason = "non_positive_quantity"
	ReasonInvalidDate      Reason = "invalid_date"
	ReasonUnmatchedProduct Reason = "unmatched_product"
	ReasonInvalidPrice     Reason = "invalid_price"
	ReasonInvalidCost      Reason = "invalid_cost"
)

// RowIssue records a dropped row. Row is the 1-based data row number.
type RowIssue struct {
	Table  string `json:"table"`
	Row    int    `json:"row"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// DateRange is the inclusive span of cleaned transaction dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Report summarizes a cleaning pass. Row-level problems are never fatal;
// they are counted here.
type Report struct {
	InitialRows     int            `json:"initial_rows"`
	FinalRows       int            `json:"final_rows"`
	RemovedRows     int            `json:"removed_rows"`
	RemovedByReason map[Reason]int `json:"removed_by_reason"`
	Issues          []RowIssue     `json:"issues"`
	ProductsTotal   int            `json:"products_total"`
	ProductsValid   int            `json:"products_valid"`
	ProductIssues   []RowIssue     `json:"product_issues,omitempty"`
	CatalogSkipped  bool           `json:"catalog_skipped"` // inline prices won; products unused
	OutliersFlagged int            `json:"outliers_flagged"`
	DateRange       DateRange      `json:"date_range"`
	TotalRevenue    float64        `json:"total_revenue"`
	AvgTransaction  float64        `json:"avg_transaction"`
}

func (r *Report) drop(table string, row int, reason Reason, detail string) {
	r.Issues = append(r.Issues, RowIssue{Table: table, Row: row, Reason: reason, Detail: detail})
	r.RemovedByReason[reason]++
}

// Clean validates sales rows and prices them. When the sales table carries
// its own unit price and cost columns the product table is optional;
// otherwise every sale is left-joined to products by key and unmatched rows
// are dropped. A missing required column returns *ingest.SchemaError.
func Clean(sales, products *ingest.Table) ([]Transaction, *Report, error) {
	if sales == nil {
		return nil, nil, &ingest.SchemaError{Table: "sales", Missing: []string{string(ingest.FieldDate), string(ingest.FieldProduct), string(ingest.FieldQuantity)}}
	}
	cols, err := sales.Resolve(ingest.FieldDate, ingest.FieldProduct, ingest.FieldQuantity)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{
		InitialRows:     sales.Len(),
		RemovedByReason: make(map[Reason]int),
	}

	inline := sales.Has(ingest.FieldPrice, ingest.FieldCost)
	var catalog map[string]Product
	if inline {
		cols[ingest.FieldPrice] = sales.Lookup(ingest.FieldPrice)
		cols[ingest.FieldCost] = sales.Lookup(ingest.FieldCost)
		if products != nil {
			report.ProductsTotal = products.Len()
			report.CatalogSkipped = true
		}
	} else {
		if products == nil {
			return nil, nil, &ingest.SchemaError{Table: "products", Missing: []string{string(ingest.FieldProduct), string(ingest.FieldPrice), string(ingest.FieldCost)}}
		}
		var issues []RowIssue
		catalog, issues, err = ParseProducts(products)
		if err != nil {
			return nil, nil, err
		}
		report.ProductsTotal = products.Len()
		report.ProductsValid = len(catalog)
		report.ProductIssues = issues
	}

	txs := make([]Transaction, 0, sales.Len())
	for i := 0; i < sales.Len(); i++ {
		rowNum := i + 1
		rawDate := sales.Cell(i, cols[ingest.FieldDate])
		key := sales.Cell(i, cols[ingest.FieldProduct])
		rawQty := sales.Cell(i, cols[ingest.FieldQuantity])

		if rawDate == "" || key == "" || rawQty == "" {
			report.drop(sales.Name, rowNum, ReasonMissingField, "date, product or quantity is empty")
			continue
		}
		qty, ok := parseNumber(rawQty)
		if !ok {
			report.drop(sales.Name, rowNum, ReasonInvalidQuantity, fmt.Sprintf("quantity %q is not numeric", rawQty))
			continue
		}
		if qty <= 0 {
			report.drop(sales.Name, rowNum, ReasonNonPositiveQty, fmt.Sprintf("quantity %v", qty))
			continue
		}
		date, ok := ParseDate(rawDate)
		if !ok {
			report.drop(sales.Name, rowNum, ReasonInvalidDate, fmt.Sprintf("date %q", rawDate))
			continue
		}

		var price, cost float64
		if inline {
			rawPrice := sales.Cell(i, cols[ingest.FieldPrice])
			rawCost := sales.Cell(i, cols[ingest.FieldCost])
			if price, ok = ParseCurrency(rawPrice); !ok || price <= 0 {
				report.drop(sales.Name, rowNum, ReasonInvalidPrice, fmt.Sprintf("price %q", rawPrice))
				continue
			}
			if cost, ok = ParseCurrency(rawCost); !ok || cost <= 0 {
				report.drop(sales.Name, rowNum, ReasonInvalidCost, fmt.Sprintf("cost %q", rawCost))
				continue
			}
		} else {
			p, found := catalog[key]
			if !found {
				report.drop(sales.Name, rowNum, ReasonUnmatchedProduct, fmt.Sprintf("product %q has no valid pricing", key))
				continue
			}
			price, cost = p.Price, p.Cost
		}

		revenue := qty * price
		cogs := qty * cost
		txs = append(txs, Transaction{
			Date:        date,
			Period:      date.Format("2006-01"),
			ProductKey:  key,
			Quantity:    qty,
			UnitPrice:   price,
			UnitCost:    cost,
			Revenue:     revenue,
			COGS:        cogs,
			GrossProfit: revenue - cogs,
		})
	}

	sort.SliceStable(txs, func(a, b int) bool { return txs[a].Date.Before(txs[b].Date) })
	flagOutliers(txs, report)

	report.FinalRows = len(txs)
	report.RemovedRows = report.InitialRows - report.FinalRows
	if len(txs) > 0 {
		report.DateRange = DateRange{
			Start: txs[0].Date.Format("2006-01-02"),
			End:   txs[len(txs)-1].Date.Format("2006-01-02"),
		}
		for _, tx := range txs {
			report.TotalRevenue += tx.Revenue
		}
		report.AvgTransaction = report.TotalRevenue / float64(len(txs))
	}
	return txs, report, nil
}

// ParseProducts builds the price catalog. Products with a missing, unparsable
// or non-positive price or cost are excluded and reported.
func ParseProducts(t *ingest.Table) (map[string]Product, []RowIssue, error) {
	cols, err := t.Resolve(ingest.FieldProduct, ingest.FieldPrice, ingest.FieldCost)
	if err != nil {
		return nil, nil, err
	}

	catalog := make(map[string]Product, t.Len())
	var issues []RowIssue
	for i := 0; i < t.Len(); i++ {
		key := t.Cell(i, cols[ingest.FieldProduct])
		rawPrice := t.Cell(i, cols[ingest.FieldPrice])
		rawCost := t.Cell(i, cols[ingest.FieldCost])
		if key == "" {
			issues = append(issues, RowIssue{Table: t.Name, Row: i + 1, Reason: ReasonMissingField, Detail: "product key is empty"})
			continue
		}
		price, ok := ParseCurrency(rawPrice)
		if !ok || price <= 0 {
			issues = append(issues, RowIssue{Table: t.Name, Row: i + 1, Reason: ReasonInvalidPrice, Detail: fmt.Sprintf("price %q", rawPrice)})
			continue
		}
		cost, ok := ParseCurrency(rawCost)
		if !ok || cost <= 0 {
			issues = append(issues, RowIssue{Table: t.Name, Row: i + 1, Reason: ReasonInvalidCost, Detail: fmt.Sprintf("cost %q", rawCost)})
			continue
		}
		catalog[key] = Product{Key: key, Price: price, Cost: cost}
	}
	return catalog, issues, nil
}

func flagOutliers(txs []Transaction, report *Report) {
	revenues := make([]float64, len(txs))
	for i, tx := range txs {
		revenues[i] = tx.Revenue
	}
	threshold, ok := calc.Quantile(revenues, OutlierQuantile).Get()
	if !ok {
		return
	}
	for i := range txs {
		if txs[i].Revenue > threshold {
			txs[i].Outlier = true
			report.OutliersFlagged++
		}
	}
}

// =============================================================================
// FIELD PARSERS
// =============================================================================

var currencyStripper = strings.NewReplacer("$", "", "€", "", "£", "", "₹", "", ",", "", " ", "", "\u00a0", "")

// ParseCurrency parses values such as "$1,234.50" or "(12.00)". Parentheses
// denote a negative amount.
func ParseCurrency(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = currencyStripper.Replace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

// finite rejects the NaN and Inf spellings strconv accepts.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
}

// ParseDate accepts ISO and US month-first layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
