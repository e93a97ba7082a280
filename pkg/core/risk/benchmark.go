package risk

import (
	"fmt"
	"sort"

	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/config"
	"sme_health/pkg/core/ratios"
)

// Performance bands relative to the industry distribution.
const (
	BelowAverage = "Below Average"
	Average      = "Average"
	AboveAverage = "Above Average"
	Excellent    = "Excellent"
	NoData       = "No Data"
)

// Comparison is one metric against its industry band.
type Comparison struct {
	Metric         string     `json:"metric"`
	Actual         calc.Value `json:"actual"`
	IndustryMedian float64    `json:"industry_median"`
	Performance    string     `json:"performance"`
}

// metricValue pulls the benchmarked metric from a bundle.
func metricValue(b ratios.Bundle, metric string) (calc.Value, bool) {
	switch metric {
	case "gross_margin":
		return b.Profitability.GrossMargin, true
	case "net_margin":
		return b.Profitability.NetMargin, true
	case "operating_margin":
		return b.Profitability.OperatingMargin, true
	case "current_ratio":
		return b.Liquidity.CurrentRatio, true
	case "quick_ratio":
		return b.Liquidity.QuickRatio, true
	case "inventory_turnover":
		return b.Efficiency.InventoryTurnover, true
	case "asset_turnover":
		return b.Efficiency.AssetTurnover, true
	case "debt_to_equity":
		return b.Leverage.DebtToEquity, true
	case "interest_coverage":
		return b.Leverage.InterestCoverage, true
	}
	return calc.Undefined, false
}

// Benchmarker compares a bundle against one industry's bands.
type Benchmarker struct {
	Industry string
	bands    map[string]config.Benchmark
}

// NewBenchmarker looks up the industry in the configured tables.
func NewBenchmarker(cfg config.Config) (*Benchmarker, error) {
	bands, ok := cfg.Benchmarks[cfg.Industry]
	if !ok {
		return nil, fmt.Errorf("no benchmarks configured for industry %q", cfg.Industry)
	}
	return &Benchmarker{Industry: cfg.Industry, bands: bands}, nil
}

// Compare classifies every benchmarked metric, sorted by metric name.
// Metrics the ratio engine does not produce are skipped.
func (bm *Benchmarker) Compare(b ratios.Bundle) []Comparison {
	names := make([]string, 0, len(bm.bands))
	for name := range bm.bands {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Comparison, 0, len(names))
	for _, name := range names {
		actual, ok := metricValue(b, name)
		if !ok {
			continue
		}
		band := bm.bands[name]
		out = append(out, Comparison{
			Metric:         name,
			Actual:         actual,
			IndustryMedian: band.Median,
			Performance:    Classify(actual, band),
		})
	}
	return out
}

// Classify places a value in the percentile band. For lower-is-better
// metrics the bands are mirrored.
func Classify(actual calc.Value, band config.Benchmark) string {
	v, ok := actual.Get()
	if !ok {
		return NoData
	}
	if band.LowerIsBetter {
		switch {
		case v > band.P75:
			return BelowAverage
		case v > band.Median:
			return Average
		case v > band.P25:
			return AboveAverage
		}
		return Excellent
	}
	switch {
	case v < band.P25:
		return BelowAverage
	case v < band.Median:
		return Average
	case v < band.P75:
		return AboveAverage
	}
	return Excellent
}
