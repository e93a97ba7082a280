// Package config loads the financial assumptions used by the pipeline and the
// process environment used by the binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	hjson "github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v2"
)

// FinancialConfig holds the synthetic expense table and the flat rates applied
// to revenue when building statements.
type FinancialConfig struct {
	ExpenseRatios    map[string]float64 `yaml:"expense_ratios" json:"expense_ratios"`
	TaxRate          float64            `yaml:"tax_rate" json:"tax_rate"`
	DepreciationRate float64            `yaml:"depreciation_rate" json:"depreciation_rate"`
	InterestRate     float64            `yaml:"interest_rate" json:"interest_rate"`
}

// ForecastConfig controls the projection horizon.
type ForecastConfig struct {
	Periods int `yaml:"periods" json:"periods"`
}

// Benchmark is one industry percentile band for a metric.
type Benchmark struct {
	P25           float64 `yaml:"p25" json:"p25"`
	Median        float64 `yaml:"median" json:"median"`
	P75           float64 `yaml:"p75" json:"p75"`
	LowerIsBetter bool    `yaml:"lower_is_better" json:"lower_is_better"`
}

// Config is the full set of pipeline assumptions.
type Config struct {
	Industry   string                          `yaml:"industry" json:"industry"`
	Financial  FinancialConfig                 `yaml:"financial" json:"financial"`
	Forecast   ForecastConfig                  `yaml:"forecast" json:"forecast"`
	Benchmarks map[string]map[string]Benchmark `yaml:"benchmarks" json:"benchmarks"`
}

// fileConfig mirrors Config with optional fields so that a partial file only
// overrides what it names.
type fileConfig struct {
	Industry  *string `yaml:"industry" json:"industry"`
	Financial *struct {
		ExpenseRatios    map[string]float64 `yaml:"expense_ratios" json:"expense_ratios"`
		TaxRate          *float64           `yaml:"tax_rate" json:"tax_rate"`
		DepreciationRate *float64           `yaml:"depreciation_rate" json:"depreciation_rate"`
		InterestRate     *float64           `yaml:"interest_rate" json:"interest_rate"`
	} `yaml:"financial" json:"financial"`
	Forecast *struct {
		Periods *int `yaml:"periods" json:"periods"`
	} `yaml:"forecast" json:"forecast"`
	Benchmarks map[string]map[string]Benchmark `yaml:"benchmarks" json:"benchmarks"`
}

// Default returns the built-in assumptions.
func Default() Config {
	return Config{
		Industry: "retail_electronics",
		Financial: FinancialConfig{
			ExpenseRatios: map[string]float64{
				"salaries":  0.12,
				"rent":      0.06,
				"utilities": 0.02,
				"marketing": 0.04,
				"logistics": 0.05,
				"insurance": 0.01,
				"other":     0.05,
			},
			TaxRate:          0.25,
			DepreciationRate: 0.02,
			InterestRate:     0.03,
		},
		Forecast: ForecastConfig{Periods: 6},
		Benchmarks: map[string]map[string]Benchmark{
			"retail_electronics": {
				"gross_margin":       {P25: 35, Median: 45, P75: 55},
				"net_margin":         {P25: 5, Median: 10, P75: 15},
				"current_ratio":      {P25: 1.2, Median: 1.8, P75: 2.5},
				"inventory_turnover": {P25: 4, Median: 6, P75: 8},
				"debt_to_equity":     {P25: 0.5, Median: 1.0, P75: 1.5, LowerIsBetter: true},
			},
		},
	}
}

// Load reads a YAML (.yaml/.yml) or Hjson (.hjson/.json) file over the
// defaults. A missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hjson", ".json":
		if err := hjson.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.merge(fc)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) merge(fc fileConfig) {
	if fc.Industry != nil && *fc.Industry != "" {
		c.Industry = *fc.Industry
	}
	if f := fc.Financial; f != nil {
		if len(f.ExpenseRatios) > 0 {
			c.Financial.ExpenseRatios = f.ExpenseRatios
		}
		if f.TaxRate != nil {
			c.Financial.TaxRate = *f.TaxRate
		}
		if f.DepreciationRate != nil {
			c.Financial.DepreciationRate = *f.DepreciationRate
		}
		if f.InterestRate != nil {
			c.Financial.InterestRate = *f.InterestRate
		}
	}
	if fc.Forecast != nil && fc.Forecast.Periods != nil {
		c.Forecast.Periods = *fc.Forecast.Periods
	}
	for industry, metrics := range fc.Benchmarks {
		c.Benchmarks[industry] = metrics
	}
}

// Validate checks that every rate is a fraction in [0, 1).
func (c Config) Validate() error {
	check := func(name string, v float64) error {
		if v < 0 || v >= 1 {
			return fmt.Errorf("%s must be in [0, 1), got %v", name, v)
		}
		return nil
	}
	for _, name := range c.Financial.ExpenseCategories() {
		if err := check("expense_ratios."+name, c.Financial.ExpenseRatios[name]); err != nil {
			return err
		}
	}
	if err := check("tax_rate", c.Financial.TaxRate); err != nil {
		return err
	}
	if err := check("depreciation_rate", c.Financial.DepreciationRate); err != nil {
		return err
	}
	if err := check("interest_rate", c.Financial.InterestRate); err != nil {
		return err
	}
	if c.Forecast.Periods <= 0 {
		return fmt.Errorf("forecast.periods must be positive, got %d", c.Forecast.Periods)
	}
	return nil
}

// ExpenseCategories returns the expense category names in a stable order.
func (f FinancialConfig) ExpenseCategories() []string {
	names := make([]string, 0, len(f.ExpenseRatios))
	for name := range f.ExpenseRatios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
