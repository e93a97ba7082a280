package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Financial.TaxRate != 0.25 {
		t.Errorf("expected default tax rate 0.25, got %v", cfg.Financial.TaxRate)
	}
	if len(cfg.Financial.ExpenseRatios) != 7 {
		t.Errorf("expected 7 default expense categories, got %d", len(cfg.Financial.ExpenseRatios))
	}
	total := 0.0
	for _, r := range cfg.Financial.ExpenseRatios {
		total += r
	}
	if math.Abs(total-0.35) > 1e-9 {
		t.Errorf("expected default expense ratios to sum to 0.35, got %v", total)
	}
}

func TestLoad_YAMLOverridesOnlyNamedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
financial:
  tax_rate: 0.30
  expense_ratios:
    salaries: 0.10
    rent: 0.05
forecast:
  periods: 12
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Financial.TaxRate != 0.30 {
		t.Errorf("expected tax rate 0.30, got %v", cfg.Financial.TaxRate)
	}
	if cfg.Financial.InterestRate != 0.03 {
		t.Errorf("expected default interest rate to survive, got %v", cfg.Financial.InterestRate)
	}
	if len(cfg.Financial.ExpenseRatios) != 2 {
		t.Errorf("expected expense table to be replaced, got %v", cfg.Financial.ExpenseRatios)
	}
	if cfg.Forecast.Periods != 12 {
		t.Errorf("expected 12 forecast periods, got %d", cfg.Forecast.Periods)
	}
}

func TestLoad_HJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.hjson")
	body := `{
  # lenient config
  industry: retail_electronics
  financial: {
    interest_rate: 0.05
  }
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Financial.InterestRate != 0.05 {
		t.Errorf("expected interest rate 0.05, got %v", cfg.Financial.InterestRate)
	}
}

func TestLoad_RejectsInvalidRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("financial:\n  tax_rate: 1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for tax_rate 1.5")
	}
}

func TestExpenseCategoriesSorted(t *testing.T) {
	names := Default().Financial.ExpenseCategories()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("categories not sorted: %v", names)
		}
	}
}
