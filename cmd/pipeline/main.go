package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"sme_health/pkg/core/advisor"
	"sme_health/pkg/core/analysis"
	"sme_health/pkg/core/config"
	"sme_health/pkg/core/credit"
	"sme_health/pkg/core/logging"
	"sme_health/pkg/core/pipeline"
	"sme_health/pkg/core/statements"
)

func main() {
	env, _ := config.LoadEnv()

	salesPath := flag.String("sales", "", "sales file (csv, xlsx or json)")
	productsPath := flag.String("products", "", "optional product catalogue")
	configPath := flag.String("config", env.ConfigPath, "config file (yaml or hjson)")
	focus := flag.String("focus", advisor.FocusGeneral, "recommendation focus area")
	htmlOut := flag.String("html", "", "write the credit report as HTML to this path")
	strict := flag.Bool("strict", false, "fail on statement integrity errors")
	flag.Parse()

	logger := logging.New(env.LogLevel, "text")
	if *salesPath == "" {
		fmt.Fprintln(os.Stderr, "usage: pipeline -sales <file> [-products <file>] [-focus area]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	engine, err := analysis.NewEngine(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build analysis engine: %v", err)
	}

	o := pipeline.NewOrchestrator(pipeline.FileLoader{}, engine, logger)
	o.SetValidationConfig(pipeline.ValidationConfig{EnableStrictValidation: *strict})
	result, err := o.Run(context.Background(), pipeline.Source{SalesPath: *salesPath, ProductsPath: *productsPath})
	if err != nil {
		logger.Fatalf("Pipeline failed: %v", err)
	}

	recs, err := advisor.New(nil).Recommend(result.Inputs(), *focus)
	if err != nil {
		logger.Fatalf("Recommendations failed: %v", err)
	}

	printSummary(result)
	fmt.Println(credit.Report(result.Credit))
	fmt.Println(advisor.Markdown(*focus, result.Context, recs))

	if *htmlOut != "" {
		html, err := credit.ReportHTML(result.Credit)
		if err != nil {
			logger.Fatalf("Failed to render report: %v", err)
		}
		if err := os.WriteFile(*htmlOut, []byte(html), 0o644); err != nil {
			logger.Fatalf("Failed to write %s: %v", *htmlOut, err)
		}
		logger.WithField("path", *htmlOut).Info("HTML report written")
	}
}

func printSummary(a *analysis.EntityAnalysis) {
	s := a.Summary
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("SME FINANCIAL HEALTH SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Periods:          %d (%s to %s)\n", s.Periods, firstPeriod(a.Monthly), s.LatestPeriod)
	fmt.Printf("Total Revenue:    %s\n", advisor.Money(s.TotalRevenue))
	fmt.Printf("Total Net Profit: %s\n", advisor.Money(s.TotalNetProfit))
	fmt.Printf("Credit Rating:    %s (%s)\n", a.Credit.LatestRating, a.Credit.Trend)
	if a.Forecast != nil {
		fmt.Printf("Forecast Method:  %s, growth %s\n", a.Forecast.Method, advisor.Percent(a.ForecastGrowth))
	}
	for _, reason := range a.Diagnostics.FallbackReasons {
		fmt.Printf("Fallback:         %s\n", reason)
	}
	fmt.Println()
}

func firstPeriod(monthly []statements.Statement) string {
	if len(monthly) == 0 {
		return "-"
	}
	return monthly[0].Period
}
