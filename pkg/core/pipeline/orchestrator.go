package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"sme_health/pkg/core/analysis"
	"sme_health/pkg/core/clean"
	"sme_health/pkg/core/ingest"
	"sme_health/pkg/core/logging"
	"sme_health/pkg/core/validate"
)

// Source names the input files for one entity. ProductsPath is optional when
// the sales file carries its own prices.
type Source struct {
	EntityID     string
	SalesPath    string
	ProductsPath string
}

// Loader reads the raw sales and product tables.
type Loader interface {
	Load(ctx context.Context, src Source) (sales, products *ingest.Table, err error)
}

// Analyzer runs the calculation stages over cleaned transactions.
type Analyzer interface {
	Analyze(txs []clean.Transaction, report *clean.Report) (*analysis.EntityAnalysis, error)
}

// Repository persists a finished analysis.
type Repository interface {
	SaveAnalysis(ctx context.Context, entityID string, a *analysis.EntityAnalysis) error
}

// ValidationConfig controls how statement integrity issues are handled.
type ValidationConfig struct {
	EnableStrictValidation bool // error-severity issues stop the pipeline
}

// Orchestrator manages the end-to-end flow:
// Load -> Clean -> Analyze -> Validate -> Persist
type Orchestrator struct {
	loader           Loader
	analyzer         Analyzer
	repo             Repository
	log              logrus.FieldLogger
	validationConfig ValidationConfig
}

// NewOrchestrator wires the collaborators. Persistence is optional; see
// SetRepository.
func NewOrchestrator(loader Loader, analyzer Analyzer, log logrus.FieldLogger) *Orchestrator {
	if log == nil {
		log = logging.Discard()
	}
	return &Orchestrator{loader: loader, analyzer: analyzer, log: log}
}

// SetRepository enables the persist stage.
func (o *Orchestrator) SetRepository(repo Repository) {
	o.repo = repo
}

// SetValidationConfig updates the validation configuration.
func (o *Orchestrator) SetValidationConfig(cfg ValidationConfig) {
	o.validationConfig = cfg
}

// Run loads the source files and processes them.
func (o *Orchestrator) Run(ctx context.Context, src Source) (*analysis.EntityAnalysis, error) {
	log := o.log.WithField("entity_id", src.EntityID)
	log.WithField("sales", src.SalesPath).Info("[LOAD] Reading source files")

	if o.loader == nil {
		return nil, fmt.Errorf("no loader configured")
	}
	sales, products, err := o.loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load failed: %w", err)
	}
	return o.Process(ctx, src.EntityID, sales, products)
}

// Process runs every stage after loading. An empty entityID skips
// persistence.
func (o *Orchestrator) Process(ctx context.Context, entityID string, sales, products *ingest.Table) (*analysis.EntityAnalysis, error) {
	log := o.log.WithField("entity_id", entityID)
	start := time.Now()

	// 1. Clean
	txs, report, err := clean.Clean(sales, products)
	if err != nil {
		return nil, fmt.Errorf("cleaning failed: %w", err)
	}
	log.WithFields(logrus.Fields{
		"initial_rows": report.InitialRows,
		"final_rows":   report.FinalRows,
		"removed_rows": report.RemovedRows,
	}).Info("[CLEAN] Transactions validated")
	if report.CatalogSkipped {
		log.WithField("products", report.ProductsTotal).Warn("[CLEAN] Sales rows carry their own prices; product table not used")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Analyze
	result, err := o.analyzer.Analyze(txs, report)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	result.EntityID = entityID
	log.WithFields(logrus.Fields{
		"run_id":  result.RunID,
		"periods": len(result.Monthly),
		"rating":  result.Credit.LatestRating,
	}).Info("[ANALYZE] Analysis complete")
	for _, reason := range result.Diagnostics.FallbackReasons {
		log.WithField("reason", reason).Warn("[FORECAST] Fallback")
	}

	// 3. Validate
	if err := o.validateAnalysis(log, result); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 4. Persist
	if o.repo != nil && entityID != "" {
		if err := o.repo.SaveAnalysis(ctx, entityID, result); err != nil {
			return nil, fmt.Errorf("storage failed: %w", err)
		}
		log.Info("[PERSIST] Analysis saved")
	}

	log.WithField("elapsed", time.Since(start).String()).Info("[DONE] Pipeline completed")
	return result, nil
}

// validateAnalysis logs integrity issues and, in strict mode, fails on
// error-severity ones.
func (o *Orchestrator) validateAnalysis(log logrus.FieldLogger, a *analysis.EntityAnalysis) error {
	issues := a.Diagnostics.StatementIssues
	for _, is := range issues {
		log.WithFields(logrus.Fields{
			"period":   is.Period,
			"check":    is.Check,
			"severity": is.Severity,
		}).Warn("[VALIDATE] " + is.Message)
	}
	for _, failed := range a.Diagnostics.Linkage.Failed {
		log.WithField("check", failed).Warn("[VALIDATE] Linkage failed")
	}

	errCount := validate.Errors(issues)
	if o.validationConfig.EnableStrictValidation && (errCount > 0 || !a.Diagnostics.Linkage.AllPassed) {
		return fmt.Errorf("strict validation failed: %d statement errors, %d linkage failures", errCount, len(a.Diagnostics.Linkage.Failed))
	}
	log.WithField("issues", len(issues)).Info("[VALIDATE] Integrity checks done")
	return nil
}

// FileLoader reads sources from the local filesystem.
type FileLoader struct{}

// Load reads the sales table and, when named, the products table.
func (FileLoader) Load(ctx context.Context, src Source) (*ingest.Table, *ingest.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	sales, err := ingest.LoadFile(src.SalesPath)
	if err != nil {
		return nil, nil, err
	}
	if src.ProductsPath == "" {
		return sales, nil, nil
	}
	products, err := ingest.LoadFile(src.ProductsPath)
	if err != nil {
		return nil, nil, err
	}
	return sales, products, nil
}
