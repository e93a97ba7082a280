package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sme_health/pkg/core/analysis"
	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/cashflow"
	"sme_health/pkg/core/credit"
	"sme_health/pkg/core/projection"
	"sme_health/pkg/core/secure"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("not found")

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SME is a registered business. Sensitive detail fields are encrypted at
// rest and returned decrypted.
type SME struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Industry  string            `json:"industry"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Repository stores entities and their analyses.
type Repository struct {
	db     DB
	cipher *secure.Cipher
}

// NewRepository wraps a pool. cipher may be nil when no sensitive fields
// are ever stored.
func NewRepository(db DB, cipher *secure.Cipher) *Repository {
	return &Repository{db: db, cipher: cipher}
}

// =============================================================================
// ENTITIES
// =============================================================================

// CreateSME inserts a new entity, generating its ID when empty.
func (r *Repository) CreateSME(ctx context.Context, s SME) (SME, error) {
	if s.Name == "" {
		return SME{}, fmt.Errorf("name is required")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	} else if _, err := uuid.Parse(s.ID); err != nil {
		return SME{}, fmt.Errorf("invalid entity id %q: %w", s.ID, err)
	}

	details, err := r.sealDetails(s.Details)
	if err != nil {
		return SME{}, err
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return SME{}, fmt.Errorf("failed to marshal details: %w", err)
	}

	query := `
		INSERT INTO smes (id, name, industry, details)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query, s.ID, s.Name, s.Industry, detailsJSON).Scan(&s.CreatedAt); err != nil {
		return SME{}, fmt.Errorf("failed to create sme: %w", err)
	}
	return s, nil
}

// GetSME loads an entity and decrypts its details.
func (r *Repository) GetSME(ctx context.Context, id string) (SME, error) {
	if _, err := uuid.Parse(id); err != nil {
		return SME{}, fmt.Errorf("invalid entity id %q: %w", id, ErrNotFound)
	}

	query := `SELECT name, industry, details, created_at FROM smes WHERE id = $1`
	s := SME{ID: id}
	var detailsJSON []byte
	err := r.db.QueryRow(ctx, query, id).Scan(&s.Name, &s.Industry, &detailsJSON, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SME{}, fmt.Errorf("sme %s: %w", id, ErrNotFound)
		}
		return SME{}, fmt.Errorf("failed to load sme: %w", err)
	}

	var details map[string]string
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &details); err != nil {
			return SME{}, fmt.Errorf("failed to unmarshal details: %w", err)
		}
	}
	if s.Details, err = r.openDetails(details); err != nil {
		return SME{}, err
	}
	return s, nil
}

func (r *Repository) sealDetails(details map[string]string) (map[string]string, error) {
	if len(details) == 0 {
		return map[string]string{}, nil
	}
	if r.cipher == nil {
		for k := range details {
			if secure.IsSensitive(k) {
				return nil, fmt.Errorf("field %s is sensitive but no encryption key is configured", k)
			}
		}
		return details, nil
	}
	return r.cipher.EncryptFields(details)
}

func (r *Repository) openDetails(details map[string]string) (map[string]string, error) {
	if r.cipher == nil || len(details) == 0 {
		return details, nil
	}
	return r.cipher.DecryptFields(details)
}

// =============================================================================
// ANALYSES
// =============================================================================

type statement struct {
	sql  string
	args []any
}

const (
	upsertFinancialRecord = `
		INSERT INTO financial_records (entity_id, period, revenue, cogs, gross_profit,
			operating_expenses, ebitda, net_profit, ending_cash, statement, run_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (entity_id, period)
		DO UPDATE SET
			revenue = EXCLUDED.revenue,
			cogs = EXCLUDED.cogs,
			gross_profit = EXCLUDED.gross_profit,
			operating_expenses = EXCLUDED.operating_expenses,
			ebitda = EXCLUDED.ebitda,
			net_profit = EXCLUDED.net_profit,
			ending_cash = EXCLUDED.ending_cash,
			statement = EXCLUDED.statement,
			run_id = EXCLUDED.run_id,
			updated_at = NOW()`

	upsertCreditScore = `
		INSERT INTO credit_scores (entity_id, period, credit_score, credit_rating, components, run_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (entity_id, period)
		DO UPDATE SET
			credit_score = EXCLUDED.credit_score,
			credit_rating = EXCLUDED.credit_rating,
			components = EXCLUDED.components,
			run_id = EXCLUDED.run_id,
			updated_at = NOW()`

	upsertForecast = `
		INSERT INTO forecasts (entity_id, period, forecast_revenue, lower_bound, upper_bound, method, run_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (entity_id, period)
		DO UPDATE SET
			forecast_revenue = EXCLUDED.forecast_revenue,
			lower_bound = EXCLUDED.lower_bound,
			upper_bound = EXCLUDED.upper_bound,
			method = EXCLUDED.method,
			run_id = EXCLUDED.run_id,
			updated_at = NOW()`

	upsertRecommendations = `
		INSERT INTO recommendations (entity_id, period, context, items, run_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (entity_id, period)
		DO UPDATE SET
			context = EXCLUDED.context,
			items = EXCLUDED.items,
			run_id = EXCLUDED.run_id,
			updated_at = NOW()`
)

// analysisStatements builds every upsert for one analysis.
func analysisStatements(entityID string, a *analysis.EntityAnalysis) ([]statement, error) {
	if a == nil {
		return nil, fmt.Errorf("analysis is nil")
	}
	if _, err := uuid.Parse(entityID); err != nil {
		return nil, fmt.Errorf("invalid entity id %q: %w", entityID, err)
	}

	var out []statement
	cash := cashflow.EndingBalances(a.MonthlyCash)
	for _, m := range a.Monthly {
		stmtJSON, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal statement %s: %w", m.Period, err)
		}
		var endingCash *float64
		if v, ok := cash[m.Period]; ok {
			endingCash = &v
		}
		out = append(out, statement{upsertFinancialRecord, []any{
			entityID, m.Period, m.TotalRevenue, m.TotalCOGS, m.GrossProfit,
			m.OperatingExpenses, m.EBITDA, m.NetProfit, endingCash, stmtJSON, a.RunID,
		}})
	}

	for _, s := range a.CreditScores {
		compJSON, err := json.Marshal(s.Components)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal components %s: %w", s.Period, err)
		}
		out = append(out, statement{upsertCreditScore, []any{
			entityID, s.Period, s.Composite.Ptr(), s.Rating, compJSON, a.RunID,
		}})
	}

	if a.Forecast != nil {
		for _, p := range a.Forecast.Points {
			out = append(out, statement{upsertForecast, []any{
				entityID, p.Period, p.Value, p.Lower, p.Upper, p.Method, a.RunID,
			}})
		}
	}

	if a.Summary.LatestPeriod != "" {
		ctxJSON, err := json.Marshal(a.Context)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal context: %w", err)
		}
		itemsJSON, err := json.Marshal(a.Recommendations)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal recommendations: %w", err)
		}
		out = append(out, statement{upsertRecommendations, []any{
			entityID, a.Summary.LatestPeriod, ctxJSON, itemsJSON, a.RunID,
		}})
	}
	return out, nil
}

// SaveAnalysis upserts every per-period row of the analysis in one
// transaction.
func (r *Repository) SaveAnalysis(ctx context.Context, entityID string, a *analysis.EntityAnalysis) error {
	stmts, err := analysisStatements(entityID, a)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, s := range stmts {
		batch.Queue(s.sql, s.args...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit analysis: %w", err)
	}
	return nil
}

// CreditScores returns the stored scores of an entity by period.
func (r *Repository) CreditScores(ctx context.Context, entityID string) ([]credit.Score, error) {
	query := `
		SELECT period, credit_score, credit_rating, components
		FROM credit_scores
		WHERE entity_id = $1
		ORDER BY period
	`
	rows, err := r.db.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit scores: %w", err)
	}
	defer rows.Close()

	out := []credit.Score{}
	for rows.Next() {
		var s credit.Score
		var composite *float64
		var compJSON []byte
		if err := rows.Scan(&s.Period, &composite, &s.Rating, &compJSON); err != nil {
			return nil, fmt.Errorf("failed to scan credit score: %w", err)
		}
		s.Composite = calc.FromPtr(composite)
		if err := json.Unmarshal(compJSON, &s.Components); err != nil {
			return nil, fmt.Errorf("failed to unmarshal components: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Forecasts returns the stored forecast rows of an entity by period.
func (r *Repository) Forecasts(ctx context.Context, entityID string) ([]projection.Point, error) {
	query := `
		SELECT period, forecast_revenue, lower_bound, upper_bound, method
		FROM forecasts
		WHERE entity_id = $1
		ORDER BY period
	`
	rows, err := r.db.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecasts: %w", err)
	}
	defer rows.Close()

	out := []projection.Point{}
	for rows.Next() {
		var p projection.Point
		if err := rows.Scan(&p.Period, &p.Value, &p.Lower, &p.Upper, &p.Method); err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
