package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"sme_health/pkg/core/analysis"
	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/cashflow"
	"sme_health/pkg/core/credit"
	"sme_health/pkg/core/projection"
	"sme_health/pkg/core/secure"
	"sme_health/pkg/core/statements"
)

const entityID = "7f1c9a52-3b7e-4d8e-9a61-0c2f5d1e8b44"

// --- Fakes ---

type fakeRow struct {
	ScanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.ScanFunc(dest...) }

type fakeBatchResults struct {
	pgx.BatchResults
	err error
}

func (b *fakeBatchResults) Close() error { return b.err }

type fakeTx struct {
	pgx.Tx
	batchErr  error
	queued    []string
	committed bool
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	for _, q := range b.QueuedQueries {
		t.queued = append(t.queued, q.SQL)
	}
	return &fakeBatchResults{err: t.batchErr}
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

type fakeDB struct {
	DB
	tx           *fakeTx
	QueryRowFunc func(sql string, args ...any) pgx.Row
}

func (d *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) { return d.tx, nil }

func (d *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return d.QueryRowFunc(sql, args...)
}

func sampleAnalysis() *analysis.EntityAnalysis {
	return &analysis.EntityAnalysis{
		RunID: "0b8f5f5e-8a4c-4b8f-9a4e-2f7d4c1b9e11",
		Monthly: []statements.Statement{
			{Period: "2024-01", TotalRevenue: 1000},
			{Period: "2024-02", TotalRevenue: 1100},
		},
		MonthlyCash: []cashflow.Month{{Period: "2024-01", EndingCashBalance: 5000}},
		CreditScores: []credit.Score{
			{Period: "2024-01", Composite: calc.Undefined, Rating: credit.RatingNone},
			{Period: "2024-02", Composite: calc.Defined(71.5), Rating: "A"},
		},
		Forecast: &projection.Table{Points: []projection.Point{{Period: "2024-03", Value: 1200}}},
		Summary:  statements.Summary{LatestPeriod: "2024-02"},
		Context:  map[string]string{"credit_score": "71.5/100"},
	}
}

// --- Tests ---

func TestAnalysisStatements(t *testing.T) {
	stmts, err := analysisStatements(entityID, sampleAnalysis())
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 6 {
		t.Fatalf("expected 2 records + 2 scores + 1 forecast + 1 recommendation, got %d", len(stmts))
	}
	for _, s := range stmts {
		if !strings.Contains(s.sql, "ON CONFLICT (entity_id, period)") {
			t.Errorf("every write must be an upsert: %s", s.sql)
		}
	}

	if cash, ok := stmts[0].args[8].(*float64); !ok || cash == nil || *cash != 5000 {
		t.Errorf("expected ending cash 5000 for 2024-01, got %v", stmts[0].args[8])
	}
	if cash := stmts[1].args[8].(*float64); cash != nil {
		t.Errorf("expected NULL ending cash for 2024-02, got %v", *cash)
	}
	if score := stmts[2].args[2].(*float64); score != nil {
		t.Errorf("undefined composite must be stored as NULL, got %v", *score)
	}
	if score := stmts[3].args[2].(*float64); score == nil || *score != 71.5 {
		t.Errorf("expected composite 71.5, got %v", score)
	}

	if _, err := analysisStatements("not-a-uuid", sampleAnalysis()); err == nil {
		t.Error("expected invalid entity id error")
	}
	if _, err := analysisStatements(entityID, nil); err == nil {
		t.Error("expected error for nil analysis")
	}
}

func TestRepository_SaveAnalysis(t *testing.T) {
	tx := &fakeTx{}
	repo := NewRepository(&fakeDB{tx: tx}, nil)
	if err := repo.SaveAnalysis(context.Background(), entityID, sampleAnalysis()); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	if len(tx.queued) != 6 || !tx.committed {
		t.Errorf("expected 6 queued upserts and a commit, got %d, committed=%v", len(tx.queued), tx.committed)
	}

	failing := &fakeTx{batchErr: errors.New("deadlock")}
	repo = NewRepository(&fakeDB{tx: failing}, nil)
	if err := repo.SaveAnalysis(context.Background(), entityID, sampleAnalysis()); err == nil || failing.committed {
		t.Errorf("expected batch failure without commit, got %v", err)
	}
}

func TestRepository_CreateSMEEncryptsDetails(t *testing.T) {
	cipher, err := secure.NewCipher(bytes.Repeat([]byte{1}, 32))
	if err != nil {
		t.Fatal(err)
	}
	var stored map[string]string
	db := &fakeDB{QueryRowFunc: func(sql string, args ...any) pgx.Row {
		if err := json.Unmarshal(args[3].([]byte), &stored); err != nil {
			t.Fatal(err)
		}
		return fakeRow{ScanFunc: func(dest ...any) error {
			*dest[0].(*time.Time) = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			return nil
		}}
	}}

	repo := NewRepository(db, cipher)
	sme, err := repo.CreateSME(context.Background(), SME{
		Name:     "Acme Electronics",
		Industry: "retail_electronics",
		Details:  map[string]string{"tax_id": "12-3456789", "city": "Austin"},
	})
	if err != nil {
		t.Fatalf("CreateSME failed: %v", err)
	}
	if sme.ID == "" || sme.CreatedAt.IsZero() {
		t.Errorf("expected generated id and timestamp, got %+v", sme)
	}
	if !strings.HasPrefix(stored["tax_id"], secure.Prefix) || stored["city"] != "Austin" {
		t.Errorf("unexpected stored details %v", stored)
	}

	if _, err := NewRepository(db, nil).CreateSME(context.Background(), SME{Name: "x", Details: map[string]string{"password": "p"}}); err == nil {
		t.Error("expected error storing a sensitive field without a key")
	}
	if _, err := repo.CreateSME(context.Background(), SME{}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestRepository_GetSME(t *testing.T) {
	db := &fakeDB{QueryRowFunc: func(sql string, args ...any) pgx.Row {
		return fakeRow{ScanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
	}}
	repo := NewRepository(db, nil)

	if _, err := repo.GetSME(context.Background(), entityID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetSME(context.Background(), "bogus"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a malformed id, got %v", err)
	}
}
