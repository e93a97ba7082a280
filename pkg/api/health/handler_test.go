package health

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sme_health/pkg/core/analysis"
	"sme_health/pkg/core/calc"
	"sme_health/pkg/core/config"
	"sme_health/pkg/core/credit"
	"sme_health/pkg/core/ingest"
	"sme_health/pkg/core/pipeline"
	"sme_health/pkg/core/projection"
	"sme_health/pkg/core/store"
)

const smeID = "7f1c9a52-3b7e-4d8e-9a61-0c2f5d1e8b44"

// --- Mocks ---

type MockProcessor struct {
	ProcessFunc func(ctx context.Context, entityID string, sales, products *ingest.Table) (*analysis.EntityAnalysis, error)
}

func (m *MockProcessor) Process(ctx context.Context, entityID string, sales, products *ingest.Table) (*analysis.EntityAnalysis, error) {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, entityID, sales, products)
	}
	return &analysis.EntityAnalysis{RunID: "run-1", EntityID: entityID}, nil
}

type MockSMEStore struct {
	smes map[string]store.SME
}

func (m *MockSMEStore) CreateSME(ctx context.Context, s store.SME) (store.SME, error) {
	s.ID = smeID
	m.smes[s.ID] = s
	return s, nil
}

func (m *MockSMEStore) GetSME(ctx context.Context, id string) (store.SME, error) {
	s, ok := m.smes[id]
	if !ok {
		return store.SME{}, fmt.Errorf("sme %s: %w", id, store.ErrNotFound)
	}
	return s, nil
}

func (m *MockSMEStore) CreditScores(ctx context.Context, entityID string) ([]credit.Score, error) {
	return []credit.Score{{Period: "2024-01", Composite: calc.Defined(72), Rating: "A"}}, nil
}

func (m *MockSMEStore) Forecasts(ctx context.Context, entityID string) ([]projection.Point, error) {
	return []projection.Point{{Period: "2024-02", Value: 1000, Method: projection.MethodEnsemble}}, nil
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".csv")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, h http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const salesCSV = "date,product,qty,unit_price,unit_cost\n2024-01-05,A,2,100,45\n"

// --- Tests ---

func TestHealth(t *testing.T) {
	router := NewRouter(NewHandler(&MockProcessor{}, nil, nil, nil))
	rec := do(t, router, "GET", "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header")
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" || body["database"] != false {
		t.Errorf("unexpected body %v", body)
	}
}

func TestAnalyze_StoresUpload(t *testing.T) {
	var gotEntity string
	var gotProducts *ingest.Table
	proc := &MockProcessor{ProcessFunc: func(ctx context.Context, entityID string, sales, products *ingest.Table) (*analysis.EntityAnalysis, error) {
		gotEntity, gotProducts = entityID, products
		if len(sales.Rows) != 1 {
			t.Errorf("expected one sales row, got %d", len(sales.Rows))
		}
		return &analysis.EntityAnalysis{RunID: "run-1"}, nil
	}}
	uploads := store.NewMemoryUploadStore()
	router := NewRouter(NewHandler(proc, uploads, nil, nil))

	body, ct := multipartBody(t, map[string]string{"sales": salesCSV})
	rec := do(t, router, "POST", "/api/analyze", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.UploadID == "" || resp.Analysis.RunID != "run-1" {
		t.Errorf("unexpected response %+v", resp)
	}
	if gotEntity != "" || gotProducts != nil {
		t.Errorf("ad-hoc upload must not persist or invent products: %q %v", gotEntity, gotProducts)
	}

	rec = do(t, router, "GET", "/api/uploads/"+resp.UploadID, nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected stored upload, got %d", rec.Code)
	}
	rec = do(t, router, "GET", "/api/uploads/unknown", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		err      error
		expected int
	}{
		{"missing sales", map[string]string{"products": "ProductKey\nA\n"}, nil, http.StatusBadRequest},
		{"schema error", map[string]string{"sales": salesCSV}, &ingest.SchemaError{Table: "sales", Missing: []string{"qty"}}, http.StatusBadRequest},
		{"short history", map[string]string{"sales": salesCSV}, fmt.Errorf("revenue forecast failed: %w", &projection.InsufficientHistoryError{Points: 1, Required: 2}), http.StatusUnprocessableEntity},
		{"internal", map[string]string{"sales": salesCSV}, fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &MockProcessor{ProcessFunc: func(ctx context.Context, entityID string, sales, products *ingest.Table) (*analysis.EntityAnalysis, error) {
				return nil, tt.err
			}}
			router := NewRouter(NewHandler(proc, nil, nil, nil))
			body, ct := multipartBody(t, tt.files)
			rec := do(t, router, "POST", "/api/analyze", body, ct)
			if rec.Code != tt.expected {
				t.Errorf("expected %d, got %d: %s", tt.expected, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSMERoutes(t *testing.T) {
	smes := &MockSMEStore{smes: map[string]store.SME{}}
	var persistedFor string
	proc := &MockProcessor{ProcessFunc: func(ctx context.Context, entityID string, sales, products *ingest.Table) (*analysis.EntityAnalysis, error) {
		persistedFor = entityID
		return &analysis.EntityAnalysis{EntityID: entityID}, nil
	}}
	router := NewRouter(NewHandler(proc, nil, smes, nil))

	rec := do(t, router, "POST", "/api/smes", bytes.NewBufferString(`{"name":"Acme","industry":"retail_electronics"}`), "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, "POST", "/api/smes", bytes.NewBufferString(`{"industry":"retail"}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing name, got %d", rec.Code)
	}

	rec = do(t, router, "GET", "/api/smes/"+smeID, nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Acme") {
		t.Errorf("unexpected fetch: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, "GET", "/api/smes/00000000-0000-0000-0000-000000000000", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	body, ct := multipartBody(t, map[string]string{"sales": salesCSV})
	rec = do(t, router, "POST", "/api/smes/"+smeID+"/analyze", body, ct)
	if rec.Code != http.StatusOK || persistedFor != smeID {
		t.Errorf("expected analysis persisted for %s, got %d (%q)", smeID, rec.Code, persistedFor)
	}

	rec = do(t, router, "GET", "/api/smes/"+smeID+"/credit-scores", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"credit_scores"`) {
		t.Errorf("unexpected credit scores response: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, "GET", "/api/smes/"+smeID+"/forecasts", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"forecasts"`) {
		t.Errorf("unexpected forecasts response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSMERoutes_NoDatabase(t *testing.T) {
	router := NewRouter(NewHandler(&MockProcessor{}, nil, nil, nil))
	rec := do(t, router, "GET", "/api/smes/"+smeID, nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestPreflight(t *testing.T) {
	router := NewRouter(NewHandler(&MockProcessor{}, nil, nil, nil))
	rec := do(t, router, "OPTIONS", "/api/analyze", nil, "")
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Errorf("unexpected preflight response %d %v", rec.Code, rec.Header())
	}
}

func TestAnalyze_EndToEndReport(t *testing.T) {
	engine, err := analysis.NewEngine(config.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	router := NewRouter(NewHandler(pipeline.NewOrchestrator(nil, engine, nil), nil, nil, nil))

	var sb strings.Builder
	sb.WriteString("Order Date,ProductKey,Quantity,Unit Price USD,Unit Cost USD\n")
	for m := 1; m <= 12; m++ {
		fmt.Fprintf(&sb, "2023-%02d-15,P1,%d,100,45\n", m, 8000+770*(m-1))
	}
	sb.WriteString("2023-06-20,P1,NaN,100,45\n2023-07-20,P1,5,Inf,45\n")
	body, ct := multipartBody(t, map[string]string{"sales": sb.String()})
	rec := do(t, router, "POST", "/api/analyze", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		UploadID string `json:"upload_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	rec = do(t, router, "GET", "/api/uploads/"+resp.UploadID+"/report", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected report, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<h1>Credit Assessment Report</h1>") {
		t.Errorf("unexpected report body: %s", rec.Body.String())
	}
}
