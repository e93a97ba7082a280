// Package health exposes the analysis pipeline over HTTP.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"sme_health/pkg/core/analysis"
	"sme_health/pkg/core/credit"
	"sme_health/pkg/core/ingest"
	"sme_health/pkg/core/logging"
	"sme_health/pkg/core/projection"
	"sme_health/pkg/core/store"
)

// DefaultMaxUpload bounds the multipart body held in memory.
const DefaultMaxUpload = 32 << 20

// Processor runs the pipeline over loaded tables. An empty entityID skips
// persistence.
type Processor interface {
	Process(ctx context.Context, entityID string, sales, products *ingest.Table) (*analysis.EntityAnalysis, error)
}

// SMEStore is the persistence the entity routes need.
type SMEStore interface {
	CreateSME(ctx context.Context, s store.SME) (store.SME, error)
	GetSME(ctx context.Context, id string) (store.SME, error)
	CreditScores(ctx context.Context, entityID string) ([]credit.Score, error)
	Forecasts(ctx context.Context, entityID string) ([]projection.Point, error)
}

// AnalyzeResponse is returned by both analyze routes.
type AnalyzeResponse struct {
	UploadID string                   `json:"upload_id,omitempty"`
	EntityID string                   `json:"entity_id,omitempty"`
	Analysis *analysis.EntityAnalysis `json:"analysis"`
}

// CreateSMERequest is the body of POST /api/smes.
type CreateSMERequest struct {
	Name     string            `json:"name"`
	Industry string            `json:"industry"`
	Details  map[string]string `json:"details"`
}

// Handler holds dependencies for the API endpoints.
type Handler struct {
	processor Processor
	uploads   store.UploadStore
	smes      SMEStore
	log       logrus.FieldLogger
	maxUpload int64
}

// NewHandler creates a handler. smes may be nil when no database is
// configured; the entity routes then answer 503.
func NewHandler(processor Processor, uploads store.UploadStore, smes SMEStore, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	if uploads == nil {
		uploads = store.NewMemoryUploadStore()
	}
	return &Handler{
		processor: processor,
		uploads:   uploads,
		smes:      smes,
		log:       log,
		maxUpload: DefaultMaxUpload,
	}
}

// RegisterRoutes registers every endpoint on router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analyze", h.Analyze).Methods("POST", "OPTIONS")
	api.HandleFunc("/uploads/{id}", h.GetUpload).Methods("GET")
	api.HandleFunc("/uploads/{id}/report", h.UploadReport).Methods("GET")
	api.HandleFunc("/smes", h.CreateSME).Methods("POST", "OPTIONS")
	api.HandleFunc("/smes/{id}", h.GetSME).Methods("GET")
	api.HandleFunc("/smes/{id}/analyze", h.AnalyzeSME).Methods("POST", "OPTIONS")
	api.HandleFunc("/smes/{id}/credit-scores", h.CreditScores).Methods("GET")
	api.HandleFunc("/smes/{id}/forecasts", h.Forecasts).Methods("GET")
}

// NewRouter returns a router with the middleware chain and all routes.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(CORSMiddleware, LoggingMiddleware(h.log))
	h.RegisterRoutes(router)
	return router
}

// =============================================================================
// HANDLERS
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uploads":  h.uploads.Len(),
		"database": h.smes != nil,
	})
}

// Analyze runs an ad-hoc upload and keeps the result in the upload store.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	sales, products, err := h.readTables(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.processor.Process(r.Context(), "", sales, products)
	if err != nil {
		h.failAnalysis(w, err)
		return
	}

	id := uuid.NewString()
	h.uploads.Put(id, result)
	h.log.WithFields(logrus.Fields{"upload_id": id, "run_id": result.RunID}).Info("upload analyzed")
	writeJSON(w, http.StatusOK, AnalyzeResponse{UploadID: id, Analysis: result})
}

func (h *Handler) GetUpload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result, ok := h.uploads.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("upload %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{UploadID: id, Analysis: result})
}

// UploadReport renders the credit report of an upload as HTML.
func (h *Handler) UploadReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result, ok := h.uploads.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("upload %s not found", id))
		return
	}
	html, err := credit.ReportHTML(result.Credit)
	if err != nil {
		h.log.WithError(err).Error("failed to render report")
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, html)
}

func (h *Handler) CreateSME(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	var req CreateSMERequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	sme, err := h.smes.CreateSME(r.Context(), store.SME{Name: req.Name, Industry: req.Industry, Details: req.Details})
	if err != nil {
		h.log.WithError(err).Error("failed to create sme")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sme)
}

func (h *Handler) GetSME(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	sme, err := h.smes.GetSME(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.failStore(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sme)
}

// AnalyzeSME runs an upload for a registered entity and persists it.
func (h *Handler) AnalyzeSME(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	id := mux.Vars(r)["id"]
	if _, err := h.smes.GetSME(r.Context(), id); err != nil {
		h.failStore(w, err)
		return
	}

	sales, products, err := h.readTables(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.processor.Process(r.Context(), id, sales, products)
	if err != nil {
		h.failAnalysis(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{EntityID: id, Analysis: result})
}

func (h *Handler) CreditScores(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	id := mux.Vars(r)["id"]
	if _, err := h.smes.GetSME(r.Context(), id); err != nil {
		h.failStore(w, err)
		return
	}
	scores, err := h.smes.CreditScores(r.Context(), id)
	if err != nil {
		h.failStore(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entity_id": id, "credit_scores": scores})
}

func (h *Handler) Forecasts(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	id := mux.Vars(r)["id"]
	if _, err := h.smes.GetSME(r.Context(), id); err != nil {
		h.failStore(w, err)
		return
	}
	points, err := h.smes.Forecasts(r.Context(), id)
	if err != nil {
		h.failStore(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entity_id": id, "forecasts": points})
}

// =============================================================================
// HELPERS
// =============================================================================

// readTables parses the multipart form: "sales" is required, "products"
// optional.
func (h *Handler) readTables(r *http.Request) (*ingest.Table, *ingest.Table, error) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	sales, err := readFormTable(r, "sales")
	if err != nil {
		return nil, nil, err
	}
	if sales == nil {
		return nil, nil, fmt.Errorf("sales file is required")
	}
	products, err := readFormTable(r, "products")
	if err != nil {
		return nil, nil, err
	}
	return sales, products, nil
}

func readFormTable(r *http.Request, field string) (*ingest.Table, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", field, err)
	}
	defer file.Close()

	t, err := ingest.Load(header.Filename, file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s file: %w", field, err)
	}
	return t, nil
}

func (h *Handler) requireStore(w http.ResponseWriter) bool {
	if h.smes == nil {
		writeError(w, http.StatusServiceUnavailable, "database is not configured")
		return false
	}
	return true
}

func (h *Handler) failAnalysis(w http.ResponseWriter, err error) {
	var schemaErr *ingest.SchemaError
	var histErr *projection.InsufficientHistoryError
	switch {
	case errors.As(err, &schemaErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &histErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.WithError(err).Error("analysis failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) failStore(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.log.WithError(err).Error("store request failed")
	writeError(w, http.StatusInternalServerError, "storage error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
