package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/backend-developer-hojiakbar/mebel/internal/analysis"
	"github.com/backend-developer-hojiakbar/mebel/internal/bid"
	"github.com/backend-developer-hojiakbar/mebel/internal/knowledge"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
	"github.com/backend-developer-hojiakbar/mebel/internal/store"
)

// Handlers provides HTTP handlers for the analysis API.
type Handlers struct {
	pipeline  *analysis.Pipeline
	store     *store.Store
	bidEngine *bid.Engine
	analyzer  *knowledge.Analyzer
}

// New creates a handlers instance. store may be nil when no database is
// configured; history and contract endpoints then return 503.
func New(pipeline *analysis.Pipeline, st *store.Store, bidEngine *bid.Engine, analyzer *knowledge.Analyzer) *Handlers {
	return &Handlers{
		pipeline:  pipeline,
		store:     st,
		bidEngine: bidEngine,
		analyzer:  analyzer,
	}
}

// Analyze runs the full pipeline for a submitted request.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Language == "" {
		req.Language = "uz"
	}

	result, err := h.pipeline.Run(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if h.store != nil {
		if err := h.store.AppendAnalysis(r.Context(), result); err != nil {
			slog.Warn("failed to persist analysis", "id", result.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// History lists stored analyses.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	results, err := h.store.ListAnalyses(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// GetAnalysis returns one stored analysis.
func (h *Handlers) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	result, err := h.store.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RemoveAnalysis deletes one stored analysis.
func (h *Handlers) RemoveAnalysis(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	if err := h.store.RemoveAnalysis(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReResearch re-runs supplier research for one product of a stored analysis
// and persists the updated result.
func (h *Handlers) ReResearch(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	result, err := h.store.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = "uz"
	}

	if err := h.pipeline.ReResearch(r.Context(), result, chi.URLParam(r, "productID"), lang); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.store.UpdateAnalysis(r.Context(), result); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// bidRequest is the payload for bid recommendation requests.
type bidRequest struct {
	Suppliers map[string]string      `json:"suppliers"` // product ID -> supplier ID
	Costs     models.AdditionalCosts `json:"costs"`
	Language  string                 `json:"language"`
}

// Bid produces a bid recommendation for a stored analysis.
func (h *Handlers) Bid(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	result, err := h.store.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Language == "" {
		req.Language = "uz"
	}

	rec, err := h.bidEngine.Recommend(r.Context(), result, bid.Selection(req.Suppliers), req.Costs, req.Language)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Contracts lists the knowledge-base contracts.
func (h *Handlers) Contracts(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	contracts, err := h.store.ListContracts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, contracts)
}

// contractUpload is the payload for contract uploads.
type contractUpload struct {
	FileName string `json:"file_name"`
	Text     string `json:"text"`
}

// UploadContract analyzes a contract and stores it in the knowledge base.
// The record is persisted with its final status; a failed analysis is
// stored as an error record the user can retry or remove.
func (h *Handlers) UploadContract(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	var req contractUpload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "contract text is required")
		return
	}

	contract := &models.Contract{
		ID:       uuid.NewString(),
		FileName: req.FileName,
		RawText:  req.Text,
		Status:   models.ContractPending,
	}

	if err := h.analyzer.Analyze(r.Context(), contract); err != nil {
		slog.Warn("contract analysis failed", "file", req.FileName, "error", err)
	}

	if err := h.store.SaveContract(r.Context(), contract); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, contract)
}

// RemoveContract deletes a knowledge-base contract.
func (h *Handlers) RemoveContract(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	if err := h.store.RemoveContract(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) requireStore(w http.ResponseWriter) bool {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "database is not configured")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
