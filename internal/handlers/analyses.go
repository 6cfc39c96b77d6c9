package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/barrybecker4/applets-sub001/internal/analysis"
	"github.com/barrybecker4/applets-sub001/internal/middleware"
	"github.com/barrybecker4/applets-sub001/internal/models"
)

const maxRequestBody = 1 << 20

// Analyzer is the part of the analysis service the HTTP API drives.
type Analyzer interface {
	Start(clientID string, req analysis.Request) (models.Analysis, error)
	Get(ctx context.Context, id string) (models.Analysis, error)
	Pause(id string) (models.Analysis, error)
	Resume(id string) (models.Analysis, error)
	Cancel(id string) (models.Analysis, error)
	RunBatch(ctx context.Context, reqs []analysis.Request) ([]analysis.BatchResult, error)
}

type AnalysisHandler struct {
	svc          Analyzer
	batchTimeout time.Duration
}

func NewAnalysisHandler(svc Analyzer, batchTimeout time.Duration) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, batchTimeout: batchTimeout}
}

type BatchRequest struct {
	Positions []analysis.Request `json:"positions"`
}

type BatchResponse struct {
	Results []analysis.BatchResult `json:"results"`
}

// CreateAnalysis starts searching a position in the background.
// POST /api/analyses
func (h *AnalysisHandler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	client, _ := middleware.GetClientFromContext(r.Context())

	var req analysis.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.svc.Start(client.ClientID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/api/analyses/"+doc.AnalysisID)
	respondWithJSON(w, http.StatusAccepted, doc)
}

// GetAnalysis returns the live state or final result of an analysis.
// GET /api/analyses/{id}
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.owned(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, doc)
}

// PauseAnalysis handles POST /api/analyses/{id}/pause
func (h *AnalysisHandler) PauseAnalysis(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.svc.Pause)
}

// ResumeAnalysis handles POST /api/analyses/{id}/resume
func (h *AnalysisHandler) ResumeAnalysis(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.svc.Resume)
}

// CancelAnalysis handles POST /api/analyses/{id}/cancel
func (h *AnalysisHandler) CancelAnalysis(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.svc.Cancel)
}

func (h *AnalysisHandler) control(w http.ResponseWriter, r *http.Request, op func(string) (models.Analysis, error)) {
	doc, ok := h.owned(w, r)
	if !ok {
		return
	}
	updated, err := op(doc.AnalysisID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// owned loads the analysis named in the path. Analyses of other clients
// are reported as missing.
func (h *AnalysisHandler) owned(w http.ResponseWriter, r *http.Request) (models.Analysis, bool) {
	client, _ := middleware.GetClientFromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	doc, err := h.svc.Get(ctx, mux.Vars(r)["id"])
	if err == nil && doc.ClientID != client.ClientID {
		err = analysis.ErrNotFound
	}
	if err != nil {
		respondWithServiceError(w, err)
		return models.Analysis{}, false
	}
	return doc, true
}

// RunBatch searches several positions and waits for all of them.
// POST /api/analyses/batch
func (h *AnalysisHandler) RunBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.batchTimeout)
	defer cancel()
	results, err := h.svc.RunBatch(ctx, req.Positions)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, BatchResponse{Results: results})
}

func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrInvalidRequest):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, analysis.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Analysis not found")
	case errors.Is(err, analysis.ErrFinished):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, analysis.ErrShuttingDown):
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, "Analysis timed out")
	default:
		log.Error().Str("component", "handlers").Err(err).Msg("analysis request failed")
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
