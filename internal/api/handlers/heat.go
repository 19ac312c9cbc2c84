package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/pkg/logger"
)

// HeatService is what the heat endpoints need from the refresh service
type HeatService interface {
	Run(ctx context.Context) (*contracts.Evaluation, error)
	Latest(ctx context.Context) (*contracts.Evaluation, error)
	History(ctx context.Context, from, to time.Time, limit int) ([]*contracts.Evaluation, error)
	LatestCOT(ctx context.Context) (*contracts.COTReport, error)
}

// HeatHandler handles heat index endpoints
// ⭐ SSOT: heat API 핸들러는 이 구조체에서만
type HeatHandler struct {
	svc    HeatService
	logger *logger.Logger
}

// NewHeatHandler creates a new heat handler
func NewHeatHandler(svc HeatService, log *logger.Logger) *HeatHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &HeatHandler{
		svc:    svc,
		logger: log.Component("api"),
	}
}

// GetLatest returns the latest stored evaluation
// GET /api/heat
func (h *HeatHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	eval, err := h.svc.Latest(r.Context())
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No evaluation stored yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest evaluation")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve evaluation")
		return
	}

	respondJSON(w, http.StatusOK, eval)
}

// HistoryResponse wraps a history query result
type HistoryResponse struct {
	From        string                  `json:"from,omitempty"`
	To          string                  `json:"to,omitempty"`
	Count       int                     `json:"count"`
	Evaluations []*contracts.Evaluation `json:"evaluations"`
}

// GetHistory returns stored evaluations in ascending as-of order
// GET /api/heat/history?from=YYYY-MM-DD&to=YYYY-MM-DD&limit=N
func (h *HeatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	req, verrs := bindHistoryRequest(r)
	if verrs != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Invalid query",
			"errors": verrs,
		})
		return
	}

	from, to := req.Range()
	evals, err := h.svc.History(r.Context(), from, to, req.Limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}
	if evals == nil {
		evals = []*contracts.Evaluation{}
	}

	respondJSON(w, http.StatusOK, HistoryResponse{
		From:        req.From,
		To:          req.To,
		Count:       len(evals),
		Evaluations: evals,
	})
}

// EvaluateErrorResponse reports which signals could not be scored
type EvaluateErrorResponse struct {
	Error   string                   `json:"error"`
	Failed  []contracts.SeriesName   `json:"failed,omitempty"`
	Partial []contracts.SignalResult `json:"partial,omitempty"`
}

// Evaluate runs a refresh now and returns the new evaluation
// POST /api/heat/evaluate
func (h *HeatHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	eval, err := h.svc.Run(r.Context())
	if err == nil {
		respondJSON(w, http.StatusCreated, eval)
		return
	}

	h.logger.WithError(err).Warn("Evaluation failed")

	var ee *contracts.EvaluationError
	switch {
	case errors.As(err, &ee):
		respondJSON(w, http.StatusUnprocessableEntity, EvaluateErrorResponse{
			Error:   err.Error(),
			Failed:  ee.Failed(),
			Partial: ee.Results,
		})
	case errors.Is(err, contracts.ErrUnorderedSeries), errors.Is(err, contracts.ErrDataInsufficient):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusBadGateway, err.Error())
	}
}

// COTResponse is the latest weekly COT report
type COTResponse struct {
	Date         string  `json:"date"`
	RetailNet    float64 `json:"retail_net"`
	OpenInterest float64 `json:"open_interest"`
	NetPctOI     float64 `json:"net_pct_oi"`
}

// GetLatestCOT returns the latest retail net position and open interest
// GET /api/cot/latest
func (h *HeatHandler) GetLatestCOT(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.LatestCOT(r.Context())
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No COT report stored yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get COT report")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve COT report")
		return
	}

	respondJSON(w, http.StatusOK, COTResponse{
		Date:         report.Date.Format("2006-01-02"),
		RetailNet:    report.RetailNet,
		OpenInterest: report.OpenInterest,
		NetPctOI:     report.NetPercentOfOI(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
