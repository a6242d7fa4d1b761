package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/tapdiag/internal/domain/analytics"
)

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Data      []analytics.DataPoint `json:"data"`
	Timeframe string                `json:"timeframe,omitempty"`
	Config    *analytics.Config     `json:"config,omitempty"`
}

// AnalyzeHandler runs distribution analyses.
type AnalyzeHandler struct {
	analyzer Analyzer
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(analyzer Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer}
}

// HandleAnalyze handles POST /analyze requests.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), req.Data, req.Timeframe, req.Config)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, analytics.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "canceled", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	}
}
