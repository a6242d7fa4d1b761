package api

import (
	"errors"
	"net/http"
)

// PerformanceHandler serves the sampler's derived metrics.
type PerformanceHandler struct {
	source PerformanceSource
}

// NewPerformanceHandler creates a new performance handler.
func NewPerformanceHandler(source PerformanceSource) *PerformanceHandler {
	return &PerformanceHandler{source: source}
}

// HandleGet handles GET /debug/performance requests.
func (h *PerformanceHandler) HandleGet(w http.ResponseWriter, _ *http.Request) {
	smp := h.source.Sampler()
	if smp == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", NewKind("api.get_performance", ErrUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, smp.Snapshot())
}

// HandleReset handles POST /debug/performance/reset requests and returns the
// metrics after the reset.
func (h *PerformanceHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset_performance"
	if err := h.source.ResetPerformance(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	smp := h.source.Sampler()
	if smp == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", NewKind(op, errors.New("sampler missing")))
		return
	}
	writeJSON(w, http.StatusOK, smp.Snapshot())
}
