package api

import (
	"errors"
	"net/http"

	"github.com/okian/tapdiag/internal/domain/faults"
	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/pkg/logger"
)

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// FaultsHandler accepts fault reports from clients.
type FaultsHandler struct {
	reporter FaultReporter
	logger   logger.Logger
}

// NewFaultsHandler creates a new faults handler.
func NewFaultsHandler(reporter FaultReporter, log logger.Logger) *FaultsHandler {
	return &FaultsHandler{reporter: reporter, logger: log}
}

// HandlePostFault handles POST /faults requests.
func (h *FaultsHandler) HandlePostFault(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_fault"
	var f model.Fault
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	status, err := h.reporter.ReportFault(r.Context(), f)
	switch {
	case errors.Is(err, faults.ErrInvalidFault):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		h.logger.Warn(r.Context(), "fault report failed", logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}

	switch status {
	case faults.StatusDuplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: status.String(), Duplicate: true})
	case faults.StatusAccepted:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: status.String()})
	default:
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	}
}
