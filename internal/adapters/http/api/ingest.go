package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/okian/tapdiag/internal/domain/eventlog"
	"github.com/okian/tapdiag/internal/domain/faults"
	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/pkg/logger"
)

// EventIngester records client-submitted events. A non-empty eventID makes
// the submission idempotent.
type EventIngester interface {
	Ingest(ctx context.Context, eventID string, record func(ctx context.Context, log *eventlog.EventLog) model.Event) (model.Event, faults.Status, error)
}

var (
	errMissingMessage  = errors.New("message is required")
	errMissingType     = errors.New("objectType is required")
	errMissingObjectID = errors.New("objectId is required")
	errMissingAction   = errors.New("action is required")
	errInvalidLatency  = errors.New("latencyMs must be a non-negative number")
	errInvalidCount    = errors.New("count must not be negative")
	errInvalidSide     = errors.New(`playerSide must be "left" or "right"`)
)

// ingestResponse acknowledges a submission. Event is set when it was recorded.
type ingestResponse struct {
	Status    string       `json:"status"`
	Duplicate bool         `json:"duplicate"`
	Event     *model.Event `json:"event,omitempty"`
}

// eventRequest is the body of POST /debug/events.
type eventRequest struct {
	EventID    string         `json:"eventId,omitempty"`
	Type       string         `json:"type,omitempty"`
	Category   string         `json:"category,omitempty"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	StackTrace string         `json:"stackTrace,omitempty"`
}

func (r *eventRequest) event() (model.Event, error) {
	if strings.TrimSpace(r.Message) == "" {
		return model.Event{}, errMissingMessage
	}
	kind, err := model.ParseKind(r.Type)
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		Kind:       kind,
		Category:   r.Category,
		Message:    r.Message,
		Data:       r.Data,
		StackTrace: r.StackTrace,
	}, nil
}

// spawnRequest is the body of POST /track/spawn.
type spawnRequest struct {
	EventID    string  `json:"eventId,omitempty"`
	ObjectType string  `json:"objectType"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Count      int     `json:"count,omitempty"`
}

func (r *spawnRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ObjectType) == "":
		return errMissingType
	case r.Count < 0:
		return errInvalidCount
	}
	return nil
}

// tapRequest is the body of POST /track/tap.
type tapRequest struct {
	EventID    string  `json:"eventId,omitempty"`
	ObjectID   string  `json:"objectId"`
	Correct    bool    `json:"correct"`
	PlayerSide string  `json:"playerSide"`
	LatencyMs  float64 `json:"latencyMs"`
}

func (r *tapRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ObjectID) == "":
		return errMissingObjectID
	case r.LatencyMs < 0 || math.IsNaN(r.LatencyMs) || math.IsInf(r.LatencyMs, 0):
		return errInvalidLatency
	}
	switch model.PlayerSide(r.PlayerSide) {
	case model.PlayerLeft, model.PlayerRight:
		return nil
	}
	return errInvalidSide
}

func (r *tapRequest) latency() time.Duration {
	return time.Duration(r.LatencyMs * float64(time.Millisecond))
}

// stateRequest is the body of POST /track/state.
type stateRequest struct {
	EventID  string `json:"eventId,omitempty"`
	OldState any    `json:"oldState"`
	NewState any    `json:"newState"`
	Action   string `json:"action"`
}

func (r *stateRequest) validate() error {
	if strings.TrimSpace(r.Action) == "" {
		return errMissingAction
	}
	return nil
}

// IngestHandler records events and tracker notifications sent by the game.
type IngestHandler struct {
	ingester EventIngester
	logger   logger.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(ingester EventIngester, log logger.Logger) *IngestHandler {
	return &IngestHandler{ingester: ingester, logger: log}
}

// HandlePostEvent handles POST /debug/events requests.
func (h *IngestHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := req.event()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.ingest(w, r, op, req.EventID, func(ctx context.Context, log *eventlog.EventLog) model.Event {
		return log.Record(ctx, e)
	})
}

// HandleSpawn handles POST /track/spawn requests.
func (h *IngestHandler) HandleSpawn(w http.ResponseWriter, r *http.Request) {
	const op = "api.track_spawn"
	var req spawnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	spawn := eventlog.Spawn{ObjectType: req.ObjectType, X: req.X, Y: req.Y, Count: req.Count}
	h.ingest(w, r, op, req.EventID, func(ctx context.Context, log *eventlog.EventLog) model.Event {
		return log.TrackObjectSpawn(ctx, spawn)
	})
}

// HandleTap handles POST /track/tap requests.
func (h *IngestHandler) HandleTap(w http.ResponseWriter, r *http.Request) {
	const op = "api.track_tap"
	var req tapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.ingest(w, r, op, req.EventID, func(ctx context.Context, log *eventlog.EventLog) model.Event {
		return log.TrackObjectTap(ctx, req.ObjectID, req.Correct, model.PlayerSide(req.PlayerSide), req.latency())
	})
}

// HandleState handles POST /track/state requests.
func (h *IngestHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	const op = "api.track_state"
	var req stateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.ingest(w, r, op, req.EventID, func(ctx context.Context, log *eventlog.EventLog) model.Event {
		return log.TrackGameStateChange(ctx, req.OldState, req.NewState, req.Action)
	})
}

func (h *IngestHandler) ingest(w http.ResponseWriter, r *http.Request, op, eventID string, record func(context.Context, *eventlog.EventLog) model.Event) {
	e, status, err := h.ingester.Ingest(r.Context(), eventID, record)
	if err != nil {
		h.logger.Warn(r.Context(), "event ingest failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}

	switch status {
	case faults.StatusDuplicate:
		writeJSON(w, http.StatusOK, ingestResponse{Status: status.String(), Duplicate: true})
	case faults.StatusAccepted:
		writeJSON(w, http.StatusCreated, ingestResponse{Status: status.String(), Event: &e})
	default:
		writeError(w, http.StatusInternalServerError, "unexpected_status", fmt.Errorf("%s: status %s", op, status))
	}
}
