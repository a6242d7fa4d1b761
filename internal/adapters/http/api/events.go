package api

import (
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/okian/tapdiag/internal/domain/eventlog"
	"github.com/okian/tapdiag/internal/domain/model"
)

// eventsResponse is the body of GET /debug/events.
type eventsResponse struct {
	Events   []model.Event `json:"events"`
	Count    int           `json:"count"`
	Capacity int           `json:"capacity"`
	LastSeq  uint64        `json:"lastSeq"`
}

// EventsHandler serves the event log.
type EventsHandler struct {
	source EventSource

	schemaOnce sync.Once
	schema     *jsonschema.Schema
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(source EventSource) *EventsHandler {
	return &EventsHandler{source: source}
}

func (h *EventsHandler) log(w http.ResponseWriter, op string) *eventlog.EventLog {
	log := h.source.EventLog()
	if log == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", NewKind(op, ErrUnavailable))
	}
	return log
}

// HandleList handles GET /debug/events?type=&category=&limit= requests.
// Events are returned newest first.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	log := h.log(w, op)
	if log == nil {
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	events := log.List(r.Context(), f)
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Events:   events,
		Count:    len(events),
		Capacity: log.Cap(),
		LastSeq:  log.LastSeq(),
	})
}

// HandleClear handles DELETE /debug/events requests.
func (h *EventsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	log := h.log(w, "api.clear_events")
	if log == nil {
		return
	}
	log.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// HandleExport handles GET /debug/events/export requests. The body is the
// pretty-printed event array offered as a file download.
func (h *EventsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_events"
	log := h.log(w, op)
	if log == nil {
		return
	}
	body, err := log.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export_failed", fmt.Errorf("%s: %w", op, err))
		return
	}

	name := fmt.Sprintf("game-events-%d.json", time.Now().UnixMilli())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// HandleSchema handles GET /debug/events/schema requests with the JSON
// Schema of a single exported event.
func (h *EventsHandler) HandleSchema(w http.ResponseWriter, _ *http.Request) {
	h.schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{DoNotReference: true}
		s := reflector.ReflectFromType(reflect.TypeOf(model.Event{}))
		s.Title = "Diagnostic Event"
		s.Description = "One entry of the event log export array."
		h.schema = s
	})
	writeJSON(w, http.StatusOK, h.schema)
}
