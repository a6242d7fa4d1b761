package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/pkg/logger"
	"github.com/okian/tapdiag/pkg/metrics"
)

const writeWait = 5 * time.Second

// Stream message types.
const (
	streamEvent       = "event"
	streamPerformance = "performance"
)

// StreamMessage is one frame pushed to event stream clients.
type StreamMessage struct {
	Type        string                    `json:"type"`
	Event       *model.Event              `json:"event,omitempty"`
	Performance *model.PerformanceMetrics `json:"performance,omitempty"`
}

// StreamHandler pushes new events and periodic performance snapshots over a
// websocket. Clients only read; anything they send is discarded.
type StreamHandler struct {
	events   EventSource
	perf     PerformanceSource
	interval time.Duration
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewStreamHandler creates a stream handler polling every interval.
func NewStreamHandler(events EventSource, perf PerformanceSource, interval time.Duration, log logger.Logger) *StreamHandler {
	return &StreamHandler{
		events:   events,
		perf:     perf,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log,
	}
}

// HandleStream handles GET /debug/events/stream?since= requests. Without
// since, only events recorded after the connection opens are sent.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream_events"
	log := h.events.EventLog()
	smp := h.perf.Sampler()
	if log == nil || smp == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", NewKind(op, ErrUnavailable))
		return
	}
	since, ok, err := parseSince(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if !ok {
		since = log.LastSeq()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "stream upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	metrics.UpdateStreamClients(1)
	defer metrics.UpdateStreamClients(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	last := since
	for {
		for _, e := range log.Since(ctx, last) {
			if !h.send(conn, StreamMessage{Type: streamEvent, Event: &e}) {
				return
			}
			last = e.Seq
		}
		snap := smp.Snapshot()
		if !h.send(conn, StreamMessage{Type: streamPerformance, Performance: &snap}) {
			return
		}

		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
		}
	}
}

func (h *StreamHandler) send(conn *websocket.Conn, msg StreamMessage) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug(context.Background(), "stream client gone", logger.Error(err))
		return false
	}
	return true
}
