// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when a kind string does not name a Kind.
var ErrUnknownKind = errors.New("unknown event kind")

// Kind classifies an Event.
type Kind string

// Event kinds.
const (
	KindError       Kind = "error"
	KindWarning     Kind = "warning"
	KindInfo        Kind = "info"
	KindPerformance Kind = "performance"
	KindUserAction  Kind = "user_action"
)

// Kinds lists every valid Kind.
func Kinds() []Kind {
	return []Kind{KindError, KindWarning, KindInfo, KindPerformance, KindUserAction}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindError, KindWarning, KindInfo, KindPerformance, KindUserAction:
		return true
	}
	return false
}

// ParseKind converts s into a Kind. The empty string yields the empty Kind,
// which filters treat as "any".
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" || k.Valid() {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Well-known categories.
const (
	CategoryGeneral         = "general"
	CategoryGameObject      = "game_object"
	CategoryGameInteraction = "game_interaction"
	CategoryGameState       = "game_state"
	CategoryGameLogic       = "game_logic"
	CategoryPerformance     = "performance"
	CategoryRuntime         = "runtime"
)

// Environment is the ambient context captured when an event is recorded.
type Environment struct {
	UserAgent string `json:"userAgent,omitempty"`
	URL       string `json:"url,omitempty"`
	Host      string `json:"host,omitempty"`
}

// Event is a diagnostic record. It is immutable once recorded by the event log.
type Event struct {
	ID         string         `json:"id"`
	Seq        uint64         `json:"seq"`
	Timestamp  int64          `json:"timestamp"` // ms since epoch
	Kind       Kind           `json:"type"`
	Category   string         `json:"category"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	StackTrace string         `json:"stackTrace,omitempty"`

	*Environment
}

// Fault is a runtime failure observed by the host before it is recorded.
type Fault struct {
	ReportID    string         `json:"report_id,omitempty"` // client idempotency key
	Category    string         `json:"category,omitempty"`
	Message     string         `json:"message"`
	StackTrace  string         `json:"stack_trace,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Environment *Environment   `json:"environment,omitempty"`
}

// Event converts the fault into an error event ready for recording.
func (f Fault) Event() Event {
	category := f.Category
	if category == "" {
		category = CategoryRuntime
	}
	return Event{
		Kind:        KindError,
		Category:    category,
		Message:     f.Message,
		Data:        f.Data,
		StackTrace:  f.StackTrace,
		Environment: f.Environment,
	}
}

// PlayerSide identifies which half of the screen a tap came from.
type PlayerSide string

// Player sides.
const (
	PlayerLeft  PlayerSide = "left"
	PlayerRight PlayerSide = "right"
)

// PerformanceMetrics is a point-in-time copy of the sampler's derived metrics.
type PerformanceMetrics struct {
	FrameRate       float64 `json:"frameRate"`
	ObjectSpawnRate float64 `json:"objectSpawnRate"`
	TouchLatency    float64 `json:"touchLatency"` // ms, last observed tap
	MemoryUsage     uint64  `json:"memoryUsage,omitempty"`
}
