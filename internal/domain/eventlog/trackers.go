package eventlog

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/okian/tapdiag/internal/domain/model"
)

// Spawn describes one spawn notification. Count greater than zero marks a
// batch spawn.
type Spawn struct {
	ObjectType string
	X, Y       float64
	Count      int
}

// SetObserver replaces the rate observer. Passing nil detaches it.
func (l *EventLog) SetObserver(o RateObserver) {
	l.mu.Lock()
	l.observer = o
	l.mu.Unlock()
}

func (l *EventLog) rateObserver() RateObserver {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.observer
}

// TrackObjectSpawn records a spawn event and notifies the observer once,
// whether the spawn was a single object or a batch.
func (l *EventLog) TrackObjectSpawn(ctx context.Context, s Spawn) model.Event {
	e := model.Event{Kind: model.KindInfo, Category: model.CategoryGameObject}
	if s.Count > 0 {
		e.Message = "Objects batch spawned"
		e.Data = map[string]any{
			"objectType": s.ObjectType,
			"batchSize":  s.Count,
		}
	} else {
		e.Message = "Object spawned"
		e.Data = map[string]any{
			"objectType": s.ObjectType,
			"position":   map[string]any{"x": s.X, "y": s.Y},
		}
	}
	recorded := l.Record(ctx, e)

	if o := l.rateObserver(); o != nil {
		o.ObserveSpawn(ctx)
	}
	return recorded
}

// TrackObjectTap records a tap on a game object and forwards its latency.
func (l *EventLog) TrackObjectTap(ctx context.Context, objectID string, correct bool, side model.PlayerSide, latency time.Duration) model.Event {
	msg := "Incorrect tap"
	if correct {
		msg = "Correct tap"
	}
	recorded := l.Record(ctx, model.Event{
		Kind:     model.KindUserAction,
		Category: model.CategoryGameInteraction,
		Message:  msg,
		Data: map[string]any{
			"objectId":   objectID,
			"correct":    correct,
			"playerSide": string(side),
			"latency":    float64(latency) / float64(time.Millisecond),
		},
	})

	if o := l.rateObserver(); o != nil {
		o.ObserveTap(ctx, latency)
	}
	return recorded
}

// TrackGameStateChange records a transition between two game states.
func (l *EventLog) TrackGameStateChange(ctx context.Context, oldState, newState any, action string) model.Event {
	return l.Record(ctx, model.Event{
		Kind:     model.KindInfo,
		Category: model.CategoryGameState,
		Message:  "Game state changed: " + action,
		Data: map[string]any{
			"oldState": oldState,
			"newState": newState,
			"action":   action,
		},
	})
}

// TrackError records err together with the current goroutine's stack. A nil
// err is recorded as "unknown error".
func (l *EventLog) TrackError(ctx context.Context, err error, errContext string) model.Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return l.Record(ctx, model.Event{
		Kind:       model.KindError,
		Category:   model.CategoryGameLogic,
		Message:    msg,
		Data:       map[string]any{"context": errContext},
		StackTrace: string(debug.Stack()),
	})
}

// TrackWarning records a game logic warning.
func (l *EventLog) TrackWarning(ctx context.Context, message string, data map[string]any) model.Event {
	return l.Record(ctx, model.Event{
		Kind:     model.KindWarning,
		Category: model.CategoryGameLogic,
		Message:  message,
		Data:     data,
	})
}
