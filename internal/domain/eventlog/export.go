package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/tapdiag/internal/domain/model"
)

// Export serializes the whole buffer, oldest first, as indented JSON. An empty
// log exports as "[]".
func (l *EventLog) Export(ctx context.Context) ([]byte, error) {
	events := l.Snapshot(ctx)
	out, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	return out, nil
}

// ParseExport reads back the output of Export.
func ParseExport(raw []byte) ([]model.Event, error) {
	var events []model.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedExport, err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}
