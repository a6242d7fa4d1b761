package eventlog

import "errors"

var (
	// ErrExport is returned when the buffer cannot be serialized.
	ErrExport = errors.New("eventlog: export failed")

	// ErrMalformedExport is returned by ParseExport for input that is not a
	// JSON array of events.
	ErrMalformedExport = errors.New("eventlog: malformed export")
)
