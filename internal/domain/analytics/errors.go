package analytics

import "errors"

// ErrInvalidInput is returned for empty or malformed distribution data. It is
// the only error an analysis reports besides cancellation.
var ErrInvalidInput = errors.New("invalid or empty distribution data")
