package analyzecli

import "errors"

var (
	// ErrUsage is returned for invalid flag combinations.
	ErrUsage = errors.New("usage error")

	// ErrDataset is returned when the dataset file cannot be read or parsed.
	ErrDataset = errors.New("dataset error")

	// ErrRemote is returned when the server rejects or fails the analysis.
	ErrRemote = errors.New("remote analysis failed")
)
