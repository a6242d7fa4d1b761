package service

import "errors"

var (
	// ErrNotStarted is returned by operations that need Init to have run.
	ErrNotStarted = errors.New("service not started")

	// ErrDebugNameTaken is returned when an expvar name is already published.
	ErrDebugNameTaken = errors.New("debug variable already published")
)
