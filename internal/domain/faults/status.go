package faults

import "errors"

// ErrInvalidFault is returned for a fault report that cannot be recorded.
var ErrInvalidFault = errors.New("invalid fault")

// Status is the outcome of a client submission, a fault report or an
// ingested event.
type Status int

const (
	// StatusAccepted means the submission was queued or recorded.
	StatusAccepted Status = iota
	// StatusDuplicate means a submission with the same ID was already taken.
	StatusDuplicate
	// StatusRejected means the queue could not take the fault.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusDuplicate:
		return "duplicate"
	default:
		return "rejected"
	}
}
