package booking

import "errors"

var (
	// ErrInvalidTransition is returned when the requested status is not
	// reachable from the booking's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidStatus is returned for a status value outside the known set.
	ErrInvalidStatus = errors.New("unknown booking status")
	// ErrInvalidRange is returned for malformed or inverted dates and times.
	ErrInvalidRange = errors.New("invalid range")
	// ErrConcurrentUpdate is returned when the booking kept changing under us
	// for every allowed attempt.
	ErrConcurrentUpdate = errors.New("booking changed concurrently, retry")
	// ErrNotifier wraps a failure of the completion side effect. It is only
	// ever reported as a warning next to a committed status change.
	ErrNotifier = errors.New("completion notification failed")
)
