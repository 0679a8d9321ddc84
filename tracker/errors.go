package tracker

import "errors"

// Sentinel errors. Callers match with errors.Is; the HTTP layer maps them
// onto status codes.
var (
	// ErrNotFound is returned when an item, user or watch does not exist.
	ErrNotFound = errors.New("tracker: not found")

	// ErrInvalidInput is returned for malformed or missing request fields.
	ErrInvalidInput = errors.New("tracker: invalid input")

	// ErrFetchUnavailable wraps storefront fetch failures. The stored item
	// state is left untouched when this is returned.
	ErrFetchUnavailable = errors.New("tracker: fetch unavailable")

	// ErrNotifyFailed wraps delivery failures. The watch is not stamped, so
	// the notification is retried on the next run.
	ErrNotifyFailed = errors.New("tracker: notify failed")

	// ErrRunInProgress is returned when a manual run is requested while a
	// batch run is already executing.
	ErrRunInProgress = errors.New("tracker: run already in progress")
)
