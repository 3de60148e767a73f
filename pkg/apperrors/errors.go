package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidRate       = errors.New("rate must be a non-negative integer")
	ErrIncompleteRates   = errors.New("every role must have a rate before saving")
	ErrInvalidDateRange  = errors.New("start and end must be YYYY-MM-DD dates with start not after end")
	ErrNoEntriesInRange  = errors.New("no time-log entries in the selected period")
	ErrRemoteUnavailable = errors.New("remote service unavailable, retry later")
	ErrProjectNotReady   = errors.New("board does not have a rate for every role")
)
