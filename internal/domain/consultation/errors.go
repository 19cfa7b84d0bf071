package consultation

import "errors"

var (
	ErrNotFound             = errors.New("consultation not found")
	ErrAlreadyExists        = errors.New("consultation with this id already exists")
	ErrInvalidID            = errors.New("consultation id must be a 24-character hexadecimal string")
	ErrInvalidConditionType = errors.New("condition type must be one of normal, CriticalCare, MLC")
	ErrInvalidStatus        = errors.New("status must be one of completed, pending, cancelled")
	ErrInvalidDateRange     = errors.New("dateFrom must not be after dateTo")
	ErrInvalidDateFilter    = errors.New("date filters must be formatted YYYY-MM-DD")

	// ErrEmptyScope is returned by BuildPredicate for a non-admin caller with
	// no location. Callers turn it into an empty result, never an error response.
	ErrEmptyScope = errors.New("caller has no location scope")
)
