package event

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an identity is absent from a collection.
var ErrNotFound = errors.New("event not found")

// Reason classifies a rejected placement or record.
type Reason int

const (
	PastDate Reason = iota + 1
	HorizonExceeded
	TimeConflict
	InvalidTimeRange
	InvalidDateRange
	EmptyTitle
)

var reasonNames = map[Reason]string{
	PastDate:         "past_date",
	HorizonExceeded:  "horizon_exceeded",
	TimeConflict:     "time_conflict",
	InvalidTimeRange: "invalid_time_range",
	InvalidDateRange: "invalid_date_range",
	EmptyTitle:       "empty_title",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Sentinels for errors.Is; they compare by reason only.
var (
	ErrPastDate         = &ValidationError{Reason: PastDate}
	ErrHorizonExceeded  = &ValidationError{Reason: HorizonExceeded}
	ErrTimeConflict     = &ValidationError{Reason: TimeConflict}
	ErrInvalidTimeRange = &ValidationError{Reason: InvalidTimeRange}
	ErrInvalidDateRange = &ValidationError{Reason: InvalidDateRange}
	ErrEmptyTitle       = &ValidationError{Reason: EmptyTitle}
)

// ValidationError blocks an attempted change. It is always recoverable.
type ValidationError struct {
	Reason Reason
	// Conflict and Day are set for TimeConflict.
	Conflict *Event
	Day      Date
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case PastDate:
		return "cannot schedule events in the past"
	case HorizonExceeded:
		return "events must start within a year and last at most a year"
	case TimeConflict:
		if e.Conflict != nil {
			return fmt.Sprintf("time conflict with %q (%s) on %s",
				e.Conflict.Title, e.Conflict.Times, e.Day)
		}
		return "time conflict"
	case InvalidTimeRange:
		return "end time must be after start time"
	case InvalidDateRange:
		return "end date must not be before start date"
	case EmptyTitle:
		return "title is required"
	}
	return e.Reason.String()
}

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

// ReasonOf extracts the validation reason from err, or 0.
func ReasonOf(err error) Reason {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return 0
}

// StorageError wraps a failed persistence read or write. The in-memory
// change that triggered a failed write is kept.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
