// Package conflict decides whether an event may occupy a proposed date range
// given the rest of the collection and the current day.
package conflict

import (
	"github.com/jonboulle/clockwork"

	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/timerange"
)

const (
	// HorizonYears is how far ahead an event may start.
	HorizonYears = 1
	// MaxSpanYears bounds how far an event's end may lie past its start.
	MaxSpanYears = 1
)

// Validator checks placements against the clock's current day.
type Validator struct {
	clock clockwork.Clock
}

func New(clock clockwork.Clock) *Validator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Validator{clock: clock}
}

// Today returns the current local calendar day.
func (v *Validator) Today() event.Date {
	return event.Today(v.clock.Now())
}

// Conflict is one overlapping event on one shared day.
type Conflict struct {
	Day   event.Date
	Other event.Event
}

// Check returns nil when candidate may occupy proposed, or a
// *event.ValidationError naming the first problem found. Days are scanned in
// ascending order and the first overlapping event on the first conflicting
// day is reported.
func (v *Validator) Check(candidate event.Event, proposed event.DateRange, c event.Collection) error {
	if err := v.checkWindow(proposed); err != nil {
		return err
	}
	for d := range proposed.Days() {
		if other, ok := firstOverlap(candidate, d, c); ok {
			return &event.ValidationError{Reason: event.TimeConflict, Conflict: &other, Day: d}
		}
	}
	return nil
}

// Conflicts lists every overlapping event on every day of proposed. It skips
// the past/horizon rules.
func (v *Validator) Conflicts(candidate event.Event, proposed event.DateRange, c event.Collection) []Conflict {
	var out []Conflict
	for d := range proposed.Days() {
		for _, other := range c {
			if overlapsOn(candidate, other, d) {
				out = append(out, Conflict{Day: d, Other: other})
			}
		}
	}
	return out
}

func (v *Validator) checkWindow(proposed event.DateRange) error {
	if !proposed.Valid() {
		return &event.ValidationError{Reason: event.InvalidDateRange}
	}
	today := v.Today()
	if proposed.Start.Before(today) {
		return &event.ValidationError{Reason: event.PastDate}
	}
	if proposed.Start.After(today.AddYears(HorizonYears)) {
		return &event.ValidationError{Reason: event.HorizonExceeded}
	}
	if proposed.End.After(proposed.Start.AddYears(MaxSpanYears)) {
		return &event.ValidationError{Reason: event.HorizonExceeded}
	}
	return nil
}

func firstOverlap(candidate event.Event, d event.Date, c event.Collection) (event.Event, bool) {
	for _, other := range c {
		if overlapsOn(candidate, other, d) {
			return other, true
		}
	}
	return event.Event{}, false
}

func overlapsOn(candidate, other event.Event, d event.Date) bool {
	return other.ID != candidate.ID &&
		other.Occupies(d) &&
		timerange.Overlaps(candidate.Times, other.Times)
}
