// Package event holds the event record, the collection snapshot type and
// the pure create/update/delete transformations over it.
package event

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/sadopc/planr/internal/timerange"
)

// Event is a titled, categorized activity occupying a date range and a
// daily time-of-day range.
type Event struct {
	ID          string
	Title       string
	Description string
	Dates       DateRange
	Times       timerange.Range
	Category    Category
}

func (e Event) IsMultiDay() bool { return e.Dates.Start != e.Dates.End }

func (e Event) Occupies(d Date) bool { return e.Dates.Contains(d) }

// Collection is one snapshot of all events. Order is stable across
// snapshots but carries no meaning.
type Collection []Event

func (c Collection) Index(id string) int {
	return slices.IndexFunc(c, func(e Event) bool { return e.ID == id })
}

func (c Collection) Find(id string) (Event, bool) {
	if i := c.Index(id); i >= 0 {
		return c[i], true
	}
	return Event{}, false
}

func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	return slices.Clone(c)
}

func (c Collection) Equal(o Collection) bool {
	return slices.Equal(c, o)
}

// On returns the events occupying d ordered by start time.
func (c Collection) On(d Date) []Event {
	var out []Event
	for _, e := range c {
		if e.Occupies(d) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b Event) int {
		return a.Times.Start.Compare(b.Times.Start)
	})
	return out
}

// Draft carries user input for a new event. Zero fields take defaults.
type Draft struct {
	Title       string
	Description string
	Category    Category
	Dates       DateRange
	Times       timerange.Range
}

var defaultTimes = timerange.Range{Start: 9 * 60, End: 10 * 60}

// NewID returns a fresh random identity.
func NewID() string { return uuid.NewString() }

// Create builds a new event from d for the requested day.
func Create(d Draft, day Date, id string) (Event, error) {
	e := Event{
		ID:          id,
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Category:    d.Category.OrDefault(),
		Dates:       d.Dates,
		Times:       d.Times,
	}
	if e.Dates.Start.IsZero() {
		e.Dates = SingleDay(day)
	} else if e.Dates.End.IsZero() {
		e.Dates.End = e.Dates.Start
	}
	if e.Times == (timerange.Range{}) {
		e.Times = defaultTimes
	}
	if err := Validate(e); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Validate runs the record-level checks that do not depend on other events.
func Validate(e Event) error {
	if strings.TrimSpace(e.Title) == "" {
		return &ValidationError{Reason: EmptyTitle}
	}
	if !e.Times.Valid() {
		return &ValidationError{Reason: InvalidTimeRange}
	}
	if !e.Dates.Valid() {
		return &ValidationError{Reason: InvalidDateRange}
	}
	return nil
}

// Insert returns c with e appended.
func Insert(c Collection, e Event) Collection {
	out := make(Collection, 0, len(c)+1)
	out = append(out, c...)
	return append(out, e)
}

// Update returns c with the event sharing e's identity replaced.
func Update(c Collection, e Event) (Collection, error) {
	i := c.Index(e.ID)
	if i < 0 {
		return c, ErrNotFound
	}
	out := c.Clone()
	out[i] = e
	return out, nil
}

// Delete returns c without the event with identity id. Deleting an absent
// identity returns an equal collection.
func Delete(c Collection, id string) Collection {
	out := make(Collection, 0, len(c))
	for _, e := range c {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}
