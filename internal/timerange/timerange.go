// Package timerange handles wall-clock times of day and the half-open
// ranges events occupy within a single day.
package timerange

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// Time is a wall-clock time of day in minutes since local midnight.
type Time int

// Range is the half-open interval [Start, End) within one day.
type Range struct {
	Start Time `json:"start"`
	End   Time `json:"end"`
}

// New builds a Time from an hour and minute. Out-of-range values are an error.
func New(hour, minute int) (Time, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day %02d:%02d out of range", hour, minute)
	}
	return Time(hour*60 + minute), nil
}

// Parse reads a 24-hour "HH:MM" value.
func Parse(s string) (Time, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 || !digits(hh) || !digits(mm) {
		return 0, fmt.Errorf("parse time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	return New(h, m)
}

// digits reports whether s is all ASCII digits. strconv.Atoi alone would
// accept a sign.
func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse12 reads a 12-hour value such as "9:30 AM" or "12:05pm".
func Parse12(s string) (Time, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	var pm bool
	switch {
	case strings.HasSuffix(v, "AM"):
		v = strings.TrimSpace(strings.TrimSuffix(v, "AM"))
	case strings.HasSuffix(v, "PM"):
		pm = true
		v = strings.TrimSpace(strings.TrimSuffix(v, "PM"))
	default:
		return 0, fmt.Errorf("parse 12-hour time %q: missing AM/PM", s)
	}
	t, err := Parse(v)
	if err != nil {
		return 0, fmt.Errorf("parse 12-hour time %q: %w", s, err)
	}
	h := t.Hour()
	if h < 1 || h > 12 {
		return 0, fmt.Errorf("parse 12-hour time %q: hour must be 1-12", s)
	}
	h %= 12
	if pm {
		h += 12
	}
	return New(h, t.Minute())
}

func (t Time) Hour() int   { return int(t) / 60 }
func (t Time) Minute() int { return int(t) % 60 }

// Minutes returns the number of minutes since midnight.
func (t Time) Minutes() int { return int(t) }

func (t Time) Valid() bool { return t >= 0 && t < minutesPerDay }

// Compare returns -1, 0 or +1.
func (t Time) Compare(u Time) int {
	switch {
	case t < u:
		return -1
	case t > u:
		return 1
	}
	return 0
}

func (t Time) Before(u Time) bool { return t < u }
func (t Time) After(u Time) bool  { return t > u }

// String formats as 24-hour "HH:MM".
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Format12 formats as "h:MM AM".
func (t Time) Format12() string {
	h := t.Hour()
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute(), suffix)
}

func (t Time) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Time) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Valid reports Start < End with both ends inside the day.
func (r Range) Valid() bool {
	return r.Start.Valid() && r.End.Valid() && r.Start < r.End
}

// Duration is the length of the range in minutes.
func (r Range) Duration() int {
	if r.End <= r.Start {
		return 0
	}
	return int(r.End - r.Start)
}

func (r Range) String() string {
	return r.Start.String() + "–" + r.End.String()
}

// Overlaps reports whether two half-open ranges intersect.
func Overlaps(a, b Range) bool {
	return a.Start < b.End && a.End > b.Start
}

// Overlaps is the method form of the package-level Overlaps.
func (r Range) Overlaps(o Range) bool { return Overlaps(r, o) }
