package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/planr/internal/drag"
	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/store"
	"github.com/sadopc/planr/internal/timerange"
)

// viewState represents the currently active view.
type viewState int

const (
	viewCalendar viewState = iota
	viewAgenda
	viewReports
	viewSettings
)

var viewNames = []string{"Calendar", "Agenda", "Reports", "Settings"}

// --- Messages ---

// eventsChangedMsg asks every view to reload the planner snapshot.
type eventsChangedMsg struct{}

type dragOutcomeMsg drag.Outcome

type prefsChangedMsg struct {
	prefs store.Preferences
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatMinutes(mins int) string {
	return fmt.Sprintf("%dh%02dm", mins/60, mins%60)
}

func formatHours(mins int) string {
	return fmt.Sprintf("%.1fh", float64(mins)/60)
}

func formatTime(t timerange.Time, use12h bool) string {
	if use12h {
		return t.Format12()
	}
	return t.String()
}

func formatRange(r timerange.Range, use12h bool) string {
	return formatTime(r.Start, use12h) + "-" + formatTime(r.End, use12h)
}

// parseTimeInput accepts "HH:MM" or a 12-hour value such as "2:30pm".
func parseTimeInput(s string) (timerange.Time, error) {
	if t, err := timerange.Parse(s); err == nil {
		return t, nil
	}
	return timerange.Parse12(s)
}

func validateTimeInput(s string) error {
	_, err := parseTimeInput(s)
	return err
}

func validateDateInput(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := event.ParseDate(strings.TrimSpace(s))
	return err
}

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("title is required")
	}
	return nil
}

// describeError renders planner errors for the status line.
func describeError(err error) string {
	var ve *event.ValidationError
	var se *event.StorageError
	switch {
	case errors.As(err, &ve):
		return "Rejected: " + ve.Error()
	case errors.As(err, &se):
		return "Saved in memory only: " + se.Error()
	case errors.Is(err, event.ErrNotFound):
		return "Event no longer exists"
	}
	return "Error: " + err.Error()
}

func firstOfMonth(d event.Date) event.Date {
	return event.Date{Year: d.Year, Month: d.Month, Day: 1}
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w == 1 {
		return "…"
	}
	return string(r[:w-1]) + "…"
}
