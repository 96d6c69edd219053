package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/store"
)

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	prefs      store.Preferences
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	weekStart       *string
	defaultCategory *string
	defaultStart    *string
	defaultDuration *string
	timeFormat      *string
}

func newSettingsModel(s *store.Store, prefs store.Preferences) settingsModel {
	ws, dc, ds, dd, tf := "", "", "", "", ""
	return settingsModel{
		store:           s,
		prefs:           prefs,
		weekStart:       &ws,
		defaultCategory: &dc,
		defaultStart:    &ds,
		defaultDuration: &dd,
		timeFormat:      &tf,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	prefs store.Preferences
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		if s.store == nil {
			return settingsDataMsg{prefs: s.prefs}
		}
		prefs, _ := s.store.Preferences()
		return settingsDataMsg{prefs: prefs}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(settingsDataMsg); ok {
		s.prefs = msg.prefs
		return s, nil
	}

	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.weekStart = strings.ToLower(s.prefs.WeekStart.String())
	*s.defaultCategory = s.prefs.DefaultCategory.OrDefault().String()
	*s.defaultStart = s.prefs.DefaultStart.String()
	*s.defaultDuration = strconv.Itoa(s.prefs.DefaultDuration)
	*s.timeFormat = "24h"
	if s.prefs.Use12Hour {
		*s.timeFormat = "12h"
	}

	catOptions := make([]huh.Option[string], 0, len(event.Categories()))
	for _, cat := range event.Categories() {
		catOptions = append(catOptions, huh.NewOption(cat.Label(), cat.String()))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Week starts on").
				Options(
					huh.NewOption("Monday", "monday"),
					huh.NewOption("Sunday", "sunday"),
				).Value(s.weekStart),
			huh.NewSelect[string]().Title("Time format").
				Options(
					huh.NewOption("24-hour", "24h"),
					huh.NewOption("12-hour", "12h"),
				).Value(s.timeFormat),
		).Title("Display"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Default category").Options(catOptions...).Value(s.defaultCategory),
			huh.NewInput().Title("Default start (HH:MM)").Value(s.defaultStart).Validate(validateTimeInput),
			huh.NewInput().Title("Default duration (min)").Value(s.defaultDuration).Validate(validateDuration),
		).Title("New events"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		s.prefs = s.formPreferences()
		return s, s.savePreferences(s.prefs)
	}

	return s, cmd
}

// formPreferences reads the form values over the current preferences.
func (s settingsModel) formPreferences() store.Preferences {
	p := s.prefs
	p.WeekStart = time.Monday
	if *s.weekStart == "sunday" {
		p.WeekStart = time.Sunday
	}
	if c, err := event.ParseCategory(*s.defaultCategory); err == nil {
		p.DefaultCategory = c
	}
	if t, err := parseTimeInput(*s.defaultStart); err == nil {
		p.DefaultStart = t
	}
	if n, err := strconv.Atoi(strings.TrimSpace(*s.defaultDuration)); err == nil && n > 0 {
		p.DefaultDuration = n
	}
	p.Use12Hour = *s.timeFormat == "12h"
	return p
}

func (s settingsModel) savePreferences(p store.Preferences) tea.Cmd {
	return func() tea.Msg {
		if s.store != nil {
			if err := s.store.SavePreferences(p); err != nil {
				return statusMsg{text: fmt.Sprintf("Settings error: %v", err), isError: true}
			}
		}
		return prefsChangedMsg{prefs: p}
	}
}

func validateDuration(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errors.New("enter a positive number of minutes")
	}
	if n >= 24*60 {
		return errors.New("must be shorter than a day")
	}
	return nil
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	times := s.prefs.DefaultTimes()
	format := "24-hour"
	if s.prefs.Use12Hour {
		format = "12-hour"
	}
	items := []struct{ label, value string }{
		{"Week starts on", s.prefs.WeekStart.String()},
		{"Time format", format},
		{"Default category", categoryDot(s.prefs.DefaultCategory) + " " + s.prefs.DefaultCategory.Label()},
		{"Default start", formatTime(s.prefs.DefaultStart, s.prefs.Use12Hour)},
		{"Default duration", fmt.Sprintf("%d min (ends %s)", s.prefs.DefaultDuration, formatTime(times.End, s.prefs.Use12Hour))},
	}

	rows := []string{titleStyle.Render("Settings"), ""}
	for _, it := range items {
		label := lipgloss.NewStyle().Width(24).Render(it.label)
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(it.value)))
	}
	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
