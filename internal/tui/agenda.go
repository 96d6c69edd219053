package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/planner"
	"github.com/sadopc/planr/internal/store"
)

const upcomingDays = 14

type agendaModel struct {
	planner *planner.Planner
	prefs   store.Preferences
	width   int
	height  int

	today  event.Date
	events event.Collection
	past   int
	future int
}

func newAgendaModel(p *planner.Planner, prefs store.Preferences) agendaModel {
	return agendaModel{planner: p, prefs: prefs, today: p.Today()}
}

func (a agendaModel) Init() tea.Cmd {
	return a.loadData()
}

func (a *agendaModel) setSize(w, h int) {
	a.width = w
	a.height = h
}

type agendaDataMsg struct {
	today  event.Date
	events event.Collection
	past   int
	future int
}

func (a agendaModel) loadData() tea.Cmd {
	return func() tea.Msg {
		past, future := a.planner.History()
		return agendaDataMsg{
			today:  a.planner.Today(),
			events: a.planner.Snapshot(),
			past:   past,
			future: future,
		}
	}
}

func (a agendaModel) update(msg tea.Msg) (agendaModel, tea.Cmd) {
	switch msg := msg.(type) {
	case agendaDataMsg:
		a.today = msg.today
		a.events = msg.events
		a.past = msg.past
		a.future = msg.future
		return a, nil

	case tickMsg:
		// The date may have rolled over.
		if a.planner.Today() != a.today {
			return a, a.loadData()
		}
	}
	return a, nil
}

// bookedMinutes sums the daily time ranges of evs.
func bookedMinutes(evs []event.Event) int {
	total := 0
	for _, e := range evs {
		total += e.Times.Duration()
	}
	return total
}

func (a agendaModel) view() string {
	if a.width < 20 {
		return "Terminal too small"
	}

	contentWidth := a.width - 4

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderTodayPanel(contentWidth),
		a.renderUpcomingPanel(contentWidth),
		a.renderHistoryPanel(contentWidth),
	)
}

func (a agendaModel) renderTodayPanel(w int) string {
	evs := a.events.On(a.today)
	title := titleStyle.Render("Today")
	date := mutedStyle.Render(a.today.Time().Format("Mon Jan 2, 2006"))
	total := highlightStyle.Render(formatMinutes(bookedMinutes(evs)))
	header := fmt.Sprintf("%s  %s  %s booked", title, date, total)

	if len(evs) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			header,
			mutedStyle.Render("Nothing scheduled today"),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{header}
	for _, e := range evs {
		rows = append(rows, fmt.Sprintf("  %s %s  %-24s %s",
			categoryDot(e.Category),
			formatRange(e.Times, a.prefs.Use12Hour),
			truncate(e.Title, 24),
			mutedStyle.Render(e.Category.Label()),
		))
	}
	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (a agendaModel) renderUpcomingPanel(w int) string {
	title := titleStyle.Render(fmt.Sprintf("Next %d days", upcomingDays))

	var rows []string
	rows = append(rows, title)
	window := event.DateRange{Start: a.today.AddDays(1), End: a.today.AddDays(upcomingDays)}
	for d := range window.Days() {
		evs := a.events.On(d)
		if len(evs) == 0 {
			continue
		}
		rows = append(rows, highlightStyle.Render("  "+d.Time().Format("Mon Jan 2")))
		for _, e := range evs {
			line := fmt.Sprintf("    %s %s  %s", categoryDot(e.Category),
				formatRange(e.Times, a.prefs.Use12Hour), truncate(e.Title, max(10, w-30)))
			if e.IsMultiDay() && d != e.Dates.Start {
				line += mutedStyle.Render(" (cont.)")
			}
			rows = append(rows, line)
		}
	}
	if len(rows) == 1 {
		rows = append(rows, mutedStyle.Render("No upcoming events"))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (a agendaModel) renderHistoryPanel(w int) string {
	title := titleStyle.Render("History")
	undo := mutedStyle.Render("nothing to undo")
	if a.past > 0 {
		undo = successStyle.Render(fmt.Sprintf("%d undoable", a.past))
	}
	redo := mutedStyle.Render("nothing to redo")
	if a.future > 0 {
		redo = warningStyle.Render(fmt.Sprintf("%d redoable", a.future))
	}
	line := fmt.Sprintf("%s  %s  %s  %s",
		title, undo, redo, mutedStyle.Render(fmt.Sprintf("%d events", len(a.events))))
	return panelStyle.Width(w).Render(line)
}
