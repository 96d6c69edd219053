package tui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/planr/internal/drag"
	"github.com/sadopc/planr/internal/export"
	"github.com/sadopc/planr/internal/logging"
	"github.com/sadopc/planr/internal/planner"
	"github.com/sadopc/planr/internal/store"
)

// Options wires the App to the rest of planr.
type Options struct {
	Planner *planner.Planner
	Drag    *drag.Reconciler

	// Store persists preferences; without it they live for the session.
	Store *store.Store

	// Outcomes carries the reconciler's commit results into the event loop.
	Outcomes <-chan drag.Outcome

	ExportDir string
	Logger    *slog.Logger

	// Status is shown in the footer on start.
	Status string
}

// App is the root Bubble Tea model.
type App struct {
	planner   *planner.Planner
	drag      *drag.Reconciler
	outcomes  <-chan drag.Outcome
	exportDir string
	logger    *slog.Logger
	width     int
	height    int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	calendar calendarModel
	agenda   agendaModel
	reports  reportsModel
	settings settingsModel

	help        help.Model
	status      string
	statusError bool
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	logger := logging.For(opts.Logger, "tui")
	prefs := store.DefaultPreferences()
	if opts.Store != nil {
		p, err := opts.Store.Preferences()
		if err != nil {
			logger.Warn("load preferences failed", "err", err)
		}
		prefs = p
	}

	return App{
		planner:    opts.Planner,
		drag:       opts.Drag,
		outcomes:   opts.Outcomes,
		exportDir:  opts.ExportDir,
		logger:     logger,
		activeView: viewCalendar,
		calendar:   newCalendarModel(opts.Planner, opts.Drag, prefs),
		agenda:     newAgendaModel(opts.Planner, prefs),
		reports:    newReportsModel(opts.Planner, prefs),
		settings:   newSettingsModel(opts.Store, prefs),
		help:       h,
		status:     opts.Status,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.calendar.refresh(),
		a.agenda.Init(),
		waitForOutcome(a.outcomes),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForOutcome blocks on the next reconciler result. It is re-armed after
// every delivery.
func waitForOutcome(ch <-chan drag.Outcome) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		o, ok := <-ch
		if !ok {
			return nil
		}
		return dragOutcomeMsg(o)
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.calendar.setSize(a.width, contentHeight)
		a.agenda.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.reports.buildChart()
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// A child view capturing input (form, gesture) gets keys first.
		if a.isCapturing() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Undo):
			return a, a.undo()
		case key.Matches(msg, keys.Redo):
			return a, a.redo()
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			a.drag.Release()
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewCalendar
			return a, a.calendar.refresh()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewAgenda
			return a, a.agenda.loadData()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewReports
			return a, a.reports.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		var cmd tea.Cmd
		a.agenda, cmd = a.agenda.update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case dragOutcomeMsg:
		a.calendar = a.calendar.outcome(drag.Outcome(msg))
		a.setStatus(describeOutcome(drag.Outcome(msg)))
		return a, tea.Batch(waitForOutcome(a.outcomes), a.refreshAll())

	case eventsChangedMsg:
		return a, a.refreshAll()

	case prefsChangedMsg:
		a.calendar.prefs = msg.prefs
		a.agenda.prefs = msg.prefs
		a.reports.prefs = msg.prefs
		a.reports.buildChart()
		a.settings.prefs = msg.prefs
		a.status = "Settings saved"
		a.statusError = false
		return a, nil

	case statusMsg:
		a.status = msg.text
		a.statusError = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusError = false
		a.exportPicking = false
		return a, nil

	// Data messages always reach their view, whichever is active.
	case calendarDataMsg:
		a.calendar, _ = a.calendar.update(msg)
		return a, nil
	case agendaDataMsg:
		a.agenda, _ = a.agenda.update(msg)
		return a, nil
	case reportsDataMsg:
		a.reports, _ = a.reports.update(msg)
		return a, nil
	case settingsDataMsg:
		a.settings, _ = a.settings.update(msg)
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusError = isError
}

func describeOutcome(o drag.Outcome) (string, bool) {
	if o.Err != nil {
		return describeError(o.Err), true
	}
	verb := "Moved"
	if o.Gesture == drag.Resize {
		verb = "Resized"
	}
	return fmt.Sprintf("%s %q to %s", verb, o.Event.Title, o.Range), false
}

// undo first commits a drop still waiting out its delay, so the undo
// reverts it instead of racing it.
func (a App) undo() tea.Cmd {
	a.drag.Release()
	ok, err := a.planner.Undo()
	if !ok {
		return status("Nothing to undo")
	}
	return changed(err, "Undone")
}

func (a App) redo() tea.Cmd {
	a.drag.Release()
	ok, err := a.planner.Redo()
	if !ok {
		return status("Nothing to redo")
	}
	return changed(err, "Redone")
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewCalendar:
		a.calendar, cmd = a.calendar.update(msg)
	case viewAgenda:
		a.agenda, cmd = a.agenda.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isCapturing() bool {
	switch a.activeView {
	case viewCalendar:
		return a.calendar.capturing()
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshAll() tea.Cmd {
	return tea.Batch(a.calendar.refresh(), a.agenda.loadData(), a.reports.refresh())
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewCalendar:
		return a.calendar.refresh()
	case viewAgenda:
		return a.agenda.loadData()
	case viewReports:
		return a.reports.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewCalendar:
		content = a.calendar.view()
	case viewAgenda:
		content = a.agenda.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := max(1, a.height-lipgloss.Height(header)-lipgloss.Height(footer))

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("planr")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	km := keys
	km.Undo.SetEnabled(a.planner.CanUndo())
	km.Redo.SetEnabled(a.planner.CanRedo())
	helpView := a.help.View(km)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	pending := ""
	if p, ok := a.drag.Pending(); ok && p.Armed {
		pending = warningStyle.Render(" ● " + p.Gesture.String())
	}

	left := footerStyle.Render(helpView)
	right := pending + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range export.Formats() {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f.Label()))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(export.Formats())-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(export.Formats()[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(f export.Format) tea.Cmd {
	snapshot := a.planner.Snapshot()
	dir := a.exportDir
	logger := a.logger
	return func() tea.Msg {
		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		path := filepath.Join(dir, export.FileName(f, time.Now()))
		if err := export.ToFile(snapshot, f, path); err != nil {
			logger.Error("export failed", "format", string(f), "err", err)
			return statusMsg{text: fmt.Sprintf("%s error: %v", f.Label(), err), isError: true}
		}
		logger.Info("exported", "format", string(f), "path", path, "events", len(snapshot))
		return exportDoneMsg{path: path}
	}
}
