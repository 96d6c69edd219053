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

	"github.com/sadopc/planr/internal/drag"
	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/planner"
	"github.com/sadopc/planr/internal/store"
	"github.com/sadopc/planr/internal/timerange"
)

type calendarMode int

const (
	modeBrowse calendarMode = iota
	modeMove
	modeResize
)

type calendarModel struct {
	planner *planner.Planner
	drag    *drag.Reconciler
	prefs   store.Preferences
	width   int
	height  int

	today    event.Date
	month    event.Date // first day of the displayed month
	cursor   event.Date
	events   event.Collection
	selected int // index into the cursor day's events

	mode      calendarMode
	gestureID string
	edge      drag.Edge
	pixels    int // cumulative resize delta of the current gesture

	formActive bool
	form       *huh.Form
	editingID  string // empty while creating

	// Form field pointers (survive value copies)
	formTitle     *string
	formDesc      *string
	formCategory  *string
	formStartDate *string
	formEndDate   *string
	formStartTime *string
	formEndTime   *string
}

func newCalendarModel(p *planner.Planner, r *drag.Reconciler, prefs store.Preferences) calendarModel {
	title, desc, cat, sd, ed, st, et := "", "", "", "", "", "", ""
	today := p.Today()
	return calendarModel{
		planner:       p,
		drag:          r,
		prefs:         prefs,
		today:         today,
		month:         firstOfMonth(today),
		cursor:        today,
		events:        p.Snapshot(),
		formTitle:     &title,
		formDesc:      &desc,
		formCategory:  &cat,
		formStartDate: &sd,
		formEndDate:   &ed,
		formStartTime: &st,
		formEndTime:   &et,
	}
}

func (c *calendarModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

// capturing reports whether keys belong to the calendar exclusively.
func (c calendarModel) capturing() bool {
	return c.formActive || c.mode != modeBrowse
}

type calendarDataMsg struct {
	events event.Collection
	today  event.Date
}

func (c calendarModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return calendarDataMsg{events: c.planner.Snapshot(), today: c.planner.Today()}
	}
}

func (c calendarModel) dayEvents() []event.Event {
	return c.events.On(c.cursor)
}

func (c calendarModel) selectedEvent() (event.Event, bool) {
	evs := c.dayEvents()
	if c.selected < 0 || c.selected >= len(evs) {
		return event.Event{}, false
	}
	return evs[c.selected], true
}

func (c calendarModel) update(msg tea.Msg) (calendarModel, tea.Cmd) {
	if msg, ok := msg.(calendarDataMsg); ok {
		c.events = msg.events
		c.today = msg.today
		if n := len(c.dayEvents()); c.selected >= n {
			c.selected = max(0, n-1)
		}
		return c, nil
	}

	if c.formActive && c.form != nil {
		return c.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch c.mode {
		case modeMove:
			return c.updateMove(msg)
		case modeResize:
			return c.updateResize(msg)
		}
		return c.updateBrowse(msg)
	}
	return c, nil
}

func (c calendarModel) updateBrowse(msg tea.KeyMsg) (calendarModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Left):
		c.setCursor(c.cursor.AddDays(-1))
	case key.Matches(msg, keys.Right):
		c.setCursor(c.cursor.AddDays(1))
	case key.Matches(msg, keys.Up):
		c.setCursor(c.cursor.AddDays(-7))
	case key.Matches(msg, keys.Down):
		c.setCursor(c.cursor.AddDays(7))
	case key.Matches(msg, keys.PrevMonth):
		c.shiftMonth(-1)
	case key.Matches(msg, keys.NextMonth):
		c.shiftMonth(1)
	case key.Matches(msg, keys.Today):
		c.setCursor(c.today)
	case key.Matches(msg, keys.NextEvent):
		if n := len(c.dayEvents()); n > 0 {
			c.selected = (c.selected + 1) % n
		}
	case key.Matches(msg, keys.PrevEvent):
		if n := len(c.dayEvents()); n > 0 {
			c.selected = (c.selected - 1 + n) % n
		}
	case key.Matches(msg, keys.New):
		return c.showForm(nil)
	case key.Matches(msg, keys.Edit):
		if e, ok := c.selectedEvent(); ok {
			return c.showForm(&e)
		}
	case key.Matches(msg, keys.Delete):
		if e, ok := c.selectedEvent(); ok {
			err := c.planner.Delete(e.ID)
			return c, changed(err, fmt.Sprintf("Deleted %q", e.Title))
		}
	case key.Matches(msg, keys.Earlier):
		return c, c.retimeBy(-retimeStep)
	case key.Matches(msg, keys.Later):
		return c, c.retimeBy(retimeStep)
	case key.Matches(msg, keys.Move):
		if e, ok := c.selectedEvent(); ok {
			c.mode = modeMove
			c.gestureID = e.ID
			return c, status(fmt.Sprintf("Moving %q: pick a day, enter to drop", e.Title))
		}
	case key.Matches(msg, keys.Resize):
		if e, ok := c.selectedEvent(); ok {
			c.mode = modeResize
			c.gestureID = e.ID
			c.edge = drag.EdgeEnd
			c.pixels = 0
			return c, status(fmt.Sprintf("Resizing %q: ←/→ end date, s start/end, enter to finish", e.Title))
		}
	}
	return c, nil
}

func (c calendarModel) updateMove(msg tea.KeyMsg) (calendarModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Left):
		c.setCursor(c.cursor.AddDays(-1))
	case key.Matches(msg, keys.Right):
		c.setCursor(c.cursor.AddDays(1))
	case key.Matches(msg, keys.Up):
		c.setCursor(c.cursor.AddDays(-7))
	case key.Matches(msg, keys.Down):
		c.setCursor(c.cursor.AddDays(7))
	case key.Matches(msg, keys.PrevMonth):
		c.shiftMonth(-1)
	case key.Matches(msg, keys.NextMonth):
		c.shiftMonth(1)
	case key.Matches(msg, keys.Enter):
		id := c.gestureID
		c.mode = modeBrowse
		c.gestureID = ""
		if err := c.drag.Drop(id, c.month.Year, c.month.Month, c.cursor.Day); err != nil {
			return c, errorStatus(describeError(err))
		}
		return c, nil
	case key.Matches(msg, keys.Back):
		c.drag.Cancel()
		c.mode = modeBrowse
		c.gestureID = ""
		return c, status("Move cancelled")
	}
	return c, nil
}

func (c calendarModel) updateResize(msg tea.KeyMsg) (calendarModel, tea.Cmd) {
	step := c.drag.Config().PixelsPerDay
	switch {
	case key.Matches(msg, keys.Left):
		return c.resizeBy(-step)
	case key.Matches(msg, keys.Right):
		return c.resizeBy(step)
	case key.Matches(msg, keys.Edge):
		if c.edge == drag.EdgeEnd {
			c.edge = drag.EdgeStart
		} else {
			c.edge = drag.EdgeEnd
		}
		c.pixels = 0
		return c, status("Resizing " + c.edge.String() + " date")
	case key.Matches(msg, keys.Enter):
		c.drag.Release()
		c.mode = modeBrowse
		c.gestureID = ""
		return c, nil
	case key.Matches(msg, keys.Back):
		c.drag.Cancel()
		c.mode = modeBrowse
		c.gestureID = ""
		return c, status("Resize cancelled")
	}
	return c, nil
}

func (c calendarModel) resizeBy(delta int) (calendarModel, tea.Cmd) {
	next := c.pixels + delta
	err := c.drag.Resize(c.gestureID, c.edge, next)
	switch {
	case errors.Is(err, drag.ErrCollapsedRange):
		return c, errorStatus("An event must keep its start before its end")
	case err != nil:
		c.mode = modeBrowse
		return c, errorStatus(describeError(err))
	}
	c.pixels = next
	return c, nil
}

// retimeStep is the nudge applied by the earlier/later keys, in minutes.
const retimeStep = 15

func (c calendarModel) retimeBy(minutes int) tea.Cmd {
	e, ok := c.selectedEvent()
	if !ok {
		return nil
	}
	r := timerange.Range{
		Start: e.Times.Start + timerange.Time(minutes),
		End:   e.Times.End + timerange.Time(minutes),
	}
	if !r.Valid() {
		return errorStatus("An event must stay within one day")
	}
	_, err := c.planner.Retime(e.ID, r)
	return changed(err, fmt.Sprintf("%q now %s", e.Title, formatRange(r, c.prefs.Use12Hour)))
}

// outcome resyncs resize mode after the reconciler refused a resize and
// dropped the gesture.
func (c calendarModel) outcome(o drag.Outcome) calendarModel {
	if c.mode != modeResize || o.Gesture != drag.Resize || o.Err == nil || o.EventID != c.gestureID {
		return c
	}
	if c.drag.State() == drag.Idle {
		c.mode = modeBrowse
		c.gestureID = ""
		c.pixels = 0
	}
	return c
}

func (c *calendarModel) setCursor(d event.Date) {
	if d.Year != c.cursor.Year || d.Month != c.cursor.Month || d.Day != c.cursor.Day {
		c.selected = 0
	}
	c.cursor = d
	c.month = firstOfMonth(d)
}

func (c *calendarModel) shiftMonth(n int) {
	target := event.NewDate(c.month.Year, c.month.Month+time.Month(n), 1)
	day := min(c.cursor.Day, daysIn(target.Year, target.Month))
	c.setCursor(event.Date{Year: target.Year, Month: target.Month, Day: day})
}

func daysIn(year int, m time.Month) int {
	return event.NewDate(year, m+1, 0).Day
}

// --- Form ---

func (c calendarModel) showForm(existing *event.Event) (calendarModel, tea.Cmd) {
	use12h := c.prefs.Use12Hour
	if existing == nil {
		times := c.prefs.DefaultTimes()
		c.editingID = ""
		*c.formTitle = ""
		*c.formDesc = ""
		*c.formCategory = c.prefs.DefaultCategory.OrDefault().String()
		*c.formStartDate = c.cursor.String()
		*c.formEndDate = c.cursor.String()
		*c.formStartTime = formatTime(times.Start, use12h)
		*c.formEndTime = formatTime(times.End, use12h)
	} else {
		c.editingID = existing.ID
		*c.formTitle = existing.Title
		*c.formDesc = existing.Description
		*c.formCategory = existing.Category.String()
		*c.formStartDate = existing.Dates.Start.String()
		*c.formEndDate = existing.Dates.End.String()
		*c.formStartTime = formatTime(existing.Times.Start, use12h)
		*c.formEndTime = formatTime(existing.Times.End, use12h)
	}

	catOptions := make([]huh.Option[string], 0, len(event.Categories()))
	for _, cat := range event.Categories() {
		catOptions = append(catOptions, huh.NewOption(cat.Label(), cat.String()))
	}

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(c.formTitle).Validate(validateTitle),
			huh.NewText().Title("Description").Value(c.formDesc).Lines(3),
			huh.NewSelect[string]().Title("Category").Options(catOptions...).Value(c.formCategory),
		),
		huh.NewGroup(
			huh.NewInput().Title("Start date (YYYY-MM-DD)").Value(c.formStartDate).Validate(validateDateInput),
			huh.NewInput().Title("End date (YYYY-MM-DD)").Value(c.formEndDate).Validate(validateDateInput),
			huh.NewInput().Title("Start time").Value(c.formStartTime).Validate(validateTimeInput),
			huh.NewInput().Title("End time").Value(c.formEndTime).Validate(validateTimeInput),
		),
	).WithShowHelp(true).WithShowErrors(true)

	c.formActive = true
	return c, c.form.Init()
}

func (c calendarModel) updateForm(msg tea.Msg) (calendarModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			c.formActive = false
			c.form = nil
			return c, nil
		}
	}

	form, cmd := c.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.form = f
	}

	if c.form.State == huh.StateCompleted {
		c.formActive = false
		c.form = nil
		return c, c.submitForm()
	}

	return c, cmd
}

// submitForm hands the form values to the planner. Field syntax was
// validated by the form; placement rules are the planner's.
func (c calendarModel) submitForm() tea.Cmd {
	var (
		dates event.DateRange
		times timerange.Range
	)
	dates.Start = parseDateOr(*c.formStartDate, c.cursor)
	dates.End = parseDateOr(*c.formEndDate, dates.Start)
	times.Start, _ = parseTimeInput(*c.formStartTime)
	times.End, _ = parseTimeInput(*c.formEndTime)
	cat, err := event.ParseCategory(*c.formCategory)
	if err != nil {
		cat = event.CategoryOther
	}

	if c.editingID == "" {
		e, err := c.planner.Create(event.Draft{
			Title:       *c.formTitle,
			Description: *c.formDesc,
			Category:    cat,
			Dates:       dates,
			Times:       times,
		}, c.cursor)
		return changed(err, fmt.Sprintf("Created %q on %s", e.Title, e.Dates))
	}

	e, ok := c.planner.Lookup(c.editingID)
	if !ok {
		return errorStatus(describeError(event.ErrNotFound))
	}
	e.Title = strings.TrimSpace(*c.formTitle)
	e.Description = strings.TrimSpace(*c.formDesc)
	e.Category = cat
	e.Dates = dates
	e.Times = times
	err = c.planner.Update(e)
	return changed(err, fmt.Sprintf("Updated %q", e.Title))
}

func parseDateOr(s string, fallback event.Date) event.Date {
	d, err := event.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return d
}

// --- View ---

func (c calendarModel) view() string {
	w := c.width - 4

	if c.formActive && c.form != nil {
		title := titleStyle.Render("New Event")
		if c.editingID != "" {
			title = titleStyle.Render("Edit Event")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", c.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render(c.month.Time().Format("January 2006"))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", c.modeLabel())

	grid := c.renderGrid(w - 4)
	details := c.renderDetails()
	rows := []string{header, "", grid, "", details, ""}
	if warning := c.dropWarning(); warning != "" {
		rows = append(rows, errorStyle.Render("  "+warning))
	}
	rows = append(rows, c.hint())

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (c calendarModel) modeLabel() string {
	switch c.mode {
	case modeMove:
		return warningStyle.Render("MOVE")
	case modeResize:
		return warningStyle.Render("RESIZE " + strings.ToUpper(c.edge.String()))
	}
	if p, ok := c.drag.Pending(); ok && p.Armed {
		return mutedStyle.Render("pending " + p.Gesture.String() + "…")
	}
	return ""
}

func (c calendarModel) hint() string {
	switch c.mode {
	case modeMove:
		return mutedStyle.Render("  arrows: pick day  [/]: month  enter: drop  esc: cancel")
	case modeResize:
		return mutedStyle.Render("  ←/→: one day  s: switch edge  enter: finish  esc: cancel")
	}
	return mutedStyle.Render("  n: new  enter: edit  d: delete  m: move  r: resize  -/+: time  ,/.: select  [/]: month  t: today")
}

// preview returns the range a gesture in progress would give the selected
// event, if any.
func (c calendarModel) preview() (event.DateRange, bool) {
	switch c.mode {
	case modeMove:
		e, ok := c.events.Find(c.gestureID)
		if !ok {
			return event.DateRange{}, false
		}
		span := e.Dates.Start.DaysUntil(e.Dates.End)
		return event.DateRange{Start: c.cursor, End: c.cursor.AddDays(span)}, true
	case modeResize:
		if p, ok := c.drag.Pending(); ok {
			return p.Range, true
		}
	}
	return event.DateRange{}, false
}

// dropWarning says why dropping the moved event on the cursor day would be
// refused, naming every overlapping event.
func (c calendarModel) dropWarning() string {
	if c.mode != modeMove {
		return ""
	}
	e, ok := c.planner.Lookup(c.gestureID)
	if !ok {
		return ""
	}
	target, _ := c.preview()
	if hits := c.planner.Conflicts(e, target); len(hits) > 0 {
		var titles []string
		seen := map[string]bool{}
		for _, h := range hits {
			if !seen[h.Other.ID] {
				seen[h.Other.ID] = true
				titles = append(titles, strconv.Quote(h.Other.Title))
			}
		}
		return "Overlaps " + strings.Join(titles, ", ")
	}
	if err := c.planner.Check(e, target); err != nil {
		return describeError(err)
	}
	return ""
}

func (c calendarModel) gridStart() event.Date {
	offset := (int(c.month.Weekday()) - int(c.prefs.WeekStart) + 7) % 7
	return c.month.AddDays(-offset)
}

func (c calendarModel) renderGrid(width int) string {
	cw := max(6, width/7)
	start := c.gridStart()
	days := start.DaysUntil(c.month) + daysIn(c.month.Year, c.month.Month)
	rows := (days + 6) / 7

	lines := 3
	if c.height > 40 {
		lines = 5
	} else if c.height > 30 {
		lines = 4
	}

	var header []string
	for i := 0; i < 7; i++ {
		name := start.AddDays(i).Weekday().String()[:3]
		header = append(header, weekdayHeaderStyle.Width(cw).Render(name))
	}

	preview, hasPreview := c.preview()

	out := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}
	for r := 0; r < rows; r++ {
		var cells []string
		for col := 0; col < 7; col++ {
			d := start.AddDays(r*7 + col)
			cells = append(cells, c.renderCell(d, cw, lines, hasPreview && preview.Contains(d)))
		}
		out = append(out, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(out, "\n")
}

func (c calendarModel) renderCell(d event.Date, cw, lines int, inPreview bool) string {
	num := fmt.Sprintf("%2d", d.Day)
	style := dayCellStyle
	switch {
	case d == c.cursor:
		style = cursorDayStyle
	case d == c.today:
		style = todayStyle
	case d.Month != c.month.Month:
		style = outsideDayStyle
	}
	first := style.Render(num)
	if inPreview {
		first += previewDayStyle.Render(" ▸")
	}

	content := []string{first}
	evs := c.events.On(d)
	room := lines - 1
	for i, e := range evs {
		if i == room-1 && len(evs) > room {
			content = append(content, mutedStyle.Render(fmt.Sprintf("+%d more", len(evs)-i)))
			break
		}
		if i >= room {
			break
		}
		content = append(content, categoryStyle(e.Category).Render(truncate(e.Title, cw-1)))
	}

	return lipgloss.NewStyle().Width(cw).Height(lines).Render(strings.Join(content, "\n"))
}

func (c calendarModel) renderDetails() string {
	title := titleStyle.Render(c.cursor.Time().Format("Monday, Jan 2"))
	evs := c.dayEvents()
	if len(evs) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render("  No events. Press n to add one."))
	}

	rows := []string{title}
	for i, e := range evs {
		cursor := "  "
		style := normalItemStyle
		if i == c.selected {
			cursor = "> "
			style = selectedItemStyle
		}
		line := fmt.Sprintf("%s%s %s  %s", cursor, categoryDot(e.Category),
			formatRange(e.Times, c.prefs.Use12Hour), e.Title)
		row := style.Render(line)
		if e.IsMultiDay() {
			row += mutedStyle.Render(fmt.Sprintf("  (%s → %s)",
				e.Dates.Start.Time().Format("Jan 2"), e.Dates.End.Time().Format("Jan 2")))
		}
		rows = append(rows, row)
		if e.Description != "" && i == c.selected {
			rows = append(rows, mutedStyle.Render("     "+truncate(e.Description, max(10, c.width-16))))
		}
	}
	return strings.Join(rows, "\n")
}

// --- Commands ---

func status(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

func errorStatus(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: true} }
}

// changed reports the outcome of a planner mutation and triggers a reload.
// A storage error still reloads because the change was committed.
func changed(err error, ok string) tea.Cmd {
	report := status(ok)
	if err != nil {
		report = errorStatus(describeError(err))
	}
	return tea.Batch(report, func() tea.Msg { return eventsChangedMsg{} })
}
