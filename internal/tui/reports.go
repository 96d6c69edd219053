package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/planner"
	"github.com/sadopc/planr/internal/store"
)

type reportMode int

const (
	reportDaily reportMode = iota
	reportWeekly
)

const weeksPerReport = 6

type reportsModel struct {
	planner *planner.Planner
	prefs   store.Preferences
	width   int
	height  int

	mode   reportMode
	offset int // periods from the current one, negative is earlier
	today  event.Date
	events event.Collection

	chart barchart.Model
}

func newReportsModel(p *planner.Planner, prefs store.Preferences) reportsModel {
	return reportsModel{
		planner: p,
		prefs:   prefs,
		today:   p.Today(),
		chart:   barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	today  event.Date
	events event.Collection
}

func (r reportsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return reportsDataMsg{today: r.planner.Today(), events: r.planner.Snapshot()}
	}
}

// bucket is one bar of the chart: a span of days.
type bucket struct {
	label string
	days  event.DateRange
}

func (r reportsModel) weekStart(d event.Date) event.Date {
	back := (int(d.Weekday()) - int(r.prefs.WeekStart) + 7) % 7
	return d.AddDays(-back)
}

func (r reportsModel) buckets() []bucket {
	var out []bucket
	switch r.mode {
	case reportWeekly:
		start := r.weekStart(r.today).AddDays(7 * weeksPerReport * r.offset)
		for i := 0; i < weeksPerReport; i++ {
			s := start.AddDays(7 * i)
			out = append(out, bucket{
				label: s.Time().Format("Jan 02"),
				days:  event.DateRange{Start: s, End: s.AddDays(6)},
			})
		}
	default:
		start := r.today.AddDays(7 * r.offset)
		for i := 0; i < 7; i++ {
			d := start.AddDays(i)
			out = append(out, bucket{label: d.Time().Format("Mon 02"), days: event.SingleDay(d)})
		}
	}
	return out
}

func (r reportsModel) period() event.DateRange {
	b := r.buckets()
	return event.DateRange{Start: b[0].days.Start, End: b[len(b)-1].days.End}
}

// categoryMinutes books each event's daily time range once per occupied day
// inside span.
func categoryMinutes(c event.Collection, span event.DateRange) map[event.Category]int {
	out := make(map[event.Category]int)
	for d := range span.Days() {
		for _, e := range c.On(d) {
			out[e.Category.OrDefault()] += e.Times.Duration()
		}
	}
	return out
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.today = msg.today
		r.events = msg.events
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset--
			r.buildChart()
		case key.Matches(msg, keys.Right):
			r.offset++
			r.buildChart()
		case key.Matches(msg, keys.Today):
			r.offset = 0
			r.buildChart()
		case key.Matches(msg, keys.Enter):
			if r.mode == reportDaily {
				r.mode = reportWeekly
			} else {
				r.mode = reportDaily
			}
			r.offset = 0
			r.buildChart()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := max(20, r.width-8)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, b := range r.buckets() {
		mins := categoryMinutes(r.events, b.days)

		var values []barchart.BarValue
		for _, cat := range event.Categories() {
			if mins[cat] == 0 {
				continue
			}
			values = append(values, barchart.BarValue{
				Name:  cat.Label(),
				Value: float64(mins[cat]) / 60,
				Style: categoryStyle(cat),
			})
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}

		bars = append(bars, barchart.BarData{Label: b.label, Values: values})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	dailyTab := inactiveTabStyle.Render("Daily")
	weeklyTab := inactiveTabStyle.Render("Weekly")
	if r.mode == reportDaily {
		dailyTab = activeTabStyle.Render("Daily")
	} else {
		weeklyTab = activeTabStyle.Render("Weekly")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, dailyTab, weeklyTab)

	p := r.period()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s",
		p.Start.Time().Format("Jan 02"), p.End.Time().Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Booked hours"), "  ", modeTabs, "  ", dateLabel,
	)

	nav := mutedStyle.Render("  ←/→: navigate  enter: switch mode  t: current period")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderSummaryTable(w, p), "", nav,
		),
	)
}

func (r reportsModel) renderSummaryTable(w int, p event.DateRange) string {
	mins := categoryMinutes(r.events, p)
	total := 0
	for _, m := range mins {
		total += m
	}
	if total == 0 {
		return mutedStyle.Render("  Nothing booked in this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-14s %10s %8s", "Category", "Booked", "Share")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 34))))
	for _, cat := range event.Categories() {
		if mins[cat] == 0 {
			continue
		}
		rows = append(rows, fmt.Sprintf("  %s %-12s %10s %7.0f%%",
			categoryDot(cat), cat.Label(), formatHours(mins[cat]),
			100*float64(mins[cat])/float64(total)))
	}
	rows = append(rows, fmt.Sprintf("  %-14s %10s", "Total", highlightStyle.Render(formatHours(total))))
	return strings.Join(rows, "\n")
}
