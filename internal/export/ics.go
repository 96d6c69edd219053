package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/timerange"
)

const (
	icsFloating = "20060102T150405"
	icsDate     = "20060102"

	// propEndDate carries the last day of a multi-day event; DTSTART and
	// DTEND only cover the first day's time range.
	propEndDate = ics.ComponentProperty("X-PLANR-END-DATE")
	propColor   = ics.ComponentProperty("X-PLANR-COLOR")
)

func serializeICS(c event.Collection, now time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//planr//planr calendar//EN")

	for _, e := range c {
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(now.UTC())
		ve.SetProperty(ics.ComponentPropertyDtStart, at(e.Dates.Start, e.Times.Start).Format(icsFloating))
		ve.SetProperty(ics.ComponentPropertyDtEnd, at(e.Dates.Start, e.Times.End).Format(icsFloating))
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		ve.SetProperty(ics.ComponentPropertyCategories, e.Category.String())
		ve.SetProperty(propColor, e.Category.Color())
		if e.IsMultiDay() {
			ve.SetProperty(propEndDate, e.Dates.End.Time().Format(icsDate))
		}
	}
	return []byte(cal.Serialize())
}

// ParseICS reads events written by the ICS serializer.
func ParseICS(data []byte) (event.Collection, error) {
	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	var c event.Collection
	for _, ve := range cal.Events() {
		e, err := fromVEvent(ve)
		if err != nil {
			return nil, fmt.Errorf("vevent %s: %w", ve.Id(), err)
		}
		c = append(c, e)
	}
	return c, nil
}

func fromVEvent(ve *ics.VEvent) (event.Event, error) {
	e := event.Event{ID: ve.Id(), Category: event.CategoryOther}
	if e.ID == "" {
		return e, fmt.Errorf("missing UID")
	}
	e.Title = icsText(ve, ics.ComponentPropertySummary)
	e.Description = icsText(ve, ics.ComponentPropertyDescription)
	if cat, err := event.ParseCategory(icsText(ve, ics.ComponentPropertyCategories)); err == nil {
		e.Category = cat
	}

	start, err := icsTime(ve, ics.ComponentPropertyDtStart)
	if err != nil {
		return e, err
	}
	end, err := icsTime(ve, ics.ComponentPropertyDtEnd)
	if err != nil {
		return e, err
	}
	e.Dates = event.SingleDay(event.DateOf(start))
	e.Times.Start, _ = timerange.New(start.Hour(), start.Minute())
	e.Times.End, _ = timerange.New(end.Hour(), end.Minute())

	if p := ve.GetProperty(propEndDate); p != nil {
		last, err := time.ParseInLocation(icsDate, p.Value, time.Local)
		if err != nil {
			return e, fmt.Errorf("parse %s: %w", propEndDate, err)
		}
		e.Dates.End = event.DateOf(last)
	}
	return e, event.Validate(e)
}

func icsTime(ve *ics.VEvent, prop ics.ComponentProperty) (time.Time, error) {
	p := ve.GetProperty(prop)
	if p == nil {
		return time.Time{}, fmt.Errorf("missing %s", prop)
	}
	t, err := time.ParseInLocation(icsFloating, strings.TrimSuffix(p.Value, "Z"), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", prop, err)
	}
	return t, nil
}

var icsUnescaper = strings.NewReplacer(`\\`, `\`, `\;`, ";", `\,`, ",", `\n`, "\n", `\N`, "\n")

func icsText(ve *ics.VEvent, prop ics.ComponentProperty) string {
	p := ve.GetProperty(prop)
	if p == nil {
		return ""
	}
	return icsUnescaper.Replace(p.Value)
}

func at(d event.Date, t timerange.Time) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, time.Local)
}
