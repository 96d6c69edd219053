package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/timerange"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Events     []jsonEvent `json:"events"`
}

type jsonEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	DurationSec int64  `json:"duration_seconds"`
	Duration    string `json:"duration"`
}

func serializeJSON(c event.Collection, now time.Time) ([]byte, error) {
	export := jsonExport{
		ExportedAt: now.UTC().Format(time.RFC3339),
		Count:      len(c),
	}

	for _, e := range c {
		secs := bookedSeconds(e)
		export.Events = append(export.Events, jsonEvent{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Category:    e.Category.String(),
			StartDate:   e.Dates.Start.String(),
			EndDate:     e.Dates.End.String(),
			StartTime:   e.Times.Start.String(),
			EndTime:     e.Times.End.String(),
			DurationSec: secs,
			Duration:    formatDuration(secs),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}

// ParseJSON reads a JSON export back into a collection. Every event must be
// well formed; placement rules are not applied.
func ParseJSON(data []byte) (event.Collection, error) {
	var in jsonExport
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unmarshal json: %w", err)
	}

	c := make(event.Collection, 0, len(in.Events))
	for i, je := range in.Events {
		e, err := je.event()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		c = append(c, e)
	}
	return c, nil
}

func (je jsonEvent) event() (event.Event, error) {
	e := event.Event{ID: je.ID, Title: je.Title, Description: je.Description}
	if je.ID == "" {
		return e, fmt.Errorf("missing id")
	}

	var err error
	if e.Category, err = event.ParseCategory(je.Category); err != nil {
		return e, err
	}
	if e.Dates.Start, err = event.ParseDate(je.StartDate); err != nil {
		return e, err
	}
	if e.Dates.End, err = event.ParseDate(je.EndDate); err != nil {
		return e, err
	}
	if e.Times.Start, err = timerange.Parse(je.StartTime); err != nil {
		return e, err
	}
	if e.Times.End, err = timerange.Parse(je.EndTime); err != nil {
		return e, err
	}
	if err := event.Validate(e); err != nil {
		return e, err
	}
	return e, nil
}
