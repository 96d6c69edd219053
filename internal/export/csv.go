package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/sadopc/planr/internal/event"
)

var csvHeader = []string{"ID", "Title", "Category", "Start Date", "End Date", "Start Time", "End Time", "Duration", "Description"}

func serializeCSV(c event.Collection) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range c {
		row := []string{
			e.ID,
			e.Title,
			e.Category.String(),
			e.Dates.Start.String(),
			e.Dates.End.String(),
			e.Times.Start.String(),
			e.Times.End.String(),
			formatDuration(bookedSeconds(e)),
			e.Description,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
