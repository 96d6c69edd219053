package store

import (
	"fmt"
	"time"

	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/timerange"
)

// Save replaces the stored events with c in a single transaction. The order
// of c is preserved.
func (s *Store) Save(c event.Collection) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO events (id, position, title, description, start_date, end_date, start_time, end_time, category, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, e := range c {
		_, err := stmt.Exec(
			e.ID, i, e.Title, e.Description,
			e.Dates.Start.String(), e.Dates.End.String(),
			e.Times.Start.String(), e.Times.End.String(),
			e.Category.String(), now,
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load returns the stored events in saved order. An empty store yields an
// empty, non-nil collection.
func (s *Store) Load() (event.Collection, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, start_date, end_date, start_time, end_time, category
		FROM events ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	c := event.Collection{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		c = append(c, e)
	}
	return c, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (event.Event, error) {
	var (
		e                  event.Event
		startDate, endDate string
		startTime, endTime string
		category           string
	)
	if err := sc.Scan(&e.ID, &e.Title, &e.Description, &startDate, &endDate, &startTime, &endTime, &category); err != nil {
		return e, fmt.Errorf("scan event: %w", err)
	}

	var err error
	if e.Dates.Start, err = event.ParseDate(startDate); err != nil {
		return e, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if e.Dates.End, err = event.ParseDate(endDate); err != nil {
		return e, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if e.Times.Start, err = timerange.Parse(startTime); err != nil {
		return e, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if e.Times.End, err = timerange.Parse(endTime); err != nil {
		return e, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if e.Category, err = event.ParseCategory(category); err != nil {
		return e, fmt.Errorf("event %s: %w", e.ID, err)
	}
	return e, nil
}
