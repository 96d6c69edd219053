package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/timerange"
)

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// Preferences are the typed user settings.
type Preferences struct {
	WeekStart       time.Weekday
	DefaultCategory event.Category
	DefaultStart    timerange.Time
	DefaultDuration int // minutes
	Use12Hour       bool
}

func DefaultPreferences() Preferences {
	return Preferences{
		WeekStart:       time.Monday,
		DefaultCategory: event.CategoryWork,
		DefaultStart:    timerange.MustParse("09:00"),
		DefaultDuration: 60,
	}
}

// DefaultTimes is the time range a new event gets from the preferences,
// clamped to the end of the day.
func (p Preferences) DefaultTimes() timerange.Range {
	end := p.DefaultStart + timerange.Time(p.DefaultDuration)
	if last := timerange.MustParse("23:59"); end > last {
		end = last
	}
	return timerange.Range{Start: p.DefaultStart, End: end}
}

// Preferences reads the typed settings. Unparseable values fall back to the
// defaults.
func (s *Store) Preferences() (Preferences, error) {
	p := DefaultPreferences()
	all, err := s.GetAllSettings()
	if err != nil {
		return p, err
	}
	for _, kv := range all {
		switch kv.Key {
		case SettingWeekStart:
			if kv.Value == "sunday" {
				p.WeekStart = time.Sunday
			}
		case SettingDefaultCategory:
			if c, err := event.ParseCategory(kv.Value); err == nil {
				p.DefaultCategory = c
			}
		case SettingDefaultStart:
			if t, err := timerange.Parse(kv.Value); err == nil {
				p.DefaultStart = t
			}
		case SettingDefaultDuration:
			if n, err := strconv.Atoi(kv.Value); err == nil && n > 0 {
				p.DefaultDuration = n
			}
		case SettingTimeFormat:
			p.Use12Hour = kv.Value == "12h"
		}
	}
	return p, nil
}

func (s *Store) SavePreferences(p Preferences) error {
	weekStart := "monday"
	if p.WeekStart == time.Sunday {
		weekStart = "sunday"
	}
	timeFormat := "24h"
	if p.Use12Hour {
		timeFormat = "12h"
	}
	values := map[string]string{
		SettingWeekStart:       weekStart,
		SettingDefaultCategory: p.DefaultCategory.String(),
		SettingDefaultStart:    p.DefaultStart.String(),
		SettingDefaultDuration: strconv.Itoa(p.DefaultDuration),
		SettingTimeFormat:      timeFormat,
	}
	for k, v := range values {
		if err := s.SetSetting(k, v); err != nil {
			return err
		}
	}
	return nil
}
