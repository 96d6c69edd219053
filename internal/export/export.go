// Package export serializes event collections to CSV, JSON and iCalendar.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sadopc/planr/internal/event"
)

type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	ICS  Format = "ics"
)

func Formats() []Format { return []Format{CSV, JSON, ICS} }

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON, ICS:
		return f, nil
	case "ical", "icalendar":
		return ICS, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

func (f Format) Ext() string { return "." + string(f) }

func (f Format) Label() string {
	switch f {
	case CSV:
		return "CSV"
	case JSON:
		return "JSON"
	case ICS:
		return "iCalendar"
	}
	return string(f)
}

// Serialize renders c in the given format. It never modifies c.
func Serialize(c event.Collection, f Format) ([]byte, error) {
	switch f {
	case CSV:
		return serializeCSV(c)
	case JSON:
		return serializeJSON(c, time.Now())
	case ICS:
		return serializeICS(c, time.Now()), nil
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

// ToFile writes the serialization of c to path.
func ToFile(c event.Collection, f Format, path string) error {
	data, err := Serialize(c, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s file: %w", f, err)
	}
	return nil
}

// ReadFile parses a JSON or iCalendar export, chosen by the file extension.
// CSV exports are one-way.
func ReadFile(path string) (event.Collection, error) {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	switch f {
	case JSON:
		return ParseJSON(data)
	case ICS:
		return ParseICS(data)
	}
	return nil, fmt.Errorf("import %s: %s files cannot be imported", path, f.Label())
}

// FileName is the default name of a manual export taken at now.
func FileName(f Format, now time.Time) string {
	return "planr-export-" + now.Format("20060102-150405") + f.Ext()
}

// Auto keeps a single export file in Dir up to date.
type Auto struct {
	Dir    string
	Format Format
}

func (a Auto) Path() string {
	return filepath.Join(a.Dir, "planr-events"+a.Format.Ext())
}

func (a Auto) Export(c event.Collection) error {
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	data, err := Serialize(c, a.Format)
	if err != nil {
		return err
	}
	// Write then rename so readers never see a partial file.
	tmp := a.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write auto-export: %w", err)
	}
	if err := os.Rename(tmp, a.Path()); err != nil {
		return fmt.Errorf("replace auto-export: %w", err)
	}
	return nil
}

// bookedSeconds is the time an event occupies across all of its days.
func bookedSeconds(e event.Event) int64 {
	return int64(e.Times.Duration()) * 60 * int64(e.Dates.Len())
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
