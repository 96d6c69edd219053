package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/timerange"
)

func day(d int) event.Date { return event.Date{Year: 2026, Month: time.March, Day: d} }

func hours(s, e string) timerange.Range {
	return timerange.Range{Start: timerange.MustParse(s), End: timerange.MustParse(e)}
}

func sampleData() event.Collection {
	return event.Collection{
		{
			ID:          "a1",
			Title:       "Standup",
			Description: "daily sync",
			Dates:       event.SingleDay(day(10)),
			Times:       hours("09:00", "09:15"),
			Category:    event.CategoryMeeting,
		},
		{
			ID:       "b2",
			Title:    "Offsite",
			Dates:    event.DateRange{Start: day(12), End: day(14)},
			Times:    hours("10:00", "16:00"),
			Category: event.CategoryWork,
		},
		{
			ID:       "c3",
			Title:    "Gym",
			Dates:    event.SingleDay(day(11)),
			Times:    hours("18:30", "19:30"),
			Category: event.CategoryPersonal,
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	return records
}

// ============================================================
// CSV
// ============================================================

func TestCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.csv")
	if err := ToFile(sampleData(), CSV, path); err != nil {
		t.Fatalf("ToFile csv: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 4 {
		t.Fatalf("expected 4 rows (1 header + 3 data), got %d", len(records))
	}

	for i, h := range csvHeader {
		if records[0][i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], h)
		}
	}

	row := records[1]
	if row[0] != "a1" || row[1] != "Standup" {
		t.Fatalf("first row = %v", row)
	}
	if row[2] != "meeting" {
		t.Fatalf("Category = %q, want meeting", row[2])
	}
	if row[3] != "2026-03-10" || row[4] != "2026-03-10" {
		t.Fatalf("dates = %q..%q", row[3], row[4])
	}
	if row[5] != "09:00" || row[6] != "09:15" {
		t.Fatalf("times = %q-%q", row[5], row[6])
	}
	if row[7] != "00:15:00" {
		t.Fatalf("Duration = %q, want 00:15:00", row[7])
	}

	// Multi-day duration counts every day.
	if records[2][7] != "18:00:00" {
		t.Fatalf("multi-day Duration = %q, want 18:00:00", records[2][7])
	}
}

func TestCSVFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := ToFile(nil, CSV, path); err != nil {
		t.Fatal(err)
	}
	if records := readCSV(t, path); len(records) != 1 {
		t.Fatalf("expected 1 row (header only), got %d", len(records))
	}
}

func TestToFileBadPath(t *testing.T) {
	if err := ToFile(nil, CSV, "/nonexistent/dir/file.csv"); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestCSVSpecialCharacters(t *testing.T) {
	c := event.Collection{{
		ID:          "x",
		Title:       `Review "Q1"`,
		Description: `notes with "quotes" and, commas`,
		Dates:       event.SingleDay(day(10)),
		Times:       hours("09:00", "10:00"),
		Category:    event.CategoryWork,
	}}
	path := filepath.Join(t.TempDir(), "special.csv")
	if err := ToFile(c, CSV, path); err != nil {
		t.Fatal(err)
	}

	records := readCSV(t, path)
	if records[1][1] != `Review "Q1"` {
		t.Fatalf("title mangled: %q", records[1][1])
	}
	if records[1][8] != `notes with "quotes" and, commas` {
		t.Fatalf("description mangled: %q", records[1][8])
	}
}

func TestSerializeDoesNotMutate(t *testing.T) {
	c := sampleData()
	before := c.Clone()
	for _, f := range Formats() {
		if _, err := Serialize(c, f); err != nil {
			t.Fatalf("Serialize(%s): %v", f, err)
		}
	}
	if !c.Equal(before) {
		t.Fatal("serialization modified the collection")
	}
}

// ============================================================
// JSON
// ============================================================

func TestJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.json")
	if err := ToFile(sampleData(), JSON, path); err != nil {
		t.Fatalf("ToFile json: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var result jsonExport
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.Count != 3 || len(result.Events) != 3 {
		t.Fatalf("count = %d, events = %d, want 3", result.Count, len(result.Events))
	}
	if _, err := time.Parse(time.RFC3339, result.ExportedAt); err != nil {
		t.Fatalf("exported_at is not valid RFC3339: %q", result.ExportedAt)
	}

	e := result.Events[1]
	if e.ID != "b2" || e.StartDate != "2026-03-12" || e.EndDate != "2026-03-14" {
		t.Fatalf("event = %+v", e)
	}
	if e.DurationSec != 3*6*3600 {
		t.Fatalf("DurationSec = %d", e.DurationSec)
	}
	if e.Category != "work" {
		t.Fatalf("Category = %q", e.Category)
	}
}

func TestJSONPrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pretty.json")
	if err := ToFile(nil, JSON, path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n  ") {
		t.Fatal("JSON should be indented")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	c := sampleData()
	data, err := Serialize(c, JSON)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if !got.Equal(c) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, c)
	}
}

func TestParseJSONEmpty(t *testing.T) {
	got, err := ParseJSON([]byte(`{"exported_at":"2026-03-01T00:00:00Z","count":0,"events":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no events, got %d", len(got))
	}
}

func TestParseJSONRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"syntax":   `{"events": [`,
		"no id":    `{"events":[{"title":"x","category":"work","start_date":"2026-03-01","end_date":"2026-03-01","start_time":"09:00","end_time":"10:00"}]}`,
		"category": `{"events":[{"id":"1","title":"x","category":"gaming","start_date":"2026-03-01","end_date":"2026-03-01","start_time":"09:00","end_time":"10:00"}]}`,
		"times":    `{"events":[{"id":"1","title":"x","category":"work","start_date":"2026-03-01","end_date":"2026-03-01","start_time":"11:00","end_time":"10:00"}]}`,
		"dates":    `{"events":[{"id":"1","title":"x","category":"work","start_date":"2026-03-05","end_date":"2026-03-01","start_time":"09:00","end_time":"10:00"}]}`,
	}
	for name, in := range tests {
		if _, err := ParseJSON([]byte(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

// ============================================================
// iCalendar
// ============================================================

func TestICSFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ics")
	if err := ToFile(sampleData(), ICS, path); err != nil {
		t.Fatalf("ToFile ics: %v", err)
	}
	data, _ := os.ReadFile(path)
	s := string(data)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"UID:a1",
		"SUMMARY:Standup",
		"DTSTART:20260310T090000",
		"DTEND:20260310T091500",
		"CATEGORIES:meeting",
		"X-PLANR-END-DATE:20260314",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("ics output missing %q", want)
		}
	}
	if strings.Count(s, "BEGIN:VEVENT") != 3 {
		t.Fatalf("expected 3 VEVENTs")
	}
}

func TestICSRoundTrip(t *testing.T) {
	c := sampleData()
	data, err := Serialize(c, ICS)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseICS(data)
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if !got.Equal(c) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, c)
	}
}

// ============================================================
// Files and formats
// ============================================================

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"csv": CSV, "JSON": JSON, " ics ": ICS, "ical": ICS}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
	if _, err := Serialize(nil, Format("xml")); err == nil {
		t.Error("expected Serialize error for unknown format")
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []Format{JSON, ICS} {
		path := filepath.Join(dir, "events"+f.Ext())
		if err := ToFile(sampleData(), f, path); err != nil {
			t.Fatal(err)
		}
		got, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", f, err)
		}
		if !got.Equal(sampleData()) {
			t.Errorf("ReadFile(%s) = %+v", f, got)
		}
	}
}

func TestReadFileRejects(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "events.csv")
	if err := ToFile(sampleData(), CSV, csvPath); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{
		csvPath,
		filepath.Join(dir, "events.txt"),
		filepath.Join(dir, "missing.json"),
	} {
		if _, err := ReadFile(path); err == nil {
			t.Errorf("ReadFile(%s) should fail", path)
		}
	}
}

func TestFileName(t *testing.T) {
	got := FileName(ICS, time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC))
	if got != "planr-export-20260301-150405.ics" {
		t.Fatalf("FileName = %q", got)
	}
}

func TestAutoExportReplacesFile(t *testing.T) {
	a := Auto{Dir: filepath.Join(t.TempDir(), "exports"), Format: JSON}
	if err := a.Export(sampleData()); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if err := a.Export(sampleData()[:1]); err != nil {
		t.Fatalf("Export: %v", err)
	}

	data, err := os.ReadFile(a.Path())
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected latest snapshot with 1 event, got %d", len(got))
	}
	if _, err := os.Stat(a.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind")
	}
}

// ============================================================
// formatDuration (internal helper)
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{1, "00:00:01"},
		{60, "00:01:00"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{86400, "24:00:00"},
		{90061, "25:01:01"},
	}

	for _, tt := range tests {
		got := formatDuration(tt.secs)
		if got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
