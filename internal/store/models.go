package store

// Setting keys seeded by the first migration.
const (
	SettingWeekStart       = "week_start"       // monday or sunday
	SettingDefaultCategory = "default_category" // category key for new events
	SettingDefaultStart    = "default_start"    // HH:MM
	SettingDefaultDuration = "default_duration" // minutes
	SettingTimeFormat      = "time_format"      // 24h or 12h
)

type Setting struct {
	Key   string
	Value string
}
