package model

// Setting keys consumed by the violation engine, with their defaults
// applied when the row is absent or not numeric.
const (
	SettingReminderBeforeMin = "REMINDER_BEFORE_MINUTES" // default 15
	SettingNoShowTimeoutMin  = "NO_SHOW_TIMEOUT_MINUTES" // default 10
	SettingMaxViolationCount = "MAX_VIOLATION_COUNT"     // default 3
	SettingBanDays           = "BAN_DAYS"                // default 7
)

// SystemSetting is an externally managed key→value configuration row.
// Values are strings that the core parses to integers with hardcoded
// fallbacks.
//
// Fields:
//  Key         – primary key, e.g. "NO_SHOW_TIMEOUT_MINUTES".
//  Value       – numeric-parsable string.
//  Description – admin-facing explanation.
type SystemSetting struct {
	Key         string // system_settings.key
	Value       string // system_settings.value
	Description string // system_settings.description
}
