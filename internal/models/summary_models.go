package models

import "time"

// Summary granularities accepted by the summary endpoints.
const (
	GranularityWeek  = "week"
	GranularityMonth = "month"
)

// PeriodSummary is derived on demand from TimeEntry pairs; it is never
// stored. One summary per week or month bucket inside the requested
// range.
type PeriodSummary struct {
	PeriodStart  time.Time `json:"period_start"`
	TotalMins    int       `json:"total_mins"`
	OvertimeMins int       `json:"overtime_mins"`
}

// LaborRules is the configuration the accounting engine applies when
// classifying overtime and bucketing weeks.
type LaborRules struct {
	WeekStartsOn                 int `json:"week_starts_on"` // 0=Sunday, 1=Monday
	WeeklyOvertimeThresholdMins  int `json:"weekly_overtime_threshold_mins"`
	MonthlyOvertimeThresholdMins int `json:"monthly_overtime_threshold_mins"`
}

// ApplicationSetting represents a key-value pair for application configuration
type ApplicationSetting struct {
	ID           int64     `json:"id" db:"id"`
	SettingKey   string    `json:"setting_key" db:"setting_key" binding:"required"`
	SettingValue *string   `json:"setting_value,omitempty" db:"setting_value"`
	Description  *string   `json:"description,omitempty" db:"description"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
