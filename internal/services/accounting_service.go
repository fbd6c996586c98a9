package services

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"timeclock_backend/internal/models"
	"timeclock_backend/internal/repositories"
)

// --- Custom Service Errors for Accounting ---
var (
	ErrInvalidTimeRange   = errors.New("period end must be after period start")
	ErrInvalidGranularity = errors.New("granularity must be 'week' or 'month'")
	ErrInvalidWeekStart   = errors.New("week start must be 0 (Sunday) or 1 (Monday)")
)

// Setting keys for persisted labor rules.
const (
	SettingWeekStartsOn            = "labor.week_starts_on"
	SettingWeeklyOvertimeThreshold = "labor.weekly_overtime_threshold_mins"
	SettingMonthlyOvertimeThreshold = "labor.monthly_overtime_threshold_mins"
)

// workInterval is one closed CHECK_IN/CHECK_OUT pair.
type workInterval struct {
	start time.Time
	end   time.Time
}

// PairIntervals reconciles a user's entries into closed work intervals.
// Entries are scanned in server-received order: a CHECK_IN opens an
// interval, the next CHECK_OUT closes it. A CHECK_IN over an already-open
// interval closes it at that instant and reopens — the duplicate open
// loses no elapsed minutes. A CHECK_OUT with nothing open, and an
// interval never closed, contribute nothing.
func PairIntervals(entries []models.TimeEntry) []workInterval {
	sorted := make([]models.TimeEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RecordedAt.Equal(sorted[j].RecordedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	var intervals []workInterval
	var open *time.Time
	for i := range sorted {
		e := &sorted[i]
		switch e.EntryType {
		case models.EntryTypeCheckIn:
			if open != nil {
				intervals = append(intervals, workInterval{start: *open, end: e.RecordedAt})
			}
			t := e.RecordedAt
			open = &t
		case models.EntryTypeCheckOut:
			if open != nil {
				intervals = append(intervals, workInterval{start: *open, end: e.RecordedAt})
				open = nil
			}
		}
	}
	return intervals
}

// Summarize rolls entries into per-week or per-month totals with overtime
// classification. The range is explicit and half-open [periodStart,
// periodEnd); an interval still open at periodEnd contributes zero
// minutes. A closed interval's minutes are attributed to the bucket
// containing its check-in instant.
func Summarize(entries []models.TimeEntry, periodStart, periodEnd time.Time, granularity string, weekStartsOn int, overtimeThresholdMins int) ([]models.PeriodSummary, error) {
	if !periodEnd.After(periodStart) {
		return nil, ErrInvalidTimeRange
	}
	if granularity != models.GranularityWeek && granularity != models.GranularityMonth {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGranularity, granularity)
	}
	if weekStartsOn != 0 && weekStartsOn != 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWeekStart, weekStartsOn)
	}

	loc := periodStart.Location()
	totals := map[time.Time]int{}
	for _, iv := range PairIntervals(entries) {
		if iv.start.Before(periodStart) || !iv.start.Before(periodEnd) {
			continue
		}
		mins := int(iv.end.Sub(iv.start) / time.Minute)
		if mins < 0 {
			mins = 0
		}

		var bucket time.Time
		if granularity == models.GranularityWeek {
			bucket = weekStart(iv.start.In(loc), weekStartsOn)
		} else {
			bucket = monthStart(iv.start.In(loc))
		}
		totals[bucket] += mins
	}

	summaries := make([]models.PeriodSummary, 0, len(totals))
	for bucket, total := range totals {
		overtime := total - overtimeThresholdMins
		if overtime < 0 {
			overtime = 0
		}
		summaries = append(summaries, models.PeriodSummary{
			PeriodStart:  bucket,
			TotalMins:    total,
			OvertimeMins: overtime,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].PeriodStart.Before(summaries[j].PeriodStart)
	})
	return summaries, nil
}

// weekStart shifts t back to midnight of the first day of its containing
// week. weekStartsOn: 0=Sunday, 1=Monday.
func weekStart(t time.Time, weekStartsOn int) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	diff := (int(day.Weekday()) - weekStartsOn + 7) % 7
	return day.AddDate(0, 0, -diff)
}

// monthStart shifts t back to midnight of the first day of its month.
func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// SummaryQuery describes one summary request.
type SummaryQuery struct {
	StoreID     int64
	UserID      int64
	From        time.Time
	To          time.Time
	Granularity string
	// WeekStartsOn overrides the configured labor rule when set.
	WeekStartsOn *int
}

// AccountingService reads a user's entries over a range and emits period
// summaries under the configured labor rules.
type AccountingService interface {
	Summaries(q SummaryQuery) ([]models.PeriodSummary, error)
	Entries(storeID, userID int64, from, to time.Time) ([]models.TimeEntry, error)
	LaborRules() (models.LaborRules, error)
	UpdateLaborRules(rules models.LaborRules) (models.LaborRules, error)
}

type accountingService struct {
	entryRepo    repositories.TimeEntryRepository
	settingsRepo repositories.SettingsRepository
	db           *sql.DB
	defaults     models.LaborRules
}

// NewAccountingService creates a new instance of AccountingService.
// defaults apply wherever no persisted setting exists.
func NewAccountingService(
	entryRepo repositories.TimeEntryRepository,
	settingsRepo repositories.SettingsRepository,
	db *sql.DB,
	defaults models.LaborRules,
) AccountingService {
	return &accountingService{
		entryRepo:    entryRepo,
		settingsRepo: settingsRepo,
		db:           db,
		defaults:     defaults,
	}
}

func (s *accountingService) Summaries(q SummaryQuery) ([]models.PeriodSummary, error) {
	if !q.To.After(q.From) {
		return nil, ErrInvalidTimeRange
	}

	rules, err := s.LaborRules()
	if err != nil {
		return nil, err
	}
	weekStartsOn := rules.WeekStartsOn
	if q.WeekStartsOn != nil {
		weekStartsOn = *q.WeekStartsOn
	}

	threshold := rules.WeeklyOvertimeThresholdMins
	if q.Granularity == models.GranularityMonth {
		threshold = rules.MonthlyOvertimeThresholdMins
	}

	entries, err := s.entryRepo.GetByRange(q.StoreID, q.UserID, q.From, q.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for summary: %w", err)
	}
	return Summarize(entries, q.From, q.To, q.Granularity, weekStartsOn, threshold)
}

func (s *accountingService) Entries(storeID, userID int64, from, to time.Time) ([]models.TimeEntry, error) {
	if !to.After(from) {
		return nil, ErrInvalidTimeRange
	}
	entries, err := s.entryRepo.GetByRange(storeID, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	return entries, nil
}

func (s *accountingService) LaborRules() (models.LaborRules, error) {
	rules := s.defaults

	weekStart, err := s.settingInt(SettingWeekStartsOn)
	if err != nil {
		return rules, err
	}
	if weekStart != nil {
		rules.WeekStartsOn = *weekStart
	}

	weekly, err := s.settingInt(SettingWeeklyOvertimeThreshold)
	if err != nil {
		return rules, err
	}
	if weekly != nil {
		rules.WeeklyOvertimeThresholdMins = *weekly
	}

	monthly, err := s.settingInt(SettingMonthlyOvertimeThreshold)
	if err != nil {
		return rules, err
	}
	if monthly != nil {
		rules.MonthlyOvertimeThresholdMins = *monthly
	}

	return rules, nil
}

func (s *accountingService) UpdateLaborRules(rules models.LaborRules) (models.LaborRules, error) {
	if rules.WeekStartsOn != 0 && rules.WeekStartsOn != 1 {
		return models.LaborRules{}, fmt.Errorf("%w: %d", ErrInvalidWeekStart, rules.WeekStartsOn)
	}
	if rules.WeeklyOvertimeThresholdMins < 0 || rules.MonthlyOvertimeThresholdMins < 0 {
		return models.LaborRules{}, errors.New("overtime thresholds cannot be negative")
	}

	for key, value := range map[string]int{
		SettingWeekStartsOn:            rules.WeekStartsOn,
		SettingWeeklyOvertimeThreshold: rules.WeeklyOvertimeThresholdMins,
		SettingMonthlyOvertimeThreshold: rules.MonthlyOvertimeThresholdMins,
	} {
		v := strconv.Itoa(value)
		setting := &models.ApplicationSetting{SettingKey: key, SettingValue: &v}
		if _, err := s.settingsRepo.Upsert(s.db, setting); err != nil {
			return models.LaborRules{}, fmt.Errorf("failed to persist labor rule %s: %w", key, err)
		}
	}
	return rules, nil
}

// settingInt reads an integer setting; nil means not configured.
func (s *accountingService) settingInt(key string) (*int, error) {
	setting, err := s.settingsRepo.GetByKey(key)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load setting %s: %w", key, err)
	}
	if setting.SettingValue == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(*setting.SettingValue)
	if err != nil {
		return nil, fmt.Errorf("setting %s is not an integer: %w", key, err)
	}
	return &n, nil
}
