package models

import "time"

// Entry types. CHECK_IN and CHECK_OUT events alternate for a given
// (user, store) in the happy path, but out-of-order submissions are
// recorded rather than rejected; accounting reconciles pairs by
// timestamp ordering.
const (
	EntryTypeCheckIn  = "CHECK_IN"
	EntryTypeCheckOut = "CHECK_OUT"
)

// Entry statuses. APPROVED means the submission carried plausible GPS
// coordinates; PENDING_REVIEW means it did not and awaits a manager
// decision. An unverified event is recorded, never dropped.
const (
	EntryStatusApproved      = "APPROVED"
	EntryStatusPendingReview = "PENDING_REVIEW"
)

// TimeEntry represents one accepted check-in or check-out event.
// Immutable once created except for the manual review transition handled
// by the review workflow.
type TimeEntry struct {
	ID         int64     `json:"id"`
	StoreID    int64     `json:"store_id" db:"store_id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	EntryType  string    `json:"entry_type" db:"entry_type"`
	Status     string    `json:"status" db:"status"`
	ClaimedAt  time.Time `json:"claimed_at" db:"claimed_at"`   // client-claimed instant
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"` // server-received instant
	Latitude   *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude  *float64  `json:"longitude,omitempty" db:"longitude"`
	TimeWindow int64     `json:"time_window" db:"time_window"` // window the token was validated against
}

// Shift is a scheduled interval, consumed read-only to show "today's
// shift" on the display surface. Worked minutes never derive from it.
type Shift struct {
	ID           int64     `json:"id"`
	StoreID      int64     `json:"store_id" db:"store_id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	StartTime    time.Time `json:"start_time" db:"start_time"`
	EndTime      time.Time `json:"end_time" db:"end_time"`
	BreakMinutes int       `json:"break_minutes" db:"break_minutes"`
	Notes        *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
