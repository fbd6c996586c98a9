package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timeclock_backend/internal/models"

	"github.com/lib/pq" // For pq.Error
)

// TimeEntryRepository defines the interface for time-entry database operations.
type TimeEntryRepository interface {
	// Create inserts an entry. The unique index over
	// (user_id, store_id, entry_type, time_window) is the replay guard:
	// a second accepted submission for the same tuple surfaces as
	// ErrDuplicateKey regardless of arrival order.
	Create(executor SQLExecutor, entry *models.TimeEntry) (*models.TimeEntry, error)
	GetByRange(storeID, userID int64, from, to time.Time) ([]models.TimeEntry, error)
	GetLatest(storeID, userID int64) (*models.TimeEntry, error)
}

type timeEntryRepository struct {
	db *sql.DB
}

// NewTimeEntryRepository creates a new instance of TimeEntryRepository.
func NewTimeEntryRepository(db *sql.DB) TimeEntryRepository {
	return &timeEntryRepository{db: db}
}

func (r *timeEntryRepository) Create(executor SQLExecutor, entry *models.TimeEntry) (*models.TimeEntry, error) {
	query := `INSERT INTO time_entries
	            (store_id, user_id, entry_type, status, claimed_at, recorded_at, latitude, longitude, time_window)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`

	var latitude, longitude sql.NullFloat64
	if entry.Latitude != nil {
		latitude = sql.NullFloat64{Float64: *entry.Latitude, Valid: true}
	}
	if entry.Longitude != nil {
		longitude = sql.NullFloat64{Float64: *entry.Longitude, Valid: true}
	}

	err := executor.QueryRow(query,
		entry.StoreID, entry.UserID, entry.EntryType, entry.Status,
		entry.ClaimedAt, entry.RecordedAt, latitude, longitude, entry.TimeWindow,
	).Scan(&entry.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: entry for user %d store %d type %s window %d already recorded (constraint: %s)",
					ErrDuplicateKey, entry.UserID, entry.StoreID, entry.EntryType, entry.TimeWindow, pqErr.Constraint)
			}
			if pqErr.Code.Name() == "foreign_key_violation" {
				return nil, fmt.Errorf("%w: creating time entry (constraint: %s): %v", ErrNotFound, pqErr.Constraint, err)
			}
		}
		return nil, fmt.Errorf("%w: creating time entry: %v", ErrDatabaseError, err)
	}
	return entry, nil
}

// scanTimeEntryRow scans a single time entry row.
func scanTimeEntryRow(row scanner) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	var latitude, longitude sql.NullFloat64

	err := row.Scan(
		&entry.ID, &entry.StoreID, &entry.UserID, &entry.EntryType, &entry.Status,
		&entry.ClaimedAt, &entry.RecordedAt, &latitude, &longitude, &entry.TimeWindow,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning time entry: %v", ErrDatabaseError, err)
	}

	if latitude.Valid {
		entry.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		entry.Longitude = &longitude.Float64
	}
	return &entry, nil
}

func (r *timeEntryRepository) GetByRange(storeID, userID int64, from, to time.Time) ([]models.TimeEntry, error) {
	entries := []models.TimeEntry{}
	query := `SELECT id, store_id, user_id, entry_type, status, claimed_at, recorded_at, latitude, longitude, time_window
	          FROM time_entries
	          WHERE store_id = $1 AND user_id = $2 AND recorded_at >= $3 AND recorded_at < $4
	          ORDER BY recorded_at ASC, id ASC`

	rows, err := r.db.Query(query, storeID, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: querying time entries: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanTimeEntryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating time entry rows: %v", ErrDatabaseError, err)
	}
	return entries, nil
}

func (r *timeEntryRepository) GetLatest(storeID, userID int64) (*models.TimeEntry, error) {
	query := `SELECT id, store_id, user_id, entry_type, status, claimed_at, recorded_at, latitude, longitude, time_window
	          FROM time_entries
	          WHERE store_id = $1 AND user_id = $2
	          ORDER BY recorded_at DESC, id DESC
	          LIMIT 1`
	return scanTimeEntryRow(r.db.QueryRow(query, storeID, userID))
}
