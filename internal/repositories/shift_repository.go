package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timeclock_backend/internal/models"
)

// ShiftRepository reads scheduled shift intervals. Shifts are owned by
// the scheduling workflow; this subsystem only consumes them to show
// "today's shift" on the display surface.
type ShiftRepository interface {
	GetForDate(storeID, userID int64, date time.Time) ([]models.Shift, error)
}

type shiftRepository struct {
	db *sql.DB
}

// NewShiftRepository creates a new instance of ShiftRepository.
func NewShiftRepository(db *sql.DB) ShiftRepository {
	return &shiftRepository{db: db}
}

func (r *shiftRepository) GetForDate(storeID, userID int64, date time.Time) ([]models.Shift, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	shifts := []models.Shift{}
	query := `SELECT id, store_id, user_id, start_time, end_time, break_minutes, notes, created_at, updated_at
	          FROM shifts
	          WHERE store_id = $1 AND user_id = $2 AND start_time >= $3 AND start_time < $4
	          ORDER BY start_time ASC`

	rows, err := r.db.Query(query, storeID, userID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: querying shifts: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var shift models.Shift
		var notes sql.NullString
		if err := rows.Scan(
			&shift.ID, &shift.StoreID, &shift.UserID, &shift.StartTime, &shift.EndTime,
			&shift.BreakMinutes, &notes, &shift.CreatedAt, &shift.UpdatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("%w: scanning shift: %v", ErrDatabaseError, err)
		}
		if notes.Valid {
			shift.Notes = &notes.String
		}
		shifts = append(shifts, shift)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating shift rows: %v", ErrDatabaseError, err)
	}
	return shifts, nil
}
