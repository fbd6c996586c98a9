package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timeclock_backend/internal/models"
	"timeclock_backend/internal/repositories"
	"timeclock_backend/internal/token"
	"timeclock_backend/pkg/utils"
)

// --- Custom Service Errors for Check-In ---
var (
	ErrStoreMismatch       = errors.New("scanned payload belongs to a different store")
	ErrTokenInvalid        = errors.New("token is invalid, expired, or from a rotated-away generation")
	ErrDuplicateSubmission = errors.New("an entry for this token was already accepted")
	ErrInvalidEntryType    = errors.New("entry type must be CHECK_IN or CHECK_OUT")
)

// CheckInRequest is a scanned submission.
type CheckInRequest struct {
	Payload   string     `json:"payload" binding:"required"`
	EntryType string     `json:"entry_type" binding:"required"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	ClaimedAt *time.Time `json:"claimed_at"`
}

// CheckInService validates scanned payloads and appends time entries.
// Each submission is evaluated independently:
// Received -> {StoreMismatch, TokenInvalid, Accepted}.
type CheckInService interface {
	Submit(storeID, userID int64, req CheckInRequest) (*models.TimeEntry, error)
	// LatestEntry backs the client-side "next action" heuristic.
	LatestEntry(storeID, userID int64) (*models.TimeEntry, error)
	// TodayShifts returns the scheduled intervals for the display surface.
	TodayShifts(storeID, userID int64) ([]models.Shift, error)
}

type checkInService struct {
	secretRepo repositories.StoreSecretRepository
	entryRepo  repositories.TimeEntryRepository
	shiftRepo  repositories.ShiftRepository
	db         *sql.DB
	clock      token.Clock
	tolerance  uint
}

// NewCheckInService creates a new instance of CheckInService.
func NewCheckInService(
	secretRepo repositories.StoreSecretRepository,
	entryRepo repositories.TimeEntryRepository,
	shiftRepo repositories.ShiftRepository,
	db *sql.DB,
	clock token.Clock,
) CheckInService {
	return &checkInService{
		secretRepo: secretRepo,
		entryRepo:  entryRepo,
		shiftRepo:  shiftRepo,
		db:         db,
		clock:      clock,
		tolerance:  token.DefaultToleranceWindows,
	}
}

func (s *checkInService) Submit(storeID, userID int64, req CheckInRequest) (*models.TimeEntry, error) {
	if req.EntryType != models.EntryTypeCheckIn && req.EntryType != models.EntryTypeCheckOut {
		return nil, ErrInvalidEntryType
	}

	payloadStoreID, submitted, err := ParseCheckinPayload(req.Payload)
	if err != nil {
		return nil, err
	}

	// Cheap rejection before any secret lookup: a code scanned at the
	// wrong store never reaches the token engine.
	if payloadStoreID != storeID {
		return nil, fmt.Errorf("%w: payload store %d, request store %d", ErrStoreMismatch, payloadStoreID, storeID)
	}

	// One row read gives a consistent (secret, generation) snapshot for
	// the whole verification; a rotation landing mid-call either fully
	// precedes or fully follows it.
	secret, err := s.secretRepo.GetByStoreID(storeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSecretNotProvisioned
		}
		return nil, fmt.Errorf("failed to load store secret: %w", err)
	}

	now := s.clock.Now()
	matchedWindow, ok := token.MatchedWindow(secret.Secret, secret.Generation, submitted, now, s.tolerance)
	if !ok {
		return nil, ErrTokenInvalid
	}

	status := models.EntryStatusPendingReview
	if plausibleCoordinates(req.Latitude, req.Longitude) {
		status = models.EntryStatusApproved
	}

	claimedAt := now
	if req.ClaimedAt != nil {
		claimedAt = *req.ClaimedAt
	}

	entry := &models.TimeEntry{
		StoreID:    storeID,
		UserID:     userID,
		EntryType:  req.EntryType,
		Status:     status,
		ClaimedAt:  claimedAt,
		RecordedAt: now,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		TimeWindow: matchedWindow,
	}

	// The insert and the replay check are one atomic step: the unique
	// index over (user, store, type, window) rejects a second accepted
	// submission even when two replays race. The window stored is the one
	// the token matched, so a replay that drifts into the next window
	// still collides with the original tuple.
	created, err := s.entryRepo.Create(s.db, entry)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: user %d store %d type %s window %d",
				ErrDuplicateSubmission, userID, storeID, req.EntryType, entry.TimeWindow)
		}
		return nil, fmt.Errorf("failed to record time entry: %w", err)
	}

	utils.LogInfo("Time entry recorded", map[string]interface{}{
		"store_id":   storeID,
		"user_id":    userID,
		"entry_type": req.EntryType,
		"status":     status,
	})
	return created, nil
}

func (s *checkInService) LatestEntry(storeID, userID int64) (*models.TimeEntry, error) {
	entry, err := s.entryRepo.GetLatest(storeID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load latest entry: %w", err)
	}
	return entry, nil
}

func (s *checkInService) TodayShifts(storeID, userID int64) ([]models.Shift, error) {
	shifts, err := s.shiftRepo.GetForDate(storeID, userID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load today's shifts: %w", err)
	}
	return shifts, nil
}

// plausibleCoordinates reports whether both coordinates are present and
// inside valid latitude/longitude bounds. Implausible or missing GPS
// downgrades the entry to PENDING_REVIEW; it never rejects the event.
func plausibleCoordinates(lat, lng *float64) bool {
	if lat == nil || lng == nil {
		return false
	}
	if *lat < -90 || *lat > 90 {
		return false
	}
	if *lng < -180 || *lng > 180 {
		return false
	}
	return true
}
