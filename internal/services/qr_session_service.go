package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"timeclock_backend/internal/models"
	"timeclock_backend/internal/repositories"
	"timeclock_backend/internal/token"
	"timeclock_backend/pkg/utils"

	qrcode "github.com/skip2/go-qrcode"
)

// --- Custom Service Errors shared by the QR and check-in paths ---
var (
	ErrStoreNotFound        = errors.New("store not found")
	ErrSecretNotProvisioned = errors.New("store has no check-in secret provisioned")
	ErrQRGeneration         = errors.New("failed to render QR code")
)

const (
	// storeSecretBytes matches the 160-bit secret size of the OTP scheme.
	storeSecretBytes = 20

	// qrImageSize is the rendered PNG edge length in pixels.
	qrImageSize = 256
)

// QRSession is what a display surface needs to render one code.
type QRSession struct {
	StoreID     int64     `json:"store_id"`
	Payload     string    `json:"payload"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	QRPNGBase64 string    `json:"qr_png_base64"`
}

// QRSessionService issues renderable check-in codes and rotates store
// secrets. Rotation is the only irreversible operation in this subsystem;
// the owner-only check happens in route middleware before this service is
// invoked.
type QRSessionService interface {
	Issue(storeID int64) (*QRSession, error)
	RotateSecret(storeID int64) (*models.StoreSecret, error)
}

type qrSessionService struct {
	secretRepo repositories.StoreSecretRepository
	db         *sql.DB
	clock      token.Clock
}

// NewQRSessionService creates a new instance of QRSessionService.
func NewQRSessionService(secretRepo repositories.StoreSecretRepository, db *sql.DB, clock token.Clock) QRSessionService {
	return &qrSessionService{
		secretRepo: secretRepo,
		db:         db,
		clock:      clock,
	}
}

func (s *qrSessionService) Issue(storeID int64) (*QRSession, error) {
	secret, err := s.secretRepo.GetByStoreID(storeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSecretNotProvisioned
		}
		return nil, fmt.Errorf("failed to load store secret: %w", err)
	}

	now := s.clock.Now()
	code, err := token.CurrentToken(secret.Secret, secret.Generation, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute token for store %d: %w", storeID, err)
	}

	payload := BuildCheckinPayload(storeID, code)
	png, err := qrcode.Encode(payload, qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQRGeneration, err)
	}

	return &QRSession{
		StoreID:     storeID,
		Payload:     payload,
		Token:       code,
		ExpiresAt:   token.WindowEnd(now),
		QRPNGBase64: base64.StdEncoding.EncodeToString(png),
	}, nil
}

func (s *qrSessionService) RotateSecret(storeID int64) (*models.StoreSecret, error) {
	exists, err := s.secretRepo.StoreExists(storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check store for rotation: %w", err)
	}
	if !exists {
		return nil, ErrStoreNotFound
	}

	newSecret := make([]byte, storeSecretBytes)
	if _, err := rand.Read(newSecret); err != nil {
		return nil, fmt.Errorf("failed to generate secret material: %w", err)
	}

	rotated, err := s.secretRepo.Rotate(s.db, storeID, newSecret)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to rotate secret for store %d: %w", storeID, err)
	}
	utils.LogInfo("Store secret rotated", map[string]interface{}{
		"store_id":   storeID,
		"generation": rotated.Generation,
	})
	return rotated, nil
}

// QRRefresher re-issues a store's code on a fixed cadence and hands each
// issuance to a display callback. It is client-local: stopping it cancels
// the loop deterministically and touches no server state beyond the Issue
// calls themselves.
type QRRefresher struct {
	svc      QRSessionService
	storeID  int64
	interval time.Duration
	onIssue  func(*QRSession)
	clock    token.Clock
}

// DefaultRefreshInterval leaves a safety margin inside the 30s window so
// a scan started just before refresh still lands inside the verifier's
// tolerance.
const DefaultRefreshInterval = token.WindowLength - 10*time.Second

// NewQRRefresher creates a refresher for one store's display surface.
// A non-positive interval falls back to DefaultRefreshInterval.
func NewQRRefresher(svc QRSessionService, storeID int64, interval time.Duration, onIssue func(*QRSession)) *QRRefresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &QRRefresher{
		svc:      svc,
		storeID:  storeID,
		interval: interval,
		onIssue:  onIssue,
		clock:    token.SystemClock{},
	}
}

// Run issues immediately, then re-issues until ctx is canceled. Each
// re-issue is scheduled for the earlier of the configured interval and
// the current window's boundary, so a displayed code is replaced no
// later than its ExpiresAt even when the loop starts mid-window.
func (r *QRRefresher) Run(ctx context.Context) {
	for {
		r.issueOnce()

		timer := time.NewTimer(r.nextDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// nextDelay returns how long the currently displayed code may remain on
// screen: the remainder of its window, capped at the refresh interval.
func (r *QRRefresher) nextDelay() time.Duration {
	now := r.clock.Now()
	remaining := token.WindowEnd(now).Sub(now)
	if remaining <= 0 || remaining > r.interval {
		return r.interval
	}
	return remaining
}

func (r *QRRefresher) issueOnce() {
	session, err := r.svc.Issue(r.storeID)
	if err != nil {
		utils.LogError(err, "QRRefresher: failed to issue code")
		return
	}
	r.onIssue(session)
}
