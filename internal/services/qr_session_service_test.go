package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"sync/atomic"
	"testing"
	"time"

	"timeclock_backend/internal/models"
	"timeclock_backend/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var qrNow = time.Date(2026, 3, 9, 14, 0, 5, 0, time.UTC)

func newQRFixture() (*fakeStoreSecretRepo, *token.FixedClock, QRSessionService) {
	secretRepo := newFakeStoreSecretRepo()
	secretRepo.provision(testStoreID, []byte("12345678901234567890"), 1)
	clock := token.NewFixedClock(qrNow)
	return secretRepo, clock, NewQRSessionService(secretRepo, nil, clock)
}

func TestIssueProducesScannableSession(t *testing.T) {
	_, _, svc := newQRFixture()

	session, err := svc.Issue(testStoreID)
	require.NoError(t, err)

	assert.Equal(t, testStoreID, session.StoreID)
	assert.Equal(t, token.WindowEnd(qrNow), session.ExpiresAt)
	assert.True(t, session.ExpiresAt.After(qrNow))

	storeID, code, err := ParseCheckinPayload(session.Payload)
	require.NoError(t, err, "issued payload must parse with the scanner's own parser")
	assert.Equal(t, testStoreID, storeID)
	assert.Equal(t, session.Token, code)

	png, err := base64.StdEncoding.DecodeString(session.QRPNGBase64)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "rendered image must be a PNG")
}

func TestIssueTokenVerifies(t *testing.T) {
	secretRepo, clock, svc := newQRFixture()

	session, err := svc.Issue(testStoreID)
	require.NoError(t, err)

	secret, err := secretRepo.GetByStoreID(testStoreID)
	require.NoError(t, err)
	assert.True(t, token.Verify(secret.Secret, secret.Generation, session.Token, clock.Now(), 0))
}

func TestIssueWithoutProvisionedSecret(t *testing.T) {
	secretRepo, clock, _ := newQRFixture()
	svc := NewQRSessionService(secretRepo, nil, clock)

	_, err := svc.Issue(999)
	assert.ErrorIs(t, err, ErrSecretNotProvisioned)
}

func TestRotateSecretIncrementsGeneration(t *testing.T) {
	secretRepo, clock, svc := newQRFixture()

	before, err := svc.Issue(testStoreID)
	require.NoError(t, err)

	rotated, err := svc.RotateSecret(testStoreID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rotated.Generation)

	// The pre-rotation token is dead under the new generation.
	secret, err := secretRepo.GetByStoreID(testStoreID)
	require.NoError(t, err)
	assert.False(t, token.Verify(secret.Secret, secret.Generation, before.Token, clock.Now(), 1))

	after, err := svc.Issue(testStoreID)
	require.NoError(t, err)
	assert.NotEqual(t, before.Token, after.Token)
}

func TestRotateSecretProvisionsFirstGeneration(t *testing.T) {
	secretRepo, clock, _ := newQRFixture()
	svc := NewQRSessionService(secretRepo, nil, clock)

	bareStore := int64(77)
	secretRepo.stores[bareStore] = true

	rotated, err := svc.RotateSecret(bareStore)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rotated.Generation)
	assert.Len(t, rotated.Secret, storeSecretBytes)

	_, err = svc.Issue(bareStore)
	assert.NoError(t, err, "rotation provisions; issuance works immediately after")
}

func TestRotateSecretUnknownStore(t *testing.T) {
	_, _, svc := newQRFixture()

	_, err := svc.RotateSecret(12345)
	assert.ErrorIs(t, err, ErrStoreNotFound)
}

// stubQRService counts issuances for the refresher tests.
type stubQRService struct {
	issued atomic.Int64
}

func (s *stubQRService) Issue(storeID int64) (*QRSession, error) {
	s.issued.Add(1)
	return &QRSession{StoreID: storeID, Token: "000000"}, nil
}

func (s *stubQRService) RotateSecret(int64) (*models.StoreSecret, error) {
	panic("not used by refresher")
}

func TestQRRefresherIssuesOnCadence(t *testing.T) {
	stub := &stubQRService{}
	var delivered atomic.Int64
	refresher := NewQRRefresher(stub, testStoreID, 5*time.Millisecond, func(session *QRSession) {
		assert.Equal(t, testStoreID, session.StoreID)
		delivered.Add(1)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	refresher.Run(ctx)

	assert.GreaterOrEqual(t, stub.issued.Load(), int64(2),
		"one immediate issue plus at least one tick")
	assert.Equal(t, stub.issued.Load(), delivered.Load())
}

func TestQRRefresherStopsOnCancel(t *testing.T) {
	stub := &stubQRService{}
	refresher := NewQRRefresher(stub, testStoreID, time.Millisecond, func(*QRSession) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refresher.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
}

func TestQRRefresherAlignsToWindowBoundary(t *testing.T) {
	refresher := NewQRRefresher(&stubQRService{}, testStoreID, DefaultRefreshInterval, func(*QRSession) {})

	// Started 18s into a window only 12s remain; the next refresh must
	// land on the boundary, not a full interval later.
	refresher.clock = token.NewFixedClock(time.Date(2026, 3, 9, 14, 0, 18, 0, time.UTC))
	assert.Equal(t, 12*time.Second, refresher.nextDelay())

	// Early in the window the configured cadence governs.
	refresher.clock = token.NewFixedClock(time.Date(2026, 3, 9, 14, 0, 2, 0, time.UTC))
	assert.Equal(t, DefaultRefreshInterval, refresher.nextDelay())

	// On the boundary itself a full window remains.
	refresher.clock = token.NewFixedClock(time.Date(2026, 3, 9, 14, 0, 30, 0, time.UTC))
	assert.Equal(t, DefaultRefreshInterval, refresher.nextDelay())
}

func TestQRRefresherDefaultInterval(t *testing.T) {
	refresher := NewQRRefresher(&stubQRService{}, testStoreID, 0, func(*QRSession) {})
	assert.Equal(t, DefaultRefreshInterval, refresher.interval)
}
