package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("12345678901234567890")
	testNow    = time.Date(2026, 3, 9, 10, 30, 12, 0, time.UTC)
)

func TestCurrentTokenRoundTrip(t *testing.T) {
	code, err := CurrentToken(testSecret, 1, testNow)
	require.NoError(t, err)
	require.Len(t, code, Digits)

	assert.True(t, Verify(testSecret, 1, code, testNow, 0),
		"a freshly issued token must verify in its own window with zero tolerance")
}

func TestVerifyAdjacentWindows(t *testing.T) {
	tests := []struct {
		name      string
		offset    time.Duration
		tolerance uint
		want      bool
	}{
		{"same window", 0, 0, true},
		{"previous window inside tolerance", -WindowLength, 1, true},
		{"next window inside tolerance", WindowLength, 1, true},
		{"previous window outside tolerance", -WindowLength, 0, false},
		{"two windows ahead rejected", 2 * WindowLength, 1, false},
		{"two windows behind rejected", -2 * WindowLength, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := CurrentToken(testSecret, 1, testNow.Add(tt.offset))
			require.NoError(t, err)
			assert.Equal(t, tt.want, Verify(testSecret, 1, code, testNow, tt.tolerance))
		})
	}
}

func TestMatchedWindowIdentifiesMintingWindow(t *testing.T) {
	code, err := CurrentToken(testSecret, 1, testNow)
	require.NoError(t, err)
	minted := WindowIndex(testNow)

	idx, ok := MatchedWindow(testSecret, 1, code, testNow, 0)
	require.True(t, ok)
	assert.Equal(t, minted, idx)

	// Verified one window later the code still resolves to the window it
	// was minted for, not the window of the verification instant.
	idx, ok = MatchedWindow(testSecret, 1, code, testNow.Add(WindowLength), 1)
	require.True(t, ok)
	assert.Equal(t, minted, idx)

	idx, ok = MatchedWindow(testSecret, 1, code, testNow.Add(-WindowLength), 1)
	require.True(t, ok)
	assert.Equal(t, minted, idx)

	_, ok = MatchedWindow(testSecret, 1, code, testNow.Add(2*WindowLength), 1)
	assert.False(t, ok)

	_, ok = MatchedWindow(testSecret, 1, "12a456", testNow, 1)
	assert.False(t, ok)
}

func TestVerifyRejectsRotatedGeneration(t *testing.T) {
	code, err := CurrentToken(testSecret, 1, testNow)
	require.NoError(t, err)

	// Same secret bytes, bumped generation: every prior code is dead even
	// inside its original window.
	assert.False(t, Verify(testSecret, 2, code, testNow, 1))

	rotatedCode, err := CurrentToken(testSecret, 2, testNow)
	require.NoError(t, err)
	assert.NotEqual(t, code, rotatedCode)
	assert.True(t, Verify(testSecret, 2, rotatedCode, testNow, 0))
}

func TestVerifyMalformedInput(t *testing.T) {
	code, err := CurrentToken(testSecret, 1, testNow)
	require.NoError(t, err)

	tests := []struct {
		name      string
		secret    []byte
		submitted string
		now       time.Time
	}{
		{"empty secret", nil, code, testNow},
		{"short token", testSecret, "12345", testNow},
		{"long token", testSecret, "1234567", testNow},
		{"non-numeric token", testSecret, "12a456", testNow},
		{"empty token", testSecret, "", testNow},
		{"pre-epoch time", testSecret, code, time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify(tt.secret, 1, tt.submitted, tt.now, 1))
		})
	}
}

func TestCurrentTokenErrors(t *testing.T) {
	_, err := CurrentToken(nil, 1, testNow)
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = CurrentToken(testSecret, 1, time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrTimeBeforeEpoch)
}

func TestWindowArithmetic(t *testing.T) {
	at := time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, at.Unix()/30, WindowIndex(at))
	assert.Equal(t, WindowIndex(at), WindowIndex(at.Add(29*time.Second)))
	assert.Equal(t, WindowIndex(at)+1, WindowIndex(at.Add(30*time.Second)))

	end := WindowEnd(at.Add(12 * time.Second))
	assert.Equal(t, at.Add(30*time.Second), end)
	assert.True(t, end.After(at.Add(12*time.Second)))
}

func TestFixedClock(t *testing.T) {
	clock := NewFixedClock(testNow)
	assert.Equal(t, testNow, clock.Now())

	clock.Advance(45 * time.Second)
	assert.Equal(t, testNow.Add(45*time.Second), clock.Now())

	clock.Set(testNow)
	assert.Equal(t, testNow, clock.Now())
}
