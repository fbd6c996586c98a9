// Package token derives and verifies the short-lived, store-scoped
// check-in codes. Codes are time-windowed OTPs: a pure function of
// (store secret, secret generation, wall clock), so they are verifiable
// by recomputation and never persisted or cached.
package token

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// WindowSeconds is the validity window of a single code.
	WindowSeconds = 30

	// WindowLength is WindowSeconds as a duration.
	WindowLength = WindowSeconds * time.Second

	// Digits is the fixed width of a rendered code.
	Digits = 6

	// DefaultToleranceWindows is how many adjacent windows Verify accepts
	// around the current one, absorbing clock drift and render-to-scan lag.
	DefaultToleranceWindows = 1
)

var (
	// ErrEmptySecret is returned when a token is requested for a store
	// whose secret material is missing.
	ErrEmptySecret = errors.New("token: empty store secret")

	// ErrTimeBeforeEpoch is returned for clock values that cannot map to
	// a valid time window.
	ErrTimeBeforeEpoch = errors.New("token: time predates unix epoch")
)

// generationSecret folds the rotation generation into the secret before it
// reaches the OTP core. Rotating a store therefore changes every window's
// code without any shared "last issued" state: old-generation codes simply
// stop recomputing.
func generationSecret(secret []byte, generation int64) string {
	mac := hmac.New(sha1.New, secret)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(generation))
	mac.Write(buf[:])
	return base32.StdEncoding.EncodeToString(mac.Sum(nil))
}

// CurrentToken computes the 6-digit code for the window containing now.
func CurrentToken(secret []byte, generation int64, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	if now.Unix() < 0 {
		return "", ErrTimeBeforeEpoch
	}
	code, err := totp.GenerateCodeCustom(generationSecret(secret, generation), now, totp.ValidateOpts{
		Period:    WindowSeconds,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// MatchedWindow recomputes the code for the window containing now and
// for toleranceWindows windows on either side, and reports the index of
// the window whose code equals submitted. The matched index, not the
// submission instant's, identifies the token: replaying a captured code
// in the next window must resolve to the same window it was minted for.
// Malformed input (empty secret, wrong-width or non-numeric code,
// pre-epoch time) matches nothing.
func MatchedWindow(secret []byte, generation int64, submitted string, now time.Time, toleranceWindows uint) (int64, bool) {
	if len(secret) == 0 || now.Unix() < 0 {
		return 0, false
	}
	if len(submitted) != Digits {
		return 0, false
	}
	for _, r := range submitted {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	effectiveSecret := generationSecret(secret, generation)
	base := WindowIndex(now)
	for offset := -int64(toleranceWindows); offset <= int64(toleranceWindows); offset++ {
		idx := base + offset
		if idx < 0 {
			continue
		}
		code, err := totp.GenerateCodeCustom(effectiveSecret, time.Unix(idx*WindowSeconds, 0), totp.ValidateOpts{
			Period:    WindowSeconds,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil {
			return 0, false
		}
		if subtle.ConstantTimeCompare([]byte(code), []byte(submitted)) == 1 {
			return idx, true
		}
	}
	return 0, false
}

// Verify reports whether submitted matches any window inside the
// tolerance. Mismatch and malformation are both "not valid" to the
// caller.
func Verify(secret []byte, generation int64, submitted string, now time.Time, toleranceWindows uint) bool {
	_, ok := MatchedWindow(secret, generation, submitted, now, toleranceWindows)
	return ok
}

// WindowIndex returns the index of the 30-second window containing t.
func WindowIndex(t time.Time) int64 {
	return t.Unix() / WindowSeconds
}

// WindowEnd returns the instant at which the window containing t closes.
// This is the hard expiry a display surface should honor; it is tighter
// than the verifier's tolerance so a refreshed code is always shown
// before the grace period is needed.
func WindowEnd(t time.Time) time.Time {
	return time.Unix((WindowIndex(t)+1)*WindowSeconds, 0).UTC()
}
