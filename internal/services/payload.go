package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Scanned payload format: timeclock://checkin/{storeId}/{token}.
// Any deviation — wrong scheme, missing segments, non-numeric or
// wrong-width token — is a parse failure.
const (
	payloadScheme = "timeclock"
	payloadHost   = "checkin"
	tokenDigits   = 6
)

// ErrMalformedPayload is returned when a scanned payload does not parse.
// The handler layer collapses it into the same generic rejection as a
// stale token; it exists separately for server-side diagnostics only.
var ErrMalformedPayload = errors.New("malformed check-in payload")

// BuildCheckinPayload renders the opaque payload string encoded into the QR code.
func BuildCheckinPayload(storeID int64, token string) string {
	return fmt.Sprintf("%s://%s/%d/%s", payloadScheme, payloadHost, storeID, token)
}

// ParseCheckinPayload extracts (storeID, token) from a scanned payload.
func ParseCheckinPayload(payload string) (int64, string, error) {
	rest, ok := strings.CutPrefix(payload, payloadScheme+"://"+payloadHost+"/")
	if !ok {
		return 0, "", ErrMalformedPayload
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return 0, "", ErrMalformedPayload
	}
	storeID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || storeID <= 0 {
		return 0, "", ErrMalformedPayload
	}
	tokenStr := parts[1]
	if len(tokenStr) != tokenDigits {
		return 0, "", ErrMalformedPayload
	}
	for _, r := range tokenStr {
		if r < '0' || r > '9' {
			return 0, "", ErrMalformedPayload
		}
	}
	return storeID, tokenStr, nil
}
