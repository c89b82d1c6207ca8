package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the maximum allowed clock skew between the signed
// timestamp and local time. Deliveries outside the window are replays or
// badly delayed and are rejected.
const DefaultTolerance = 300 * time.Second

// IdentityVerifier authenticates identity-provider webhooks. The provider
// signs `{id}.{timestamp}.{body}` with HMAC-SHA256 and sends one or more
// space-separated `v1,<base64 signature>` entries in the signature header.
type IdentityVerifier struct {
	secret    []byte
	tolerance time.Duration
	// now is swappable for tests
	now func() time.Time
}

// NewIdentityVerifier creates a verifier with the shared secret and replay
// tolerance. A non-positive tolerance falls back to DefaultTolerance.
func NewIdentityVerifier(secret string, tolerance time.Duration) *IdentityVerifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &IdentityVerifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify checks a delivery. id and timestamp come from their own headers,
// sigHeader carries the versioned signature list. Acceptance requires the
// timestamp inside the replay window and at least one v1 entry matching.
func (v *IdentityVerifier) Verify(id, timestamp string, body []byte, sigHeader string) bool {
	if len(v.secret) == 0 || id == "" || timestamp == "" || sigHeader == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	skew := v.now().Sub(time.Unix(ts, 0))
	if skew > v.tolerance || skew < -v.tolerance {
		return false
	}

	signedContent := id + "." + timestamp + "." + string(body)
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(signedContent))
	expected := mac.Sum(nil)

	for _, entry := range strings.Split(sigHeader, " ") {
		version, sig, found := strings.Cut(entry, ",")
		if !found || version != "v1" {
			continue
		}
		provided, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(provided, expected) {
			return true
		}
	}
	return false
}
