package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func trackerSign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestTrackerVerifier(t *testing.T) {
	const secret = "tracker-shared-secret"
	body := []byte(`{"issue":"PRT-101","action":"closed"}`)

	v := NewTrackerVerifier(secret)

	t.Run("accepts valid signature", func(t *testing.T) {
		assert.True(t, v.Verify(body, trackerSign(secret, body)))
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		sig := trackerSign(secret, body)
		tampered := []byte(`{"issue":"PRT-101","action":"reopened"}`)
		assert.False(t, v.Verify(tampered, sig))
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		assert.False(t, v.Verify(body, trackerSign("other-secret", body)))
	})

	t.Run("rejects missing signature", func(t *testing.T) {
		assert.False(t, v.Verify(body, ""))
	})

	t.Run("rejects non-hex signature", func(t *testing.T) {
		assert.False(t, v.Verify(body, "not-hex-at-all"))
	})

	t.Run("rejects when secret not configured", func(t *testing.T) {
		empty := NewTrackerVerifier("")
		assert.False(t, empty.Verify(body, trackerSign("", body)))
	})
}

func identitySign(secret, id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id + "." + timestamp + "." + string(body)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newTestIdentityVerifier(secret string, now time.Time) *IdentityVerifier {
	v := NewIdentityVerifier(secret, DefaultTolerance)
	v.now = func() time.Time { return now }
	return v
}

func TestIdentityVerifier(t *testing.T) {
	const secret = "identity-shared-secret"
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	body := []byte(`{"event":"user.deleted","user_id":"u-42"}`)
	id := "msg_2af9"
	ts := fmt.Sprintf("%d", now.Unix())

	v := newTestIdentityVerifier(secret, now)

	t.Run("accepts valid signature", func(t *testing.T) {
		sig := "v1," + identitySign(secret, id, ts, body)
		assert.True(t, v.Verify(id, ts, body, sig))
	})

	t.Run("accepts when one of several signatures matches", func(t *testing.T) {
		good := "v1," + identitySign(secret, id, ts, body)
		bad := "v1," + identitySign("rotated-out", id, ts, body)
		assert.True(t, v.Verify(id, ts, body, bad+" "+good))
	})

	t.Run("rejects when no signature matches", func(t *testing.T) {
		bad1 := "v1," + identitySign("old-secret", id, ts, body)
		bad2 := "v1," + identitySign("older-secret", id, ts, body)
		assert.False(t, v.Verify(id, ts, body, bad1+" "+bad2))
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		sig := "v1," + identitySign(secret, id, ts, body)
		assert.False(t, v.Verify(id, ts, []byte(`{"event":"user.created"}`), sig))
	})

	t.Run("rejects timestamp outside the replay window", func(t *testing.T) {
		stale := fmt.Sprintf("%d", now.Add(-301*time.Second).Unix())
		sig := "v1," + identitySign(secret, id, stale, body)
		assert.False(t, v.Verify(id, stale, body, sig))

		future := fmt.Sprintf("%d", now.Add(301*time.Second).Unix())
		sig = "v1," + identitySign(secret, id, future, body)
		assert.False(t, v.Verify(id, future, body, sig))
	})

	t.Run("accepts timestamp just inside the window", func(t *testing.T) {
		recent := fmt.Sprintf("%d", now.Add(-299*time.Second).Unix())
		sig := "v1," + identitySign(secret, id, recent, body)
		assert.True(t, v.Verify(id, recent, body, sig))
	})

	t.Run("rejects unknown signature versions", func(t *testing.T) {
		sig := "v2," + identitySign(secret, id, ts, body)
		assert.False(t, v.Verify(id, ts, body, sig))
	})

	t.Run("rejects missing parts", func(t *testing.T) {
		sig := "v1," + identitySign(secret, id, ts, body)
		assert.False(t, v.Verify("", ts, body, sig))
		assert.False(t, v.Verify(id, "", body, sig))
		assert.False(t, v.Verify(id, ts, body, ""))
	})

	t.Run("rejects non-numeric timestamp", func(t *testing.T) {
		sig := "v1," + identitySign(secret, id, "yesterday", body)
		assert.False(t, v.Verify(id, "yesterday", body, sig))
	})
}
