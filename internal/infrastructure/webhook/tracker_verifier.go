// Package webhook verifies inbound webhook signatures. Verification fails
// closed: every malformed, missing, or mismatched signature is a clean reject
// (false), never an error that could be mistaken for acceptance upstream.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// TrackerVerifier authenticates issue-tracker webhooks. The tracker signs
// each delivery with HMAC-SHA256 over the raw request body and sends the hex
// digest in a header.
type TrackerVerifier struct {
	secret []byte
}

// NewTrackerVerifier creates a verifier with the shared tracker secret
func NewTrackerVerifier(secret string) *TrackerVerifier {
	return &TrackerVerifier{secret: []byte(secret)}
}

// Verify checks the hex signature against the raw body. Comparison is
// constant time.
func (v *TrackerVerifier) Verify(body []byte, signature string) bool {
	if len(v.secret) == 0 || signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	return hmac.Equal(provided, expected)
}
