// Package webhook implements the Layercode webhook contract: signature
// verification, typed event parsing, and the SSE stream helper used to
// answer turn-scoped events.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the request header carrying the webhook signature.
const SignatureHeader = "layercode-signature"

// DefaultTolerance bounds the allowed clock skew between the timestamp
// embedded in the signature and the verifier's clock.
const DefaultTolerance = 300 * time.Second

var (
	ErrMissingSignature   = errors.New("missing signature header")
	ErrMalformedSignature = errors.New("malformed signature header")
	ErrInvalidTimestamp   = errors.New("invalid timestamp in signature header")
	ErrStaleTimestamp     = errors.New("signature timestamp outside tolerance window")
	ErrSignatureMismatch  = errors.New("signature mismatch")
)

// Verify checks that payload was signed with secret. The header format is
// comma-separated k=v items where "t" is a unix-seconds timestamp and "v1"
// is the lowercase hex HMAC-SHA256 of "<t>.<payload>". payload must be the
// exact request body bytes; re-serialized JSON breaks the digest.
//
// The timestamp window is inclusive: a signature aged exactly tolerance is
// accepted, tolerance+1s is rejected. Digest comparison is constant-time.
func Verify(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrMissingSignature
	}

	components := make(map[string]string)
	for _, item := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			return ErrMalformedSignature
		}
		components[k] = v
	}

	timestampStr := components["t"]
	providedSig := components["v1"]
	if timestampStr == "" || providedSig == "" {
		return fmt.Errorf("%w: missing required fields", ErrMalformedSignature)
	}

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}

	expected := computeDigest(payload, secret, timestampStr)
	digestOK := hmac.Equal([]byte(expected), []byte(providedSig))

	// The digest is always computed and compared before the window check so
	// rejection paths stay indistinguishable in timing.
	skew := now.Unix() - timestamp
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Second > tolerance {
		return ErrStaleTimestamp
	}

	if !digestOK {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign produces a signature header accepted by Verify. Local tooling uses
// it to exercise a backend without real platform deliveries.
func Sign(payload []byte, secret string, at time.Time) string {
	timestampStr := strconv.FormatInt(at.Unix(), 10)
	return "t=" + timestampStr + ",v1=" + computeDigest(payload, secret, timestampStr)
}

func computeDigest(payload []byte, secret, timestampStr string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestampStr))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
