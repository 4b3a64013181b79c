package billing

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

// SignatureHeader carries "t=<unix>,v1=<hex hmac>" on payment webhooks
const SignatureHeader = "Payment-Signature"

// DefaultTolerance bounds the age of a signed webhook
const DefaultTolerance = 5 * time.Minute

// Event types
const (
	EventCheckoutCompleted = "checkout.session.completed"
)

var (
	errMissingSignature = errors.New("signature header is missing or malformed")
	errSignatureExpired = errors.New("signature timestamp is outside the tolerance window")
	errSignatureInvalid = errors.New("no signature matches the payload")
)

// Event is the subset of a payment webhook this service reads
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string            `json:"id"`
			ClientReferenceID string            `json:"client_reference_id"`
			PaymentStatus     string            `json:"payment_status"`
			AmountTotal       int64             `json:"amount_total"`
			Metadata          map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// Sign builds a signature header value for payload at the given time
func Sign(secret string, payload []byte, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, computeSignature(secret, ts, payload))
}

// VerifySignature checks a signature header against payload. Any v1 entry
// may match, which allows secret rotation.
func VerifySignature(secret string, payload []byte, header string, tolerance time.Duration, now time.Time) error {
	var (
		ts         int64
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return errMissingSignature
			}
			ts = parsed
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if ts == 0 || len(signatures) == 0 {
		return errMissingSignature
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > tolerance || age < -tolerance {
		return errSignatureExpired
	}

	expected := []byte(computeSignature(secret, ts, payload))
	for _, sig := range signatures {
		if hmac.Equal(expected, []byte(sig)) {
			return nil
		}
	}
	return errSignatureInvalid
}

func computeSignature(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
