package billing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	signedAt := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	header := Sign(secret, payload, signedAt)

	tests := []struct {
		name    string
		secret  string
		payload []byte
		header  string
		now     time.Time
		wantErr error
	}{
		{"valid", secret, payload, header, signedAt.Add(time.Minute), nil},
		{"valid at the tolerance edge", secret, payload, header, signedAt.Add(5 * time.Minute), nil},
		{"clock skew within tolerance", secret, payload, header, signedAt.Add(-2 * time.Minute), nil},
		{"too old", secret, payload, header, signedAt.Add(5*time.Minute + time.Second), errSignatureExpired},
		{"from the future", secret, payload, header, signedAt.Add(-6 * time.Minute), errSignatureExpired},
		{"wrong secret", "whsec_other", payload, header, signedAt, errSignatureInvalid},
		{"tampered payload", secret, []byte(`{"id":"evt_2"}`), header, signedAt, errSignatureInvalid},
		{"empty header", secret, payload, "", signedAt, errMissingSignature},
		{"no v1", secret, payload, "t=1716206400", signedAt, errMissingSignature},
		{"bad timestamp", secret, payload, "t=yesterday,v1=abc", signedAt, errMissingSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.secret, tt.payload, tt.header, DefaultTolerance, tt.now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifySignature_AcceptsAnyV1(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s", now.Unix(),
		computeSignature("old-secret", now.Unix(), payload),
		computeSignature("new-secret", now.Unix(), payload),
	)

	assert.NoError(t, VerifySignature("new-secret", payload, header, DefaultTolerance, now))
	assert.NoError(t, VerifySignature("old-secret", payload, header, DefaultTolerance, now))
}
