package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hitoshi/listtoshift/internal/model"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload はStripe-Signatureヘッダーを組み立てる。
func signPayload(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeSignatureVerifier_Valid(t *testing.T) {
	v := NewStripeSignatureVerifier(testWebhookSecret, 5*time.Minute)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	if err := v.Verify(payload, signPayload(testWebhookSecret, payload, time.Now())); err != nil {
		t.Fatalf("Verify error: %v", err)
	}
}

func TestStripeSignatureVerifier_Failures(t *testing.T) {
	v := NewStripeSignatureVerifier(testWebhookSecret, 5*time.Minute)
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	tests := []struct {
		name    string
		payload []byte
		header  string
	}{
		{"ヘッダーなし", payload, ""},
		{"不正な形式", payload, "garbage"},
		{"別のシークレット", payload, signPayload("whsec_other", payload, now)},
		{"ペイロード改ざん", []byte(`{"id":"evt_2"}`), signPayload(testWebhookSecret, payload, now)},
		{"タイムスタンプが古い", payload, signPayload(testWebhookSecret, payload, now.Add(-10*time.Minute))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.payload, tt.header)
			if !errors.Is(err, model.ErrSignatureVerificationFailure) {
				t.Fatalf("expected ErrSignatureVerificationFailure, got %v", err)
			}
		})
	}
}

func TestStripeSignatureVerifier_EmptySecret(t *testing.T) {
	v := NewStripeSignatureVerifier("", 0)
	payload := []byte(`{}`)

	err := v.Verify(payload, signPayload("", payload, time.Now()))
	if !errors.Is(err, model.ErrSignatureVerificationFailure) {
		t.Fatalf("expected ErrSignatureVerificationFailure, got %v", err)
	}
}
