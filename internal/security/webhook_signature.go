package security

import (
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/hitoshi/listtoshift/internal/model"
)

// DefaultWebhookTolerance は署名タイムスタンプの許容ずれ。
const DefaultWebhookTolerance = 5 * time.Minute

// WebhookVerifier はStripe-Signatureヘッダーを検証するインターフェース。
type WebhookVerifier interface {
	// Verify は生のリクエストボディと署名ヘッダーを検証する。
	// 失敗した場合はmodel.ErrSignatureVerificationFailureをラップしたエラーを返す。
	Verify(payload []byte, signatureHeader string) error
}

// StripeSignatureVerifier はStripeの "t=<unix>,v1=<hex>" 形式の署名を検証する。
// HMAC-SHA256の比較は定数時間で行われる。
type StripeSignatureVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewStripeSignatureVerifier はStripeSignatureVerifierを生成する。
func NewStripeSignatureVerifier(secret string, tolerance time.Duration) *StripeSignatureVerifier {
	if tolerance <= 0 {
		tolerance = DefaultWebhookTolerance
	}
	return &StripeSignatureVerifier{secret: secret, tolerance: tolerance}
}

// Verify はペイロードを解析する前に署名とタイムスタンプを検証する。
func (v *StripeSignatureVerifier) Verify(payload []byte, signatureHeader string) error {
	if v.secret == "" {
		return fmt.Errorf("%w: webhook secret is not configured", model.ErrSignatureVerificationFailure)
	}
	if signatureHeader == "" {
		return fmt.Errorf("%w: missing signature header", model.ErrSignatureVerificationFailure)
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, signatureHeader, v.secret, v.tolerance); err != nil {
		return fmt.Errorf("%w: %v", model.ErrSignatureVerificationFailure, err)
	}
	return nil
}

var _ WebhookVerifier = (*StripeSignatureVerifier)(nil)
