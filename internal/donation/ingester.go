// Package donation はStripeによる寄付の受付（Checkoutセッション作成）と
// 決済完了Webhookの冪等な取り込みを提供する。
package donation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"

	"github.com/hitoshi/listtoshift/internal/model"
	"github.com/hitoshi/listtoshift/internal/repository"
	"github.com/hitoshi/listtoshift/internal/security"
)

// Outcome はWebhook 1件の処理結果。
type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// 決済完了として扱うイベント種別
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentCompleted         = "payment.completed"
)

// WebhookRecorder はWebhook処理結果のメトリクス記録インターフェース。
type WebhookRecorder interface {
	RecordWebhook(outcome string)
}

// Ingester は署名付きWebhookを検証し、決済イベントを一度だけ記録する。
type Ingester struct {
	verifier security.WebhookVerifier
	payments repository.PaymentEventRepository
	recorder WebhookRecorder
	now      func() time.Time
}

// NewIngester はIngesterを生成する。recorderはnilでもよい。
func NewIngester(verifier security.WebhookVerifier, payments repository.PaymentEventRepository, recorder WebhookRecorder) *Ingester {
	return &Ingester{
		verifier: verifier,
		payments: payments,
		recorder: recorder,
		now:      time.Now,
	}
}

// paymentObject はdata.objectのうち記録に必要なフィールド。
type paymentObject struct {
	ID            string            `json:"id"`
	PaymentIntent json.RawMessage   `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// Ingest は署名を検証してからペイロードを解析する。
// 同じ決済IDの再送はOutcomeDuplicateとして成功扱いにする。
// 未知のイベント種別はOutcomeIgnoredとして受理する。
func (i *Ingester) Ingest(ctx context.Context, payload []byte, signatureHeader string) (Outcome, error) {
	if err := i.verifier.Verify(payload, signatureHeader); err != nil {
		i.record("rejected")
		slog.Warn("webhook signature rejected", slog.String("error", err.Error()))
		return "", err
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		i.record("invalid")
		return "", fmt.Errorf("%w: %v", model.ErrInvalidPayload, err)
	}

	eventType := string(event.Type)
	if eventType != EventCheckoutSessionCompleted && eventType != EventPaymentCompleted {
		i.record(string(OutcomeIgnored))
		slog.Info("webhook event ignored",
			slog.String("event_id", event.ID),
			slog.String("type", eventType),
		)
		return OutcomeIgnored, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		i.record("invalid")
		return "", fmt.Errorf("%w: missing data.object", model.ErrInvalidPayload)
	}

	var obj paymentObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		i.record("invalid")
		return "", fmt.Errorf("%w: %v", model.ErrInvalidPayload, err)
	}

	externalID := paymentIntentID(obj.PaymentIntent)
	if externalID == "" {
		externalID = obj.ID
	}
	if externalID == "" {
		i.record("invalid")
		return "", fmt.Errorf("%w: missing payment id", model.ErrInvalidPayload)
	}

	accountRef := obj.Metadata["accountRef"]
	if accountRef == "" {
		accountRef = obj.Metadata["userId"]
	}

	pe := &model.PaymentEvent{
		ID:                uuid.New().String(),
		AccountRef:        accountRef,
		ExternalPaymentID: externalID,
		Amount:            obj.AmountTotal,
		Currency:          obj.Currency,
		EventType:         eventType,
		CreatedAt:         i.now(),
	}

	inserted, err := i.payments.InsertIfAbsent(ctx, pe)
	if err != nil {
		i.record("error")
		return "", fmt.Errorf("failed to record payment event: %w", err)
	}
	if !inserted {
		i.record(string(OutcomeDuplicate))
		slog.Info("duplicate payment event skipped",
			slog.String("external_payment_id", externalID),
		)
		return OutcomeDuplicate, nil
	}

	i.record(string(OutcomeRecorded))
	slog.Info("payment event recorded",
		slog.String("external_payment_id", externalID),
		slog.String("account_ref", accountRef),
		slog.Int64("amount", pe.Amount),
		slog.String("currency", pe.Currency),
	)
	return OutcomeRecorded, nil
}

// paymentIntentID はpayment_intentが文字列でも展開済みオブジェクトでもIDを取り出す。
func paymentIntentID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

func (i *Ingester) record(outcome string) {
	if i.recorder != nil {
		i.recorder.RecordWebhook(outcome)
	}
}
