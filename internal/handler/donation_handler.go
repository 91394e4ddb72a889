package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/listtoshift/internal/donation"
	"github.com/hitoshi/listtoshift/internal/middleware"
	"github.com/hitoshi/listtoshift/internal/model"
)

// maxWebhookBodyBytes はStripe Webhookボディの上限。
const maxWebhookBodyBytes = 64 * 1024

// CheckoutServiceInterface は寄付ページ作成のサービスインターフェース。
type CheckoutServiceInterface interface {
	CreateCheckout(ctx context.Context, accountID string) (string, error)
}

// WebhookIngesterInterface はWebhook取り込みのサービスインターフェース。
type WebhookIngesterInterface interface {
	Ingest(ctx context.Context, payload []byte, signatureHeader string) (donation.Outcome, error)
}

// DonationHandler は寄付関連のHTTPハンドラー。
type DonationHandler struct {
	checkout CheckoutServiceInterface
	ingester WebhookIngesterInterface
}

// NewDonationHandler はDonationHandlerを生成する。
func NewDonationHandler(checkout CheckoutServiceInterface, ingester WebhookIngesterInterface) *DonationHandler {
	return &DonationHandler{checkout: checkout, ingester: ingester}
}

// Donate はStripe Checkoutセッションを作成し、決済ページのURLを返す。
// POST /donate
func (h *DonationHandler) Donate(w http.ResponseWriter, r *http.Request) {
	a, ok := requireAccount(w, r)
	if !ok {
		return
	}

	url, err := h.checkout.CreateCheckout(r.Context(), a.ID)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewPaymentUnavailableError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Webhook はStripeからの決済イベントを受け付ける。
// 署名検証のため生のボディをそのまま渡す。
// POST /donate/webhook
func (h *DonationHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewInvalidPayloadError())
			return
		}
		slog.Warn("failed to read webhook body", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPayloadError())
		return
	}

	outcome, err := h.ingester.Ingest(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"received": true,
		"outcome":  outcome,
	})
}
