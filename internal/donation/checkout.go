package donation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// ProductName はCheckoutに表示する商品名。
const ProductName = "Support listtoshift"

// SessionCreator はStripe Checkoutセッションの作成インターフェース。
// session.Clientが満たす。
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeSessionCreator はシークレットキーを使うStripeのセッションクライアントを生成する。
func NewStripeSessionCreator(secretKey string) SessionCreator {
	return &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
}

// CheckoutConfig は寄付ページの設定。
type CheckoutConfig struct {
	Amount     int64
	Currency   string
	SuccessURL string
	CancelURL  string
}

// CheckoutService は寄付用のCheckoutセッションを作成する。
type CheckoutService struct {
	sessions SessionCreator
	cfg      CheckoutConfig
}

// NewCheckoutService はCheckoutServiceを生成する。
func NewCheckoutService(sessions SessionCreator, cfg CheckoutConfig) *CheckoutService {
	return &CheckoutService{sessions: sessions, cfg: cfg}
}

// CreateCheckout は1回払いのCheckoutセッションを作成し、決済ページのURLを返す。
// metadata.accountRefにアカウントIDを埋め込み、Webhookで寄付者を特定する。
func (s *CheckoutService) CreateCheckout(ctx context.Context, accountID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(ProductName),
					},
					UnitAmount: stripe.Int64(s.cfg.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		Metadata:   map[string]string{"accountRef": accountID},
	}
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		slog.Error("failed to create checkout session",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess.URL, nil
}
