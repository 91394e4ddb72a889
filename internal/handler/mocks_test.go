package handler

import (
	"context"

	"github.com/hitoshi/listtoshift/internal/donation"
	"github.com/hitoshi/listtoshift/internal/model"
)

// --- モック定義 ---

type mockCredentialService struct {
	signupFn func(ctx context.Context, email, password string) (*model.SignedToken, error)
	loginFn  func(ctx context.Context, email, password string) (*model.SignedToken, error)
}

func (m *mockCredentialService) Signup(ctx context.Context, email, password string) (*model.SignedToken, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockCredentialService) Login(ctx context.Context, email, password string) (*model.SignedToken, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

type mockAccountService struct {
	withdrawFn  func(ctx context.Context, accountID string) error
	donationsFn func(ctx context.Context, accountID string) ([]*model.PaymentEvent, error)
}

func (m *mockAccountService) Withdraw(ctx context.Context, accountID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, accountID)
	}
	return nil
}

func (m *mockAccountService) Donations(ctx context.Context, accountID string) ([]*model.PaymentEvent, error) {
	if m.donationsFn != nil {
		return m.donationsFn(ctx, accountID)
	}
	return []*model.PaymentEvent{}, nil
}

type mockDelegationService struct {
	startConsentFn    func(ctx context.Context, accountID string) (string, error)
	completeConsentFn func(ctx context.Context, state, code string) (string, error)
	listPlaylistsFn   func(ctx context.Context, accountID string) ([]model.Playlist, error)
	listTracksFn      func(ctx context.Context, accountID, playlistID string) ([]model.Track, error)
}

func (m *mockDelegationService) StartConsent(ctx context.Context, accountID string) (string, error) {
	if m.startConsentFn != nil {
		return m.startConsentFn(ctx, accountID)
	}
	return "", nil
}

func (m *mockDelegationService) CompleteConsent(ctx context.Context, state, code string) (string, error) {
	if m.completeConsentFn != nil {
		return m.completeConsentFn(ctx, state, code)
	}
	return "", nil
}

func (m *mockDelegationService) ListPlaylists(ctx context.Context, accountID string) ([]model.Playlist, error) {
	if m.listPlaylistsFn != nil {
		return m.listPlaylistsFn(ctx, accountID)
	}
	return []model.Playlist{}, nil
}

func (m *mockDelegationService) ListTracks(ctx context.Context, accountID, playlistID string) ([]model.Track, error) {
	if m.listTracksFn != nil {
		return m.listTracksFn(ctx, accountID, playlistID)
	}
	return []model.Track{}, nil
}

type mockCheckoutService struct {
	createCheckoutFn func(ctx context.Context, accountID string) (string, error)
}

func (m *mockCheckoutService) CreateCheckout(ctx context.Context, accountID string) (string, error) {
	if m.createCheckoutFn != nil {
		return m.createCheckoutFn(ctx, accountID)
	}
	return "", nil
}

type mockWebhookIngester struct {
	ingestFn func(ctx context.Context, payload []byte, signatureHeader string) (donation.Outcome, error)
}

func (m *mockWebhookIngester) Ingest(ctx context.Context, payload []byte, signatureHeader string) (donation.Outcome, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, payload, signatureHeader)
	}
	return donation.OutcomeRecorded, nil
}

type mockBearerValidator struct {
	validateFn func(ctx context.Context, token string) (*model.Account, error)
}

func (m *mockBearerValidator) ValidateBearer(ctx context.Context, token string) (*model.Account, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, token)
	}
	return nil, model.ErrAuthenticationFailure
}

type mockHealthChecker struct {
	pingFn func(ctx context.Context) error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}
