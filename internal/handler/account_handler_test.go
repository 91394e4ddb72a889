package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/listtoshift/internal/middleware"
	"github.com/hitoshi/listtoshift/internal/model"
)

// withAccount はテスト用にBearer認証済みのコンテキストを付与する。
func withAccount(r *http.Request, id string) *http.Request {
	return r.WithContext(middleware.ContextWithAccount(r.Context(), &model.Account{ID: id}))
}

func TestAccountHandler_Withdraw_NoContent(t *testing.T) {
	var gotID string
	svc := &mockAccountService{
		withdrawFn: func(ctx context.Context, accountID string) error {
			gotID = accountID
			return nil
		},
	}
	h := NewAccountHandler(svc)

	req := withAccount(httptest.NewRequest(http.MethodDelete, "/api/accounts/me", nil), "acc-1")
	w := httptest.NewRecorder()
	h.Withdraw(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotID != "acc-1" {
		t.Errorf("accountID = %q, want %q", gotID, "acc-1")
	}
}

func TestAccountHandler_Withdraw_NotFound(t *testing.T) {
	svc := &mockAccountService{
		withdrawFn: func(ctx context.Context, accountID string) error {
			return model.ErrAccountNotFound
		},
	}
	h := NewAccountHandler(svc)

	req := withAccount(httptest.NewRequest(http.MethodDelete, "/api/accounts/me", nil), "acc-gone")
	w := httptest.NewRecorder()
	h.Withdraw(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAccountHandler_Withdraw_Unauthenticated(t *testing.T) {
	h := NewAccountHandler(&mockAccountService{
		withdrawFn: func(ctx context.Context, accountID string) error {
			t.Error("Withdraw must not be called without an account")
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/accounts/me", nil)
	w := httptest.NewRecorder()
	h.Withdraw(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAccountHandler_Donations(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockAccountService{
		donationsFn: func(ctx context.Context, accountID string) ([]*model.PaymentEvent, error) {
			return []*model.PaymentEvent{
				{ID: "pe-1", ExternalPaymentID: "pi_1", Amount: 500, Currency: "usd", CreatedAt: createdAt},
			}, nil
		},
	}
	h := NewAccountHandler(svc)

	req := withAccount(httptest.NewRequest(http.MethodGet, "/api/accounts/me/donations", nil), "acc-1")
	w := httptest.NewRecorder()
	h.Donations(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got struct {
		Donations []map[string]interface{} `json:"donations"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(got.Donations) != 1 {
		t.Fatalf("len(donations) = %d, want 1", len(got.Donations))
	}
	if got.Donations[0]["externalPaymentId"] != "pi_1" {
		t.Errorf("externalPaymentId = %v", got.Donations[0]["externalPaymentId"])
	}
	if _, ok := got.Donations[0]["accountRef"]; ok {
		t.Error("accountRef must not be exposed")
	}
}

func TestAccountHandler_Donations_EmptyIsArray(t *testing.T) {
	h := NewAccountHandler(&mockAccountService{})

	req := withAccount(httptest.NewRequest(http.MethodGet, "/api/accounts/me/donations", nil), "acc-1")
	w := httptest.NewRecorder()
	h.Donations(w, req)

	if got := w.Body.String(); got != "{\"donations\":[]}\n" {
		t.Errorf("body = %q, want empty array", got)
	}
}
