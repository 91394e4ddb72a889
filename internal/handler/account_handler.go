package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/listtoshift/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// Withdraw はアカウントの退会処理を実行する。
	Withdraw(ctx context.Context, accountID string) error
	// Donations は寄付履歴を新しい順に返す。
	Donations(ctx context.Context, accountID string) ([]*model.PaymentEvent, error)
}

// AccountHandler はアカウント管理のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// Withdraw はアカウントの退会処理を実行する。
// DELETE /api/accounts/me
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	a, ok := requireAccount(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), a.ID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Donations は寄付履歴を返す。
// GET /api/accounts/me/donations
func (h *AccountHandler) Donations(w http.ResponseWriter, r *http.Request) {
	a, ok := requireAccount(w, r)
	if !ok {
		return
	}

	events, err := h.service.Donations(r.Context(), a.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"donations": events})
}
