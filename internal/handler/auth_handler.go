package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/listtoshift/internal/account"
	"github.com/hitoshi/listtoshift/internal/model"
)

// CredentialServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type CredentialServiceInterface interface {
	Signup(ctx context.Context, email, password string) (*model.SignedToken, error)
	Login(ctx context.Context, email, password string) (*model.SignedToken, error)
}

// AuthHandler はメールアドレス・パスワード認証のHTTPハンドラー。
type AuthHandler struct {
	service CredentialServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service CredentialServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// credentialsRequest はsignup/loginのリクエストボディ。
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup はアカウントを作成し、Bearerトークンを返す。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.service.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, token)
}

// Login はメールアドレスとパスワードを検証し、Bearerトークンを返す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// Me は現在のログインアカウント情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	a, ok := requireAccount(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, account.ProfileOf(a))
}
