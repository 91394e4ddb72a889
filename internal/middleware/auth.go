// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/listtoshift/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// accountContextKey はリクエストコンテキストに認証済みアカウントを格納するためのキー。
	accountContextKey = contextKey("account")
	// requestInfoContextKey はロギング用の可変なリクエスト情報を格納するためのキー。
	requestInfoContextKey = contextKey("request_info")
)

// BearerValidator はBearerトークンの検証に必要なインターフェース。
// auth.CredentialServiceが満たす。
type BearerValidator interface {
	ValidateBearer(ctx context.Context, token string) (*model.Account, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 認証済みアカウントをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401 Unauthorizedを返す。
func NewBearerAuthMiddleware(validator BearerValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			account, err := validator.ValidateBearer(r.Context(), token)
			if err != nil {
				if !errors.Is(err, model.ErrAuthenticationFailure) {
					slog.Error("failed to validate bearer token",
						slog.String("error", err.Error()),
					)
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAccount(r.Context(), account)))
		})
	}
}

// bearerToken は "Authorization: Bearer <token>" からトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AccountFromContext はリクエストコンテキストから認証済みアカウントを取得する。
// Bearer認証ミドルウェアを通過したリクエストでのみ有効。
func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	account, ok := ctx.Value(accountContextKey).(*model.Account)
	return account, ok && account != nil
}

// AccountIDFromContext はリクエストコンテキストからアカウントIDを取得する。
func AccountIDFromContext(ctx context.Context) (string, bool) {
	account, ok := AccountFromContext(ctx)
	if !ok || account.ID == "" {
		return "", false
	}
	return account.ID, true
}

// ContextWithAccount はコンテキストにアカウントを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAccount(ctx context.Context, account *model.Account) context.Context {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok && account != nil {
		info.accountID = account.ID
	}
	return context.WithValue(ctx, accountContextKey, account)
}
