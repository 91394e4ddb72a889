package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/listtoshift/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalServerError())
}

// WriteServiceError はサービス層のセンチネルエラーをHTTPステータスと統一エラーに変換して書き込む。
// 未知のエラーはログに記録して500を返す。
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError(err.Error()))
	case errors.Is(err, model.ErrDuplicateAccount):
		WriteErrorResponse(w, http.StatusBadRequest, model.NewEmailAlreadyExistsError())
	case errors.Is(err, model.ErrAuthenticationFailure):
		WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
	case errors.Is(err, model.ErrAccountNotFound):
		WriteErrorResponse(w, http.StatusNotFound, model.NewAccountNotFoundError())
	case errors.Is(err, model.ErrDelegationNotLinked):
		WriteErrorResponse(w, http.StatusConflict, model.NewSpotifyNotLinkedError())
	case errors.Is(err, model.ErrInvalidState):
		WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidOAuthStateError())
	case errors.Is(err, model.ErrUpstreamUnavailable):
		WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamUnavailableError())
	case errors.Is(err, model.ErrSignatureVerificationFailure):
		WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidSignatureError())
	case errors.Is(err, model.ErrInvalidPayload):
		WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPayloadError())
	default:
		slog.Error("unhandled service error", slog.String("error", err.Error()))
		WriteInternalServerError(w)
	}
}
