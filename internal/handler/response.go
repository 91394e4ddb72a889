// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/listtoshift/internal/middleware"
	"github.com/hitoshi/listtoshift/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// writeJSON はステータスコード付きでJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディを上限付きでデコードする。
// 失敗した場合は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(v); err != nil {
		reason := "リクエストボディの解析に失敗しました"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			reason = "リクエストボディが大きすぎます"
		} else if errors.Is(err, io.EOF) {
			reason = "リクエストボディが空です"
		}
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError(reason))
		return false
	}
	return true
}

// requireAccount はBearer認証済みのアカウントを取り出す。
// 見つからない場合は401を書き込みfalseを返す。
func requireAccount(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return nil, false
	}
	return account, true
}
