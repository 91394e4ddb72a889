package handler

import (
	"net/http"

	"github.com/hitoshi/listtoshift/internal/middleware"
)

// handleServiceError はサービス層から返されたエラーを適切なHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	middleware.WriteServiceError(w, err)
}
