package model

import (
	"errors"
	"fmt"
)

// サービス層が返すセンチネルエラー。呼び出し側はerrors.Isで判定する。
var (
	ErrInvalidInput                 = errors.New("invalid input")
	ErrDuplicateAccount             = errors.New("account already exists")
	ErrAuthenticationFailure        = errors.New("authentication failed")
	ErrAccountNotFound              = errors.New("account not found")
	ErrDelegationNotLinked          = errors.New("spotify account is not linked")
	ErrUpstreamUnavailable          = errors.New("upstream unavailable")
	ErrSignatureVerificationFailure = errors.New("webhook signature verification failed")
	ErrInvalidPayload               = errors.New("invalid webhook payload")
	ErrInvalidState                 = errors.New("invalid oauth state")
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, spotify, payment, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeEmailAlreadyExists   = "EMAIL_ALREADY_EXISTS"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	ErrCodeSpotifyNotLinked     = "SPOTIFY_NOT_LINKED"
	ErrCodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
	ErrCodeInvalidOAuthState    = "INVALID_OAUTH_STATE"
	ErrCodeInvalidSignature     = "INVALID_SIGNATURE"
	ErrCodeInvalidPayload       = "INVALID_PAYLOAD"
	ErrCodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServerError  = "INTERNAL_ERROR"
	ErrCodePaymentUnavailable   = "PAYMENT_UNAVAILABLE"
)

// NewInvalidInputError は入力値不正エラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewEmailAlreadyExistsError は登録済みメールアドレスのエラーを生成する。
func NewEmailAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyExists,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewUnauthorizedError は認証失敗エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewAccountNotFoundError はアカウントが見つからない場合のエラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "アカウントが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewSpotifyNotLinkedError はSpotify未連携エラーを生成する。
func NewSpotifyNotLinkedError() *APIError {
	return &APIError{
		Code:     ErrCodeSpotifyNotLinked,
		Message:  "Spotifyアカウントが連携されていません。",
		Category: "spotify",
		Action:   "Spotifyとの連携を行ってから再度お試しください。",
	}
}

// NewUpstreamUnavailableError は外部サービス到達不能エラーを生成する。
func NewUpstreamUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  "外部サービスとの通信に失敗しました。",
		Category: "spotify",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidOAuthStateError はOAuth stateの検証失敗エラーを生成する。
func NewInvalidOAuthStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOAuthState,
		Message:  "認可リクエストが無効または期限切れです。",
		Category: "spotify",
		Action:   "Spotify連携を最初からやり直してください。",
	}
}

// NewInvalidSignatureError はWebhook署名検証失敗エラーを生成する。
func NewInvalidSignatureError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignature,
		Message:  "Webhook署名の検証に失敗しました。",
		Category: "payment",
		Action:   "署名シークレットの設定を確認してください。",
	}
}

// NewInvalidPayloadError はWebhookペイロード不正エラーを生成する。
func NewInvalidPayloadError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPayload,
		Message:  "Webhookペイロードを解析できませんでした。",
		Category: "payment",
		Action:   "送信元のイベント形式を確認してください。",
	}
}

// NewPaymentUnavailableError は決済セッション作成失敗エラーを生成する。
func NewPaymentUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodePaymentUnavailable,
		Message:  "決済ページを作成できませんでした。",
		Category: "payment",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalServerError は内部エラーを生成する。
func NewInternalServerError() *APIError {
	return &APIError{
		Code:     ErrCodeInternalServerError,
		Message:  "サーバー内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
