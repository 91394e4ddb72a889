package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/listtoshift/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	BearerValidator   middleware.BearerValidator
	StatusRecorder    middleware.StatusRecorder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	CredentialService CredentialServiceInterface

	// アカウント
	AccountService AccountServiceInterface

	// Spotify連携
	DelegationService DelegationServiceInterface
	BaseURL           string

	// 寄付
	CheckoutService CheckoutServiceInterface
	WebhookIngester WebhookIngesterInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → BearerAuth → RateLimit(General)
//
// signup/loginはIPごとの認証用レート制限、Webhookは署名検証のみで保護する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.CredentialService)
	accountHandler := NewAccountHandler(deps.AccountService)
	spotifyHandler := NewSpotifyHandler(deps.DelegationService, deps.BaseURL)
	donationHandler := NewDonationHandler(deps.CheckoutService, deps.WebhookIngester)

	// --- 認証不要のルート ---

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)
	})

	// Spotifyからのリダイレクトはstateでアカウントを特定する
	r.Get("/spotify/callback", spotifyHandler.Callback)

	r.Post("/donate/webhook", donationHandler.Webhook)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.BearerValidator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/auth/me", authHandler.Me)

		r.Route("/spotify", func(r chi.Router) {
			r.Get("/consent", spotifyHandler.Consent)
			r.Get("/playlists", spotifyHandler.Playlists)
			r.Get("/playlists/{id}", spotifyHandler.Tracks)
		})

		r.Post("/donate", donationHandler.Donate)

		r.Route("/api/accounts/me", func(r chi.Router) {
			r.Delete("/", accountHandler.Withdraw)
			r.Get("/donations", accountHandler.Donations)
		})
	})

	return r
}
