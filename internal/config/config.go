package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Bearer token
	JWTSecret    string        `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"1h"`

	// Stripe
	StripeSecretKey        string        `env:"STRIPE_SECRET_KEY,required,notEmpty"`
	StripeWebhookSecret    string        `env:"STRIPE_WEBHOOK_SECRET,required,notEmpty"`
	StripeWebhookTolerance time.Duration `env:"STRIPE_WEBHOOK_TOLERANCE" envDefault:"5m"`

	// Donation
	DonationSuccessURL string `env:"DONATION_SUCCESS_URL"`
	DonationCancelURL  string `env:"DONATION_CANCEL_URL"`
	DonationAmount     int64  `env:"DONATION_AMOUNT" envDefault:"500"`
	DonationCurrency   string `env:"DONATION_CURRENCY" envDefault:"usd"`

	// Spotify
	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID,required,notEmpty"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET,required,notEmpty"`
	SpotifyRedirectURI  string `env:"SPOTIFY_REDIRECT_URI,required,notEmpty"`
	SpotifyAuthURL      string `env:"SPOTIFY_AUTH_URL" envDefault:"https://accounts.spotify.com"`
	SpotifyAPIURL       string `env:"SPOTIFY_API_URL" envDefault:"https://api.spotify.com"`

	// Upstream
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	UpstreamMaxSize int64         `env:"UPSTREAM_MAX_SIZE" envDefault:"5242880"`

	// OAuth state binding。未設定の場合はプロセス内ストアを使う。
	RedisURL      string        `env:"REDIS_URL"`
	OAuthStateTTL time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	// Rate Limit
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitAuth    int `env:"RATE_LIMIT_AUTH" envDefault:"10"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,required,notEmpty"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`

	// Logging: debug, info, warn, error
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、未設定の変数をまとめてエラーとして返す。
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.JWTExpiresIn <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRES_IN must be positive: %s", cfg.JWTExpiresIn)
	}
	if cfg.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT must be positive: %s", cfg.UpstreamTimeout)
	}
	if cfg.DonationSuccessURL == "" {
		cfg.DonationSuccessURL = cfg.BaseURL + "/donate/success"
	}
	if cfg.DonationCancelURL == "" {
		cfg.DonationCancelURL = cfg.BaseURL + "/donate/cancel"
	}

	return &cfg, nil
}
