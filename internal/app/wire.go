package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/listtoshift/internal/account"
	"github.com/hitoshi/listtoshift/internal/auth"
	"github.com/hitoshi/listtoshift/internal/config"
	"github.com/hitoshi/listtoshift/internal/delegation"
	"github.com/hitoshi/listtoshift/internal/donation"
	"github.com/hitoshi/listtoshift/internal/handler"
	"github.com/hitoshi/listtoshift/internal/metrics"
	"github.com/hitoshi/listtoshift/internal/middleware"
	"github.com/hitoshi/listtoshift/internal/repository"
	"github.com/hitoshi/listtoshift/internal/security"
)

// server はワイヤリング済みのHTTPハンドラーと停止が必要なリソースをまとめる。
type server struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
	registry    *prometheus.Registry
}

// newStateStore はREDIS_URLが設定されていればRedis、なければプロセス内のstateストアを返す。
// 返されるclose関数は必ず呼び出すこと。
func newStateStore(ctx context.Context, cfg *config.Config) (delegation.StateStore, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("using in-memory oauth state store")
		return delegation.NewMemoryStateStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connection established")
	return delegation.NewRedisStateStore(client), func() { client.Close() }, nil
}

// newServer はリポジトリ・サービス・ハンドラーを組み立てる。
func newServer(cfg *config.Config, db *sql.DB, states delegation.StateStore, logger *slog.Logger) (*server, error) {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. リポジトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	paymentRepo := repository.NewPostgresPaymentEventRepo(db)

	// 3. 認証
	hasher, err := security.NewPasswordHasher(security.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create password hasher: %w", err)
	}
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	credentials := auth.NewCredentialService(accountRepo, hasher, tokens, collector)

	// 4. Spotify連携。接続先はSpotifyのホストに限定する
	ssrfGuard := security.NewSSRFGuard(
		security.HostOf(cfg.SpotifyAuthURL),
		security.HostOf(cfg.SpotifyAPIURL),
	)
	spotify := delegation.NewSpotifyClient(delegation.SpotifyConfig{
		ClientID:        cfg.SpotifyClientID,
		ClientSecret:    cfg.SpotifyClientSecret,
		RedirectURL:     cfg.SpotifyRedirectURI,
		AuthURL:         cfg.SpotifyAuthURL,
		APIURL:          cfg.SpotifyAPIURL,
		MaxResponseSize: cfg.UpstreamMaxSize,
	}, ssrfGuard.NewSafeClient(cfg.UpstreamTimeout), security.NewTextSanitizer())
	broker := delegation.NewBroker(accountRepo, spotify, states,
		delegation.WithStateTTL(cfg.OAuthStateTTL),
		delegation.WithUpstreamTimeout(cfg.UpstreamTimeout),
		delegation.WithRecorder(collector),
	)

	// 5. 寄付
	verifier := security.NewStripeSignatureVerifier(cfg.StripeWebhookSecret, cfg.StripeWebhookTolerance)
	ingester := donation.NewIngester(verifier, paymentRepo, collector)
	checkout := donation.NewCheckoutService(
		donation.NewStripeSessionCreator(cfg.StripeSecretKey),
		donation.CheckoutConfig{
			Amount:     cfg.DonationAmount,
			Currency:   cfg.DonationCurrency,
			SuccessURL: cfg.DonationSuccessURL,
			CancelURL:  cfg.DonationCancelURL,
		},
	)

	// 6. アカウント管理
	accounts := account.NewService(accountRepo, paymentRepo)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            logger,
		BearerValidator:   credentials,
		StatusRecorder:    collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		CredentialService: credentials,
		AccountService:    accounts,
		DelegationService: broker,
		BaseURL:           cfg.BaseURL,
		CheckoutService:   checkout,
		WebhookIngester:   ingester,
	})

	return &server{
		handler:     router,
		rateLimiter: rateLimiter,
		registry:    registry,
	}, nil
}
