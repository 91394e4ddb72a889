package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/listtoshift/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // API全般のバーストサイズ
	AuthRate        rate.Limit    // signup/loginのレート（req/sec）。10/60
	AuthBurst       int           // signup/loginのバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/account、認証 10 req/min/IP。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return NewRateLimiterConfig(120, 10)
}

// NewRateLimiterConfig は1分あたりのリクエスト数からレート制限設定を組み立てる。
func NewRateLimiterConfig(generalPerMin, authPerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(generalPerMin) / 60.0),
		GeneralBurst:    generalPerMin,
		AuthRate:        rate.Limit(float64(authPerMin) / 60.0),
		AuthBurst:       authPerMin,
		CleanupInterval: 5 * time.Minute,
	}
}

// keyedLimiter はキーごとのレートリミッターとアクセス時刻を保持する。
type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterPool はキー（アカウントIDやIPアドレス）ごとのリミッター集合。
type limiterPool struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*keyedLimiter
}

func newLimiterPool(limit rate.Limit, burst int) *limiterPool {
	return &limiterPool{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*keyedLimiter),
	}
}

// allow はキーのリミッターを取得または作成し、1トークン消費できるかを返す。
func (p *limiterPool) allow(key string) bool {
	p.mu.Lock()
	kl, exists := p.limiters[key]
	if !exists {
		kl = &keyedLimiter{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	p.mu.Unlock()

	return kl.limiter.Allow()
}

func (p *limiterPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}

// evict は最終アクセスからttlを超えたエントリを削除する。
func (p *limiterPool) evict(now time.Time, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, kl := range p.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(p.limiters, key)
		}
	}
}

// RateLimiter はアカウント単位のAPI全般レート制限と、
// IP単位の認証エンドポイントのレート制限を管理する。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterPool
	auth    *limiterPool
	stopCh  chan struct{}
	once    sync.Once
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterPool(config.GeneralRate, config.GeneralBurst),
		auth:    newLimiterPool(config.AuthRate, config.AuthBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// Bearer認証ミドルウェアの後に配置するとアカウント単位、前に配置するとIP単位で制限する。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general, rl.config.GeneralRate, "general", func(r *http.Request) string {
		if accountID, ok := AccountIDFromContext(r.Context()); ok {
			return "account:" + accountID
		}
		return "ip:" + clientIP(r)
	})
}

// AuthMiddleware はsignup/login向けのIP単位のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) AuthMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.auth, rl.config.AuthRate, "auth", clientIP)
}

func (rl *RateLimiter) middleware(pool *limiterPool, limit rate.Limit, limitType string, keyOf func(*http.Request) string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyOf(r)
			if !pool.allow(key) {
				writeRateLimitResponse(w, limit)
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("limit_type", limitType),
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.len()
}

// AuthLimiterCount は現在管理されている認証リミッターのエントリ数を返す。
func (rl *RateLimiter) AuthLimiterCount() int {
	return rl.auth.len()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := time.Now()
	rl.general.evict(now, ttl)
	rl.auth.evict(now, ttl)
}

// clientIP はRemoteAddrからホスト部分を取り出す。
// プロキシ配下ではchiのRealIPミドルウェアでRemoteAddrを書き換えておく。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := 1
	if r > 0 {
		retryAfterSec = int(math.Ceil(1.0 / float64(r)))
	}
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitExceededError())
}
