// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordSignup(result string)
	RecordLogin(result string)
	RecordTokenRefresh(result string)
	RecordUpstreamRequest(operation, result string, duration time.Duration)
	RecordWebhook(outcome string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signups         *prometheus.CounterVec
	logins          *prometheus.CounterVec
	tokenRefreshes  *prometheus.CounterVec
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	webhooks        *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listtoshift_signups_total",
			Help: "アカウント登録の結果別件数",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listtoshift_logins_total",
			Help: "ログインの結果別件数",
		}, []string{"result"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listtoshift_spotify_token_refresh_total",
			Help: "Spotifyアクセストークンのリフレッシュ結果別件数",
		}, []string{"result"}),
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listtoshift_upstream_requests_total",
			Help: "外部API呼び出しの操作・結果別件数",
		}, []string{"operation", "result"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "listtoshift_upstream_latency_seconds",
			Help:    "外部API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listtoshift_webhook_events_total",
			Help: "決済Webhookの処理結果別件数",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listtoshift_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.signups,
		c.logins,
		c.tokenRefreshes,
		c.upstreamTotal,
		c.upstreamLatency,
		c.webhooks,
		c.httpStatus,
	)

	return c
}

// RecordSignup はアカウント登録の結果を記録する。
func (c *Collector) RecordSignup(result string) {
	c.signups.WithLabelValues(result).Inc()
}

// RecordLogin はログインの結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordTokenRefresh はSpotifyトークンリフレッシュの結果を記録する。
func (c *Collector) RecordTokenRefresh(result string) {
	c.tokenRefreshes.WithLabelValues(result).Inc()
}

// RecordUpstreamRequest は外部API呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordUpstreamRequest(operation, result string, duration time.Duration) {
	c.upstreamTotal.WithLabelValues(operation, result).Inc()
	c.upstreamLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordWebhook はWebhook処理の結果を記録する。
func (c *Collector) RecordWebhook(outcome string) {
	c.webhooks.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)
