// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 外部API呼び出しの結果ラベル
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ゲートウェイクライアント、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordGatewayCall(endpoint, outcome string)
	RecordGatewayLatency(endpoint string, duration time.Duration)
	RecordUpstreamStatus(statusCode int)
	RecordAuthEvent(event, outcome string)
	RecordFavoriteChange(action string)
	RecordSessionsExpired(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	gatewayCalls    *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	upstreamStatus  *prometheus.CounterVec
	authEvents      *prometheus.CounterVec
	favoriteChanges *prometheus.CounterVec
	sessionsExpired prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamblr_gateway_calls_total",
			Help: "外部スタッツAPI呼び出しの合計数（エンドポイント・結果別）",
		}, []string{"endpoint", "outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gamblr_gateway_latency_seconds",
			Help:    "外部スタッツAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamblr_upstream_http_status_total",
			Help: "外部APIのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamblr_auth_events_total",
			Help: "サインアップ・ログインの合計数（結果別）",
		}, []string{"event", "outcome"}),
		favoriteChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamblr_favorite_changes_total",
			Help: "お気に入りの追加・削除の合計数",
		}, []string{"action"}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gamblr_sessions_expired_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.gatewayCalls,
		c.gatewayLatency,
		c.upstreamStatus,
		c.authEvents,
		c.favoriteChanges,
		c.sessionsExpired,
	)

	return c
}

// RecordGatewayCall は外部API呼び出しの結果を記録する。
func (c *Collector) RecordGatewayCall(endpoint, outcome string) {
	c.gatewayCalls.WithLabelValues(endpoint, outcome).Inc()
}

// RecordGatewayLatency は外部API呼び出しのレイテンシを記録する。
func (c *Collector) RecordGatewayLatency(endpoint string, duration time.Duration) {
	c.gatewayLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordUpstreamStatus は外部APIのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(statusCode int) {
	c.upstreamStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordAuthEvent は認証イベント（signup / login）を記録する。
func (c *Collector) RecordAuthEvent(event, outcome string) {
	c.authEvents.WithLabelValues(event, outcome).Inc()
}

// RecordFavoriteChange はお気に入りの変更（add / remove）を記録する。
func (c *Collector) RecordFavoriteChange(action string) {
	c.favoriteChanges.WithLabelValues(action).Inc()
}

// RecordSessionsExpired は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsExpired(count int) {
	c.sessionsExpired.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// workerサブコマンドが単独でスクレイプを受けるために使用する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
