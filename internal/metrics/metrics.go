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
// トークンサービス、認証サービス、HTTPミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordTokenIssued(kind string)
	RecordTokenRevoked(kind string)
	RecordTokenRejected(reason string)
	RecordLoginFailure(reason string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordRevocationsPurged(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	tokensIssued      *prometheus.CounterVec
	tokensRevoked     *prometheus.CounterVec
	tokensRejected    *prometheus.CounterVec
	loginFailures     *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	requestLatency    prometheus.Histogram
	revocationsPurged prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecook_tokens_issued_total",
			Help: "種別ごとの発行済みトークン数",
		}, []string{"kind"}),
		tokensRevoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecook_tokens_revoked_total",
			Help: "種別ごとの失効させたトークン数",
		}, []string{"kind"}),
		tokensRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecook_tokens_rejected_total",
			Help: "理由ごとの検証に失敗したトークン数",
		}, []string{"reason"}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecook_login_failures_total",
			Help: "理由ごとのログイン失敗数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecook_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "smilecook_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		revocationsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smilecook_revocations_purged_total",
			Help: "クリーンアップで削除した期限切れ失効エントリ数",
		}),
	}

	reg.MustRegister(
		c.tokensIssued,
		c.tokensRevoked,
		c.tokensRejected,
		c.loginFailures,
		c.httpStatus,
		c.requestLatency,
		c.revocationsPurged,
	)

	return c
}

// RecordTokenIssued はトークン発行を記録する。
func (c *Collector) RecordTokenIssued(kind string) {
	c.tokensIssued.WithLabelValues(kind).Inc()
}

// RecordTokenRevoked はトークン失効を記録する。
func (c *Collector) RecordTokenRevoked(kind string) {
	c.tokensRevoked.WithLabelValues(kind).Inc()
}

// RecordTokenRejected はトークン検証の失敗を記録する。
func (c *Collector) RecordTokenRejected(reason string) {
	c.tokensRejected.WithLabelValues(reason).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFailures.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordRevocationsPurged はクリーンアップで削除した件数を記録する。
func (c *Collector) RecordRevocationsPurged(count int) {
	c.revocationsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
