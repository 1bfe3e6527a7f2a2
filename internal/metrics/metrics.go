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
// APIクライアントやハンドラー、ワーカーから利用する。
type MetricsCollector interface {
	RecordUpstreamRequest(method string, statusCode int, duration time.Duration)
	RecordUpstreamFailure(method string)
	RecordLogin(result string)
	RecordGuardRedirect(target string)
	RecordSessionsPurged(count int64)
}

// ログイン結果ラベル
const (
	LoginSucceeded = "success"
	LoginRejected  = "rejected"
	LoginFailed    = "failed"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
	upstreamLatency  prometheus.Histogram
	logins           *prometheus.CounterVec
	guardRedirects   *prometheus.CounterVec
	sessionsPurged   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminpanel_upstream_requests_total",
			Help: "外部APIへのリクエスト数（メソッド・ステータス別）",
		}, []string{"method", "status_code"}),
		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminpanel_upstream_failures_total",
			Help: "レスポンスを得られなかった外部APIリクエスト数",
		}, []string{"method"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "adminpanel_upstream_latency_seconds",
			Help:    "外部APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminpanel_login_total",
			Help: "ログイン試行数（結果別）",
		}, []string{"result"}),
		guardRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminpanel_guard_redirects_total",
			Help: "セッションガードによるリダイレクト数（遷移先別）",
		}, []string{"target"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adminpanel_sessions_purged_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamFailures,
		c.upstreamLatency,
		c.logins,
		c.guardRedirects,
		c.sessionsPurged,
	)

	return c
}

// RecordUpstreamRequest は外部APIのレスポンスステータスとレイテンシを記録する。
func (c *Collector) RecordUpstreamRequest(method string, statusCode int, duration time.Duration) {
	c.upstreamRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.upstreamLatency.Observe(duration.Seconds())
}

// RecordUpstreamFailure は通信エラー等でレスポンスを得られなかったリクエストを記録する。
func (c *Collector) RecordUpstreamFailure(method string) {
	c.upstreamFailures.WithLabelValues(method).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordGuardRedirect はセッションガードのリダイレクトを記録する。
func (c *Collector) RecordGuardRedirect(target string) {
	c.guardRedirects.WithLabelValues(target).Inc()
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。
// テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordUpstreamRequest(string, int, time.Duration) {}
func (Nop) RecordUpstreamFailure(string)                     {}
func (Nop) RecordLogin(string)                               {}
func (Nop) RecordGuardRedirect(string)                       {}
func (Nop) RecordSessionsPurged(int64)                       {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
