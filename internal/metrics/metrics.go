// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carbonmarket"

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordUploadURLIssued(owner, kind string)
	RecordSignFailure()
	RecordDeleteFailure()
	RecordPublishFailure(subject string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	uploadURLs      *prometheus.CounterVec
	signFailures    prometheus.Counter
	deleteFailures  prometheus.Counter
	publishFailures *prometheus.CounterVec
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTPリクエストの合計数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTPリクエストの処理時間（秒）",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploadURLs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_urls_issued_total",
			Help:      "発行したアップロード用署名付きURLの数",
		}, []string{"owner", "kind"}),
		signFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_sign_failures_total",
			Help:      "読み取り用署名付きURLの生成失敗数",
		}),
		deleteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_delete_failures_total",
			Help:      "オブジェクト削除の失敗数",
		}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_publish_failures_total",
			Help:      "イベント発行の失敗数",
		}, []string{"subject"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.uploadURLs,
		c.signFailures,
		c.deleteFailures,
		c.publishFailures,
	)

	return c
}

// RecordHTTPRequest はリクエスト数と処理時間を記録する。
// routeにはchiのルートパターンを渡し、ラベルの種類数を抑える。
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUploadURLIssued はアップロードURLの発行を記録する。
func (c *Collector) RecordUploadURLIssued(owner, kind string) {
	c.uploadURLs.WithLabelValues(owner, kind).Inc()
}

// RecordSignFailure は署名失敗を記録する。
func (c *Collector) RecordSignFailure() {
	c.signFailures.Inc()
}

// RecordDeleteFailure はオブジェクト削除の失敗を記録する。
func (c *Collector) RecordDeleteFailure() {
	c.deleteFailures.Inc()
}

// RecordPublishFailure はイベント発行の失敗を記録する。
func (c *Collector) RecordPublishFailure(subject string) {
	c.publishFailures.WithLabelValues(subject).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
