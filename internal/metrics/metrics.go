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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordRelationAdded(kind string)
	RecordRelationRemoved(kind string)
	RecordShoppingListBuilt(itemCount int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus        *prometheus.CounterVec
	requestLatency    prometheus.Histogram
	relationAdded     *prometheus.CounterVec
	relationRemoved   *prometheus.CounterVec
	shoppingListBuilt prometheus.Counter
	shoppingListItems prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kondate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kondate_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		relationAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kondate_relation_added_total",
			Help: "リレーション追加の種別ごとの合計数",
		}, []string{"kind"}),
		relationRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kondate_relation_removed_total",
			Help: "リレーション削除の種別ごとの合計数",
		}, []string{"kind"}),
		shoppingListBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kondate_shopping_list_built_total",
			Help: "買い物リスト生成の合計数",
		}),
		shoppingListItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kondate_shopping_list_items",
			Help:    "生成された買い物リストの行数",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.relationAdded,
		c.relationRemoved,
		c.shoppingListBuilt,
		c.shoppingListItems,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordRelationAdded はリレーション追加を種別付きで記録する。
func (c *Collector) RecordRelationAdded(kind string) {
	c.relationAdded.WithLabelValues(kind).Inc()
}

// RecordRelationRemoved はリレーション削除を種別付きで記録する。
func (c *Collector) RecordRelationRemoved(kind string) {
	c.relationRemoved.WithLabelValues(kind).Inc()
}

// RecordShoppingListBuilt は買い物リスト生成と行数を記録する。
func (c *Collector) RecordShoppingListBuilt(itemCount int) {
	c.shoppingListBuilt.Inc()
	c.shoppingListItems.Observe(float64(itemCount))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
