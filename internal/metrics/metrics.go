// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 各サービス層が定義する計測インターフェースをすべて満たす。
type Collector struct {
	httpStatus         *prometheus.CounterVec
	queryLatency       prometheus.Histogram
	matchCycles        prometheus.Counter
	matchCycleLatency  prometheus.Histogram
	matchedWatchlists  prometheus.Counter
	activationRejected prometheus.Counter
	listingsImported   prometheus.Counter
	listingsRejected   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carwatch_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		queryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carwatch_query_latency_seconds",
			Help:    "クエリエンジンのフィルタ・ソート処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		matchCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carwatch_match_cycles_total",
			Help: "マッチサイクル実行の合計数",
		}),
		matchCycleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carwatch_match_cycle_latency_seconds",
			Help:    "マッチサイクルのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		matchedWatchlists: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carwatch_matched_watchlists_total",
			Help: "マッチ評価されたウォッチリストの合計数",
		}),
		activationRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carwatch_activation_rejected_total",
			Help: "上限到達で拒否されたアクティベーションの合計数",
		}),
		listingsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carwatch_listings_imported_total",
			Help: "取り込まれたリスティングの合計数",
		}),
		listingsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carwatch_listings_rejected_total",
			Help: "検証で拒否されたリスティングの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.queryLatency,
		c.matchCycles,
		c.matchCycleLatency,
		c.matchedWatchlists,
		c.activationRejected,
		c.listingsImported,
		c.listingsRejected,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordQueryLatency はクエリエンジンのレイテンシを記録する。
func (c *Collector) RecordQueryLatency(duration time.Duration) {
	c.queryLatency.Observe(duration.Seconds())
}

// RecordMatchCycle はマッチサイクルの実行を記録する。
func (c *Collector) RecordMatchCycle(duration time.Duration, watchlistCount int) {
	c.matchCycles.Inc()
	c.matchCycleLatency.Observe(duration.Seconds())
	c.matchedWatchlists.Add(float64(watchlistCount))
}

// RecordActivationRejected は上限到達によるアクティベーション拒否を記録する。
func (c *Collector) RecordActivationRejected() {
	c.activationRejected.Inc()
}

// RecordListingsImported は取り込まれたリスティング数を記録する。
func (c *Collector) RecordListingsImported(count int) {
	c.listingsImported.Add(float64(count))
}

// RecordListingsRejected は拒否されたリスティング数を記録する。
func (c *Collector) RecordListingsRejected(count int) {
	c.listingsRejected.Add(float64(count))
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
