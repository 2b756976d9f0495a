// Package metrics 定义推荐服务的 Prometheus 指标，通过 /metrics 暴露。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// 请求结果
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

var (
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videorec_recommend_requests_total",
			Help: "Total number of recommend requests by outcome",
		},
		[]string{"outcome"},
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videorec_recommend_duration_seconds",
			Help:    "End-to-end recommend latency in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	NodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videorec_pipeline_node_duration_seconds",
			Help:    "Pipeline node latency in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"node", "kind"},
	)

	Candidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videorec_candidates",
			Help:    "Number of items produced by each pipeline stage",
			Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
		},
		[]string{"kind"},
	)

	UnmappedCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videorec_unmapped_candidates_total",
			Help: "Candidates dropped because the user or item has no encoding",
		},
	)

	ScorerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videorec_scorer_errors_total",
			Help: "Total number of ranking model failures",
		},
		[]string{"scorer"},
	)

	IndexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videorec_index_build_seconds",
			Help:    "Co-occurrence index build time in seconds",
			Buckets: []float64{.01, .1, .5, 1, 5, 10, 30, 60},
		},
	)

	IndexItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videorec_index_items",
			Help: "Number of items in the serving co-occurrence index",
		},
	)

	IndexPairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videorec_index_pairs",
			Help: "Number of directed co-occurrence edges in the serving index",
		},
	)

	RuntimeSwaps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videorec_runtime_swaps_total",
			Help: "Number of times the serving runtime was replaced",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "videorec_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordRecommend 记录一次推荐请求。
func RecordRecommend(outcome string, d time.Duration) {
	RecommendRequests.WithLabelValues(outcome).Inc()
	RecommendDuration.Observe(d.Seconds())
}

// RecordNode 记录一个 Pipeline 节点的耗时与输出数量。
func RecordNode(node, kind string, out int, d time.Duration) {
	NodeDuration.WithLabelValues(node, kind).Observe(d.Seconds())
	Candidates.WithLabelValues(kind).Observe(float64(out))
}

// RecordIndex 记录索引构建结果。
func RecordIndex(items, pairs int, d time.Duration) {
	IndexBuildDuration.Observe(d.Seconds())
	IndexItems.Set(float64(items))
	IndexPairs.Set(float64(pairs))
}

// RecordBreakerState 可直接作为 gobreaker 的 OnStateChange 回调。
func RecordBreakerState(name string, _, to gobreaker.State) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(to))
}
