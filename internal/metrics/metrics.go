/**
 * internal/metrics/metrics.go
 * 压缩流程 Prometheus 指标
 *
 * 功能：
 * - 产物计数（按类型与结果）
 * - 压缩前后字节数
 * - 单个产物压缩耗时、整轮构建耗时
 * - 上传计数与字节数
 *
 * 所有方法对 nil *Collector 安全，未启用指标时直接传 nil。
 *
 * 依赖：
 * - github.com/prometheus/client_golang
 */

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 产物处理结果
const (
	OutcomeMinified = "minified"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Collector 压缩流程指标集合
type Collector struct {
	assetsTotal    *prometheus.CounterVec
	bytesTotal     *prometheus.CounterVec
	minifyDuration *prometheus.HistogramVec
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram

	uploadsTotal     *prometheus.CounterVec
	uploadBytesTotal prometheus.Counter
}

// NewCollector 创建并注册指标
// reg 为 nil 时使用默认注册表
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		assetsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_minifier_assets_total",
				Help: "Assets considered by the minifier, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		bytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_minifier_bytes_total",
				Help: "Asset bytes before and after minification",
			},
			[]string{"stage"},
		),
		minifyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chunk_minifier_minify_duration_seconds",
				Help:    "Per-asset minification latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"kind"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_minifier_runs_total",
				Help: "Minification passes, by status",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chunk_minifier_run_duration_seconds",
				Help:    "Duration of a whole minification pass in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		uploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_minifier_uploads_total",
				Help: "Objects uploaded to the bucket, by status",
			},
			[]string{"status"},
		),
		uploadBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chunk_minifier_upload_bytes_total",
				Help: "Bytes uploaded to the bucket",
			},
		),
	}
}

// RecordAsset 记录单个产物的处理结果
func (c *Collector) RecordAsset(kind, outcome string, before, after int, duration time.Duration) {
	if c == nil {
		return
	}

	c.assetsTotal.WithLabelValues(kind, outcome).Inc()
	if outcome != OutcomeMinified {
		return
	}
	c.bytesTotal.WithLabelValues("before").Add(float64(before))
	c.bytesTotal.WithLabelValues("after").Add(float64(after))
	c.minifyDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordRun 记录一轮压缩
func (c *Collector) RecordRun(duration time.Duration, err error) {
	if c == nil {
		return
	}

	c.runsTotal.WithLabelValues(status(err)).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// RecordUpload 记录一次上传
func (c *Collector) RecordUpload(bytes int64, err error) {
	if c == nil {
		return
	}

	c.uploadsTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		c.uploadBytesTotal.Add(float64(bytes))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
