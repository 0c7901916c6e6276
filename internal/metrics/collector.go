package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BaSui01/uniconnect/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	registry *prometheus.Registry

	// 连接器指标
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	retriesTotal *prometheus.CounterVec

	// 扫描指标
	verdictsTotal  *prometheus.CounterVec
	scanConfidence prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 创建指标收集器，指标注册到新建的独立 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// 连接器指标
	c.callsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connector_calls_total",
			Help:      "Total number of connector sends by final outcome",
		},
		[]string{"provider", "kind"},
	)

	c.callDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connector_call_duration_seconds",
			Help:      "Duration of the final attempt of each send in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	c.retriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connector_retries_total",
			Help:      "Total number of retries consumed",
		},
		[]string{"provider"},
	)

	// 扫描指标
	c.verdictsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_verdicts_total",
			Help:      "Total number of scanned prompts by verdict",
		},
		[]string{"verdict"},
	)

	c.scanConfidence = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_confidence",
			Help:      "Analyzer confidence of non-error verdicts",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	return c
}

// Registry 返回底层 Registry，可用于 promhttp 或 testutil
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// ObserveCall 记录一次 Send 的最终结果
func (c *Collector) ObserveCall(provider string, kind types.ErrorKind, latency time.Duration, retries int) {
	c.callsTotal.WithLabelValues(provider, string(kind)).Inc()
	c.callDuration.WithLabelValues(provider).Observe(latency.Seconds())
	if retries > 0 {
		c.retriesTotal.WithLabelValues(provider).Add(float64(retries))
	}
}

// ObserveVerdict 记录一次扫描判定
func (c *Collector) ObserveVerdict(verdict string, confidence float64) {
	c.verdictsTotal.WithLabelValues(verdict).Inc()
	if verdict != "error" {
		c.scanConfidence.Observe(confidence)
	}
}

// =============================================================================
// 📤 导出
// =============================================================================

// WriteTextfile 以 textfile 格式原子写出当前快照
func (c *Collector) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	c.logger.Debug("metrics written", zap.String("path", path))
	return nil
}
