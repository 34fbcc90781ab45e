package metrics

import "github.com/prometheus/client_golang/prometheus"

// DetectorMetrics 敏感词检测相关指标。
type DetectorMetrics struct {
	ScansTotal      *prometheus.CounterVec   // 扫描次数 (维度: algorithm, hit)
	ScanDuration    *prometheus.HistogramVec // 单次扫描耗时
	MaskedSpans     *prometheus.CounterVec   // 命中并合并后的屏蔽区间数
	DictionaryWords prometheus.Gauge         // 当前词库词数
	ReloadsTotal    *prometheus.CounterVec   // 词库重载次数 (维度: result)
	CacheTotal      *prometheus.CounterVec   // 结果缓存访问 (维度: result)
}

// NewDetectorMetrics 在 m 上注册检测指标；m 为 nil 时返回 nil，调用方需判空。
func NewDetectorMetrics(m *Metrics) *DetectorMetrics {
	if m == nil {
		return nil
	}

	return &DetectorMetrics{
		ScansTotal: m.NewCounterVec(&prometheus.CounterOpts{
			Name: "wordmask_scans_total",
			Help: "Total number of texts scanned",
		}, []string{"algorithm", "hit"}),
		ScanDuration: m.NewHistogramVec(&prometheus.HistogramOpts{
			Name:    "wordmask_scan_duration_seconds",
			Help:    "Scan latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"algorithm"}),
		MaskedSpans: m.NewCounterVec(&prometheus.CounterOpts{
			Name: "wordmask_masked_spans_total",
			Help: "Total number of merged masked spans",
		}, []string{"algorithm"}),
		DictionaryWords: m.NewGauge(&prometheus.GaugeOpts{
			Name: "wordmask_dictionary_words",
			Help: "Number of distinct words in the active dictionary",
		}),
		ReloadsTotal: m.NewCounterVec(&prometheus.CounterOpts{
			Name: "wordmask_dictionary_reloads_total",
			Help: "Total number of dictionary reloads",
		}, []string{"result"}),
		CacheTotal: m.NewCounterVec(&prometheus.CounterOpts{
			Name: "wordmask_cache_requests_total",
			Help: "Result cache lookups",
		}, []string{"result"}),
	}
}
