package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/wordmask/metrics"
)

// MetricsOptions 指标中间件参数.
type MetricsOptions struct {
	SlowThreshold time.Duration
	SkipPaths     []string
}

// HTTPMetrics 采集请求量、耗时、在途请求与慢请求. 路径使用路由模板，避免维度爆炸.
func HTTPMetrics(m *metrics.Metrics, opts MetricsOptions) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, path := range opts.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		if _, ok := skip[path]; ok || m == nil {
			c.Next()
			return
		}

		method := c.Request.Method
		inFlight := m.HTTPInFlight.WithLabelValues(method, path)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
		if opts.SlowThreshold > 0 && elapsed > opts.SlowThreshold {
			m.HTTPSlowRequestsTotal.WithLabelValues(method, path).Inc()
		}
	}
}
