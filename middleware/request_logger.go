package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger 访问日志. 请求文本可能含敏感内容，只记录元信息，不记录 query 与 body.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"request_id", c.Writer.Header().Get(HeaderXRequestID),
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", path,
			"ip", c.ClientIP(),
			"cost", time.Since(start),
			"bytes_in", c.Request.ContentLength,
			"bytes_out", c.Writer.Size(),
		)
	}
}
