package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/wordmask/tracing"
)

// HeaderXTraceID Trace ID 响应头.
const HeaderXTraceID = "X-Trace-ID"

// TraceIDHeader 把当前链路的 Trace ID 写入响应头，需放在 Tracing 之后.
func TraceIDHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		if traceID := tracing.GetTraceID(c.Request.Context()); traceID != "" {
			c.Header(HeaderXTraceID, traceID)
		}
		c.Next()
	}
}
