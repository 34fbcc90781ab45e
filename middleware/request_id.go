package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/wordmask/idgen"
)

// HeaderXRequestID 请求 ID 头.
const HeaderXRequestID = "X-Request-ID"

// RequestID 透传或生成请求 ID，并写入响应头.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = idgen.GenIDString()
		}
		c.Set(HeaderXRequestID, requestID)
		c.Header(HeaderXRequestID, requestID)
		c.Next()
	}
}
