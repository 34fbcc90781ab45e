// Package response 提供统一的 HTTP 响应封装，将业务错误与 gRPC 状态映射为 HTTP 状态码.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wyfcoding/wordmask/xerrors"
)

// Body 统一响应体.
type Body struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Data   any    `json:"data,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Success HTTP 200，业务码 0.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Msg: "success", Data: data})
}

// SuccessWithRawData 不做包装，用于健康检查等系统接口.
func SuccessWithRawData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error 按错误类型选择状态码：*xerrors.Error 使用自身的业务码与类型映射，
// gRPC status 按标准映射，其余一律 500.
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	if e, ok := xerrors.FromError(err); ok {
		c.JSON(e.HTTPStatus(), Body{Code: e.Code, Msg: e.Message, Detail: e.Detail})
		return
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		ErrorWithStatus(c, http.StatusRequestEntityTooLarge, "request body too large", err.Error())
		return
	}

	if st, ok := status.FromError(err); ok {
		code := grpcCodeToHTTP(st.Code())
		c.JSON(code, Body{Code: code, Msg: st.Message()})
		return
	}

	ErrorWithStatus(c, http.StatusInternalServerError, "internal server error", err.Error())
}

// ErrorWithStatus 指定状态码的错误响应.
func ErrorWithStatus(c *gin.Context, status int, msg string, detail string) {
	c.JSON(status, Body{Code: status, Msg: msg, Detail: detail})
}

func grpcCodeToHTTP(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.Canceled:
		return 499
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
