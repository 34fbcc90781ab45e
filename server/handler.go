package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/wordmask/response"
	"github.com/wyfcoding/wordmask/service"
)

// Handler 敏感词接口.
type Handler struct {
	detector *service.Detector
	logger   *slog.Logger
}

// NewHandler 创建处理器.
func NewHandler(detector *service.Detector, logger *slog.Logger) *Handler {
	return &Handler{detector: detector, logger: logger}
}

// 空字符串是合法输入，用指针区分“缺省”与“空”.
type textRequest struct {
	Text *string `json:"text" binding:"required"`
}

type batchRequest struct {
	Texts []string `json:"texts" binding:"required,min=1"`
}

// Register 挂载 /mask、/mask/batch、/detect、/reload.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/mask", h.Mask)
	r.POST("/mask/batch", h.MaskBatch)
	r.POST("/detect", h.Detect)
	r.POST("/reload", h.Reload)
}

func bindError(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		response.Error(c, err)
		return
	}
	response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
}

// Mask POST /v1/mask.
func (h *Handler) Mask(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.detector.Mask(c.Request.Context(), *req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MaskBatch POST /v1/mask/batch.
func (h *Handler) MaskBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	results, err := h.detector.MaskBatch(c.Request.Context(), req.Texts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, results)
}

// Detect POST /v1/detect.
func (h *Handler) Detect(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	det, err := h.detector.Detect(c.Request.Context(), *req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, det)
}

// Reload POST /v1/reload.
func (h *Handler) Reload(c *gin.Context) {
	if err := h.detector.Reload(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.InfoContext(c.Request.Context(), "dictionary reloaded via api", "ip", c.ClientIP())
	response.Success(c, h.detector.Stats())
}

// Health GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	response.SuccessWithRawData(c, gin.H{
		"status":     "ok",
		"dictionary": h.detector.Stats(),
	})
}
