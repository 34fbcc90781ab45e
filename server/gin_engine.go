package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/wordmask/config"
	"github.com/wyfcoding/wordmask/limiter"
	"github.com/wyfcoding/wordmask/metrics"
	"github.com/wyfcoding/wordmask/middleware"
	"github.com/wyfcoding/wordmask/service"
)

const healthPath = "/healthz"

// NewDefaultGinEngine 不带任何默认中间件的引擎，顺序由调用方决定.
func NewDefaultGinEngine(middlewares ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(middlewares...)
	return engine
}

// RouterDeps 路由依赖. Metrics 与 Limiter 可为 nil.
type RouterDeps struct {
	Config   *config.Config
	Detector *service.Detector
	Metrics  *metrics.Metrics
	Limiter  limiter.Limiter
	Logger   *slog.Logger
}

// NewRouter 组装中间件与全部路由.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	skip := []string{healthPath, cfg.Metrics.Path}

	mws := []gin.HandlerFunc{
		middleware.Recovery(deps.Logger),
		middleware.RequestID(),
	}
	if cfg.Tracing.Enabled {
		mws = append(mws, middleware.Tracing(cfg.Tracing.ServiceName, skip...), middleware.TraceIDHeader())
	}
	mws = append(mws, middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		mws = append(mws, middleware.HTTPMetrics(deps.Metrics, middleware.MetricsOptions{
			SlowThreshold: cfg.Server.HTTP.WriteTimeout / 2,
			SkipPaths:     skip,
		}))
	}
	engine := NewDefaultGinEngine(mws...)

	h := NewHandler(deps.Detector, deps.Logger)
	engine.GET(healthPath, h.Health)
	if deps.Metrics != nil && cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := engine.Group("/v1", middleware.MaxBodyBytes(cfg.Server.HTTP.MaxBodyBytes))
	if deps.Limiter != nil {
		v1.Use(middleware.RateLimit(deps.Limiter))
	}
	v1.Use(middleware.Timeout(cfg.Server.HTTP.WriteTimeout))
	h.Register(v1)

	return engine
}
