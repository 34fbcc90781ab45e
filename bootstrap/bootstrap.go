// Package bootstrap 解析命令行参数并初始化配置、日志、ID 生成器与链路追踪.
package bootstrap

import (
	"context"
	"flag"

	"github.com/wyfcoding/wordmask/config"
	"github.com/wyfcoding/wordmask/idgen"
	"github.com/wyfcoding/wordmask/logging"
	"github.com/wyfcoding/wordmask/tracing"
)

// Bootstrapper 持有启动阶段的参数与初始化结果.
type Bootstrapper struct {
	ServiceName string
	Version     string

	ConfigPath string
	Input      string

	Config *config.Config
	Logger *logging.Logger
}

// New 创建引导器.
func New(serviceName, version string) *Bootstrapper {
	return &Bootstrapper{
		ServiceName: serviceName,
		Version:     version,
	}
}

// RegisterFlags 在 fs 上注册通用参数.
func (b *Bootstrapper) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&b.ConfigPath, "config", "configs/config.toml", "path to config file")
	fs.StringVar(&b.Input, "input", "", "input text file, stdin when empty")
}

// Initialize 加载配置，并以配置重新初始化全局日志与 ID 生成器.
func (b *Bootstrapper) Initialize(module string) error {
	conf, err := config.Load(b.ConfigPath)
	if err != nil {
		logging.Error(context.Background(), "failed to load config", "path", b.ConfigPath, "error", err)
		return err
	}
	if conf.Version == "" || conf.Version == "dev" {
		conf.Version = b.Version
	}
	if conf.Server.Name == "" {
		conf.Server.Name = b.ServiceName
	}
	b.Config = conf

	logging.InitLogger(conf.LoggingConfig(module))
	b.Logger = logging.Default()

	if err := idgen.Init(conf.IDGen); err != nil {
		b.Logger.Error("failed to init id generator", "error", err)
		return err
	}

	config.PrintWithMask(conf)
	return nil
}

// SetupTracing 初始化链路追踪，返回的函数用于退出时刷新并关闭导出器.
func (b *Bootstrapper) SetupTracing(ctx context.Context) func() {
	cfg := b.Config.Tracing
	if cfg.ServiceName == "" {
		cfg.ServiceName = b.ServiceName
	}
	shutdown, err := tracing.InitTracer(ctx, cfg)
	if err != nil {
		b.Logger.Error("failed to init tracer", "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			b.Logger.Error("failed to shutdown tracer", "error", err)
		}
	}
}
