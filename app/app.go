// Package app 管理进程内长期运行组件的生命周期：并发启动、任一失败即整体退出、按注册逆序清理.
package app

import (
	"context"
	"log/slog"
	"os"
	"slices"

	"golang.org/x/sync/errgroup"
)

// App 应用容器.
type App struct {
	name   string
	logger *slog.Logger
	opts   options
}

// New 创建应用.
func New(name string, logger *slog.Logger, opts ...Option) *App {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &App{name: name, logger: logger, opts: o}
}

// Run 并发运行全部组件，直到 ctx 取消或任一组件返回错误，然后执行清理.
// 组件需在 ctx 取消后尽快返回，ctx 取消导致的正常退出应返回 nil.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting", "name", a.name, "pid", os.Getpid(), "components", len(a.opts.runners))

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range a.opts.runners {
		g.Go(func() error {
			err := r.run(gctx)
			if err != nil {
				a.logger.Error("component exited with error", "component", r.name, "error", err)
			} else {
				a.logger.Info("component stopped", "component", r.name)
			}
			return err
		})
	}
	err := g.Wait()

	for _, cleanup := range slices.Backward(a.opts.cleanups) {
		cleanup()
	}

	if err != nil {
		return err
	}
	a.logger.Info("application shut down gracefully", "name", a.name)
	return nil
}
