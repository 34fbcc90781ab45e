package app

import "context"

type runner struct {
	name string
	run  func(ctx context.Context) error
}

type options struct {
	runners  []runner
	cleanups []func()
}

// Option 应用选项.
type Option func(o *options)

// WithRunner 注册一个阻塞运行的组件.
func WithRunner(name string, run func(ctx context.Context) error) Option {
	return func(o *options) {
		o.runners = append(o.runners, runner{name: name, run: run})
	}
}

// WithCleanup 注册退出时执行的清理函数.
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		o.cleanups = append(o.cleanups, cleanup)
	}
}
