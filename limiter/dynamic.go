package limiter

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DynamicLimiter 可在运行时整体替换的限流器，未设置时放行全部请求.
type DynamicLimiter struct {
	value atomic.Pointer[Limiter]
}

// NewDynamicLimiter 创建动态限流器，initial 可为 nil.
func NewDynamicLimiter(initial Limiter) *DynamicLimiter {
	d := &DynamicLimiter{}
	d.Update(initial)
	return d
}

// Update 替换当前限流器，nil 表示关闭限流.
func (d *DynamicLimiter) Update(l Limiter) {
	if l == nil {
		d.value.Store(nil)
		return
	}
	d.value.Store(&l)
}

// UpdateKeyed 按新参数重建按 key 限流器. enabled 为 false 或 r <= 0 时关闭限流.
func (d *DynamicLimiter) UpdateKeyed(enabled bool, r float64, burst int) {
	if !enabled || r <= 0 {
		d.Update(nil)
		return
	}
	if burst <= 0 {
		burst = int(r)
	}
	d.Update(NewKeyedLimiter(rate.Limit(r), max(burst, 1), 10*time.Minute))
}

// Allow 实现 Limiter 接口.
func (d *DynamicLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l := d.value.Load()
	if l == nil {
		return true, nil
	}
	return (*l).Allow(ctx, key)
}
