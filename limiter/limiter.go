// Package limiter 提供基于令牌桶的本地限流器，支持按 key 隔离与配置热更新.
package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter 限流器通用行为.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LocalLimiter 全局令牌桶，忽略 key.
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter r 为每秒令牌数，b 为桶容量.
func NewLocalLimiter(r rate.Limit, b int) *LocalLimiter {
	return &LocalLimiter{
		limiter: rate.NewLimiter(r, b),
	}
}

// Allow 实现 Limiter 接口.
func (l *LocalLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return l.limiter.Allow(), nil
}

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter 每个 key（通常是客户端 IP）一个令牌桶. 空闲超过 idleTTL 的桶在下次清理时回收.
type KeyedLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*keyedEntry
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewKeyedLimiter 创建按 key 隔离的限流器.
func NewKeyedLimiter(r rate.Limit, b int, idleTTL time.Duration) *KeyedLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &KeyedLimiter{
		buckets: make(map[string]*keyedEntry),
		rate:    r,
		burst:   b,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Allow 实现 Limiter 接口.
func (l *KeyedLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		for k, e := range l.buckets {
			if now.Sub(e.lastSeen) >= l.idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.buckets[key]
	if !ok {
		e = &keyedEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// Len 当前持有的桶数.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
