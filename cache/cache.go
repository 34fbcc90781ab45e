// Package cache 提供了缓存抽象与基于 bigcache 的本地缓存实现，用于缓存屏蔽结果。
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 缓存未命中。
var ErrCacheMiss = errors.New("cache miss")

// Cache 缓存接口。value 以 JSON 序列化存储，Get 时反序列化到 value 指针中。
type Cache interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}
