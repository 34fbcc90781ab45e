package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// BigCache 使用 `allegro/bigcache` 实现 `Cache` 接口。
// bigcache 只支持全局 TTL，Set 的 expiration 参数会被忽略。
type BigCache struct {
	cache *bigcache.BigCache
}

// NewBigCache 创建本地缓存。
// ttl: 全局过期时间；maxMB: 缓存的最大容量（MB），0 表示不限制。
func NewBigCache(ttl time.Duration, maxMB int) (*BigCache, error) {
	config := bigcache.DefaultConfig(ttl)
	config.HardMaxCacheSize = maxMB
	config.CleanWindow = time.Minute
	config.Verbose = false

	cache, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("init bigcache failed: %w", err)
	}

	return &BigCache{cache: cache}, nil
}

// Get 读取并反序列化到 value；未命中返回 ErrCacheMiss。
func (c *BigCache) Get(_ context.Context, key string, value any) error {
	data, err := c.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, value)
}

// Set 序列化后写入。
func (c *BigCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.cache.Set(key, data)
}

// Delete 删除一个或多个键，键不存在不报错。
func (c *BigCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Exists 检查键是否存在。
func (c *BigCache) Exists(_ context.Context, key string) (bool, error) {
	_, err := c.cache.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	}
	return false, err
}

// Len 当前缓存条目数。
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Reset 清空全部缓存，词库重载后调用。
func (c *BigCache) Reset() error {
	return c.cache.Reset()
}

// Close 释放资源。
func (c *BigCache) Close() error {
	return c.cache.Close()
}
