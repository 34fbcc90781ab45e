package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestLocalLimiter(t *testing.T) {
	l := NewLocalLimiter(rate.Every(time.Hour), 2)
	ctx := context.Background()

	for range 2 {
		ok, err := l.Allow(ctx, "a")
		assert.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "b")
	assert.False(t, ok, "local limiter is shared across keys")
}

func TestKeyedLimiter(t *testing.T) {
	l := NewKeyedLimiter(rate.Every(time.Hour), 1, time.Minute)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)
	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "keys have independent buckets")
	assert.Equal(t, 2, l.Len())

	// 空闲桶被回收
	now = now.Add(2 * time.Minute)
	ok, _ = l.Allow(ctx, "10.0.0.3")
	assert.True(t, ok)
	assert.Equal(t, 1, l.Len())
}

func TestDynamicLimiter(t *testing.T) {
	ctx := context.Background()
	d := NewDynamicLimiter(nil)

	for range 5 {
		ok, err := d.Allow(ctx, "k")
		assert.NoError(t, err)
		assert.True(t, ok)
	}

	d.UpdateKeyed(true, 0.001, 1)
	ok, _ := d.Allow(ctx, "k")
	assert.True(t, ok)
	ok, _ = d.Allow(ctx, "k")
	assert.False(t, ok)

	d.UpdateKeyed(false, 0.001, 1)
	ok, _ = d.Allow(ctx, "k")
	assert.True(t, ok)
}
