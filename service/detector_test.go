package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/wordmask/algorithm/structures"
	"github.com/wyfcoding/wordmask/cache"
	"github.com/wyfcoding/wordmask/config"
	"github.com/wyfcoding/wordmask/metrics"
	"github.com/wyfcoding/wordmask/xerrors"
)

func writeDict(t *testing.T, dir, name string, words ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, "\n")+"\n"), 0o600))
	return path
}

func testConfig(paths ...string) config.FilterConfig {
	return config.FilterConfig{
		Algorithm:        "aho-corasick",
		Dictionaries:     paths,
		Mask:             "*",
		MaxTextLength:    64,
		MaxBatchSize:     4,
		BatchConcurrency: 2,
	}
}

func newTestDetector(t *testing.T, cfg config.FilterConfig, opts ...Option) *Detector {
	t.Helper()
	d, err := NewDetector(context.Background(), cfg, opts...)
	require.NoError(t, err)
	return d
}

func TestDetectorMask(t *testing.T) {
	dir := t.TempDir()
	a := writeDict(t, dir, "a.txt", "he", "she")
	b := writeDict(t, dir, "b.txt", "hers", "he")

	d := newTestDetector(t, testConfig(a, b))
	res, err := d.Mask(context.Background(), "ahershe")
	require.NoError(t, err)

	assert.Equal(t, "a******", res.Text)
	assert.True(t, res.Hit)
	assert.Equal(t, []structures.Span{{Begin: 1, End: 7}}, res.Spans)
	assert.Equal(t, 6, res.Masked)

	res, err = d.Mask(context.Background(), "nothing to see")
	require.NoError(t, err)
	assert.False(t, res.Hit)
	assert.Equal(t, "nothing to see", res.Text)
	assert.Empty(t, res.Spans)

	// "here" 中的 "he" 同样命中
	res, err = d.Mask(context.Background(), "nothing here")
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, "nothing **re", res.Text)
	assert.Equal(t, []structures.Span{{Begin: 8, End: 10}}, res.Spans)

	stats := d.Stats()
	assert.Equal(t, 3, stats.Words)
	assert.Equal(t, uint64(1), stats.Version)
}

func TestDetectorRejectsLongText(t *testing.T) {
	d := newTestDetector(t, testConfig(writeDict(t, t.TempDir(), "a.txt", "x")))

	_, err := d.Mask(context.Background(), strings.Repeat("敏", 65))
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrTextTooLong)

	_, err = d.Mask(context.Background(), strings.Repeat("敏", 64))
	assert.NoError(t, err)
}

func TestDetectorCanceledContext(t *testing.T) {
	d := newTestDetector(t, testConfig(writeDict(t, t.TempDir(), "a.txt", "x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Mask(ctx, "x")
	assert.ErrorIs(t, err, xerrors.ErrCanceledRequest)
}

func TestDetectorMissingDictionary(t *testing.T) {
	_, err := NewDetector(context.Background(), testConfig(filepath.Join(t.TempDir(), "missing.txt")))
	assert.ErrorIs(t, err, xerrors.ErrDictionaryNotFound)
}

func TestDetectorDetect(t *testing.T) {
	d := newTestDetector(t, testConfig(writeDict(t, t.TempDir(), "a.txt", "bc", "abcd")))

	det, err := d.Detect(context.Background(), "abcd")
	require.NoError(t, err)
	assert.True(t, det.Hit)
	assert.Equal(t, []structures.Span{{Begin: 0, End: 4}}, det.Spans)
	require.Len(t, det.Hits, 2)
	assert.Equal(t, "bc", det.Hits[0].Word)
	assert.Equal(t, "abcd", det.Hits[1].Word)
}

func TestDetectorMaskBatch(t *testing.T) {
	d := newTestDetector(t, testConfig(writeDict(t, t.TempDir(), "a.txt", "cat", "敏感")))

	texts := []string{"concatenate", "clean", "敏感词", ""}
	results, err := d.MaskBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, results, len(texts))

	want := []string{"con***enate", "clean", "**词", ""}
	for i, res := range results {
		assert.Equal(t, want[i], res.Text, "index %d", i)
	}

	_, err = d.MaskBatch(context.Background(), make([]string, 5))
	assert.ErrorIs(t, err, xerrors.ErrBatchTooLarge)

	_, err = d.MaskBatch(context.Background(), []string{"ok", strings.Repeat("a", 65)})
	assert.ErrorIs(t, err, xerrors.ErrTextTooLong)
}

func TestDetectorCacheAndMetrics(t *testing.T) {
	path := writeDict(t, t.TempDir(), "a.txt", "foo")

	c, err := cache.NewBigCache(time.Minute, 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	m := metrics.NewMetrics("wordmask-test")
	dm := metrics.NewDetectorMetrics(m)

	d := newTestDetector(t, testConfig(path), WithCache(c), WithMetrics(dm))
	assert.Equal(t, float64(1), testutil.ToFloat64(dm.DictionaryWords))
	assert.Equal(t, float64(1), testutil.ToFloat64(dm.ReloadsTotal.WithLabelValues("success")))

	for range 3 {
		res, maskErr := d.Mask(context.Background(), "a foo b")
		require.NoError(t, maskErr)
		assert.Equal(t, "a *** b", res.Text)
		assert.Equal(t, []structures.Span{{Begin: 2, End: 5}}, res.Spans)
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(dm.CacheTotal.WithLabelValues("miss")))
	assert.Equal(t, float64(2), testutil.ToFloat64(dm.CacheTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(dm.ScansTotal.WithLabelValues("aho-corasick", "true")))

	// 重载后缓存清空，新词库立即生效
	writeDict(t, filepath.Dir(path), "a.txt", "foo", "b")
	require.NoError(t, d.Reload(context.Background()))
	assert.Equal(t, 0, c.Len())

	res, err := d.Mask(context.Background(), "a foo b")
	require.NoError(t, err)
	assert.Equal(t, "a *** *", res.Text)
	assert.Equal(t, float64(2), testutil.ToFloat64(dm.DictionaryWords))
	assert.Equal(t, uint64(2), d.Stats().Version)
}

func TestDetectorReloadFailureKeepsFilter(t *testing.T) {
	dir := t.TempDir()
	path := writeDict(t, dir, "a.txt", "foo")
	d := newTestDetector(t, testConfig(path))

	require.NoError(t, os.Remove(path))
	require.Error(t, d.Reload(context.Background()))

	res, err := d.Mask(context.Background(), "foo")
	require.NoError(t, err)
	assert.Equal(t, "***", res.Text)
	assert.Equal(t, uint64(1), d.Stats().Version)
}

func TestDetectorUpdateConfig(t *testing.T) {
	path := writeDict(t, t.TempDir(), "a.txt", "foo")
	d := newTestDetector(t, testConfig(path))

	next := testConfig(path)
	next.Algorithm = "dfa"
	next.Mask = "#"
	require.NoError(t, d.UpdateConfig(context.Background(), next))

	res, err := d.Mask(context.Background(), "xfoo")
	require.NoError(t, err)
	assert.Equal(t, "x###", res.Text)
	assert.Equal(t, "dfa", string(d.Stats().Algorithm))

	bad := next
	bad.Algorithm = "regex"
	require.Error(t, d.UpdateConfig(context.Background(), bad))
	assert.Equal(t, "dfa", string(d.Stats().Algorithm))
	assert.Equal(t, "#", d.config().Mask)
}

func TestDetectorWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeDict(t, dir, "a.txt", "foo")
	d := newTestDetector(t, testConfig(path))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Watch(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		writeDict(t, dir, "a.txt", "foo", "bar")
		return d.Stats().Version > 1
	}, 5*time.Second, 50*time.Millisecond)

	res, err := d.Mask(context.Background(), "bar")
	require.NoError(t, err)
	assert.Equal(t, "***", res.Text)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestDetectorWatchFollowsDictionaryChange(t *testing.T) {
	oldPath := writeDict(t, t.TempDir(), "a.txt", "foo")
	newDir := t.TempDir()
	newPath := writeDict(t, newDir, "b.txt", "bar")
	d := newTestDetector(t, testConfig(oldPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Watch(ctx, 10*time.Millisecond) }()

	require.NoError(t, d.UpdateConfig(context.Background(), testConfig(newPath)))
	switched := d.Stats().Version

	// 新词库所在目录此前未被监听
	require.Eventually(t, func() bool {
		writeDict(t, newDir, "b.txt", "bar", "baz")
		return d.Stats().Version > switched
	}, 5*time.Second, 50*time.Millisecond)

	res, err := d.Mask(context.Background(), "foo baz")
	require.NoError(t, err)
	assert.Equal(t, "foo ***", res.Text)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
