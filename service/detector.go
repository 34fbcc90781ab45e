// Package service 组装词库加载、过滤器、结果缓存、指标与追踪，对外提供敏感词屏蔽能力.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sourcegraph/conc/pool"

	"github.com/wyfcoding/wordmask/algorithm/structures"
	"github.com/wyfcoding/wordmask/cache"
	"github.com/wyfcoding/wordmask/config"
	"github.com/wyfcoding/wordmask/logging"
	"github.com/wyfcoding/wordmask/metrics"
	"github.com/wyfcoding/wordmask/sensitive"
	"github.com/wyfcoding/wordmask/text"
	"github.com/wyfcoding/wordmask/tracing"
	"github.com/wyfcoding/wordmask/xerrors"
)

// Result 一次屏蔽的结果.
type Result struct {
	Text   string            `json:"text"`
	Hit    bool              `json:"hit"`
	Spans  []structures.Span `json:"spans"`
	Masked int               `json:"masked"` // 被屏蔽的字符数
}

// Detection 仅检测不屏蔽的结果.
type Detection struct {
	Hit   bool              `json:"hit"`
	Spans []structures.Span `json:"spans"`
	Hits  []sensitive.Hit   `json:"hits,omitempty"`
}

// Stats 当前生效词库的状态.
type Stats struct {
	Algorithm sensitive.Algorithm `json:"algorithm"`
	Words     int                 `json:"words"`
	Version   uint64              `json:"version"`
	LoadedAt  time.Time           `json:"loaded_at"`
}

// snapshot 一次构建出的只读过滤器，重载时整体替换.
type snapshot struct {
	filter   sensitive.Filter
	mask     rune
	version  uint64
	loadedAt time.Time
}

// Detector 持有当前生效的过滤器. 扫描路径无锁，重载通过原子指针整体替换，
// 进行中的扫描继续使用旧的过滤器.
type Detector struct {
	active atomic.Pointer[snapshot]

	mu      sync.Mutex // 串行化重载，并保护 cfg
	cfg     config.FilterConfig
	version uint64

	reloaded chan struct{} // 每次重载成功后通知 Watch 重新解析词库路径

	cache   cache.Cache
	metrics *metrics.DetectorMetrics
	logger  *slog.Logger
}

// Option Detector 可选项.
type Option func(*Detector)

// WithCache 注入结果缓存.
func WithCache(c cache.Cache) Option {
	return func(d *Detector) {
		d.cache = c
	}
}

// WithMetrics 注入检测指标.
func WithMetrics(m *metrics.DetectorMetrics) Option {
	return func(d *Detector) {
		d.metrics = m
	}
}

// WithLogger 指定日志.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = l
	}
}

// NewDetector 加载词库并构建过滤器.
func NewDetector(ctx context.Context, cfg config.FilterConfig, opts ...Option) (*Detector, error) {
	d := &Detector{cfg: cfg, reloaded: make(chan struct{}, 1)}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.Default().WithModule("detector").Logger
	}

	if err := d.Reload(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Detector) config() config.FilterConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Stats 返回当前词库状态.
func (d *Detector) Stats() Stats {
	snap := d.active.Load()
	return Stats{
		Algorithm: snap.filter.Name(),
		Words:     snap.filter.Words(),
		Version:   snap.version,
		LoadedAt:  snap.loadedAt,
	}
}

// Reload 重新读取词库并替换过滤器. 失败时保留旧的过滤器.
func (d *Detector) Reload(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reloadLocked(ctx)
}

// UpdateConfig 应用新的过滤配置并重载，用于配置热更新.
func (d *Detector) UpdateConfig(ctx context.Context, cfg config.FilterConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.cfg
	d.cfg = cfg
	if err := d.reloadLocked(ctx); err != nil {
		d.cfg = prev
		return err
	}
	return nil
}

func (d *Detector) reloadLocked(ctx context.Context) (err error) {
	ctx, span := tracing.StartSpan(ctx, "detector.Reload")
	defer span.End()

	start := time.Now()
	defer func() {
		if d.metrics != nil {
			result := "success"
			if err != nil {
				result = "failure"
			}
			d.metrics.ReloadsTotal.WithLabelValues(result).Inc()
		}
		if err != nil {
			tracing.SetError(ctx, err)
			d.logger.ErrorContext(ctx, "dictionary reload failed", "error", err)
		}
	}()

	words, err := sensitive.LoadWordFiles(ctx, d.cfg.Dictionaries...)
	if err != nil {
		return err
	}

	mask := d.cfg.MaskRune()
	filter, err := sensitive.New(sensitive.Algorithm(d.cfg.Algorithm), words, sensitive.WithMask(mask))
	if err != nil {
		return err
	}

	d.version++
	d.active.Store(&snapshot{
		filter:   filter,
		mask:     mask,
		version:  d.version,
		loadedAt: time.Now(),
	})

	if r, ok := d.cache.(interface{ Reset() error }); ok {
		if resetErr := r.Reset(); resetErr != nil {
			d.logger.WarnContext(ctx, "reset result cache failed", "error", resetErr)
		}
	}
	if d.metrics != nil {
		d.metrics.DictionaryWords.Set(float64(filter.Words()))
	}
	select {
	case d.reloaded <- struct{}{}:
	default:
	}

	tracing.AddTag(ctx, "dictionary.words", filter.Words())
	d.logger.InfoContext(ctx, "dictionary loaded",
		"algorithm", filter.Name(),
		"files", len(d.cfg.Dictionaries),
		"lines", len(words),
		"words", filter.Words(),
		"version", d.version,
		"duration", time.Since(start),
	)
	return nil
}

func (d *Detector) checkText(ctx context.Context, s string) error {
	if err := ctx.Err(); err != nil {
		return xerrors.ErrCanceledRequest.WithCause(err)
	}
	limit := d.config().MaxTextLength
	if limit > 0 {
		if n := utf8.RuneCountInString(s); n > limit {
			return xerrors.ErrTextTooLong.WithDetail("text has %d characters, limit is %d", n, limit)
		}
	}
	return nil
}

func cacheKey(snap *snapshot, s string) string {
	return strconv.FormatUint(snap.version, 10) + ":" + text.MD5(string(snap.filter.Name())+"|"+s)
}

// Mask 屏蔽文本中的敏感词.
func (d *Detector) Mask(ctx context.Context, s string) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "detector.Mask")
	defer span.End()

	if err := d.checkText(ctx, s); err != nil {
		tracing.SetError(ctx, err)
		return nil, err
	}

	snap := d.active.Load()
	algorithm := string(snap.filter.Name())
	tracing.AddTag(ctx, "algorithm", algorithm)
	tracing.AddTag(ctx, "text.length", len(s))

	key := ""
	if d.cache != nil {
		key = cacheKey(snap, s)
		var cached Result
		err := d.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			d.observeCache("hit")
			tracing.AddTag(ctx, "cache.hit", true)
			return &cached, nil
		case errors.Is(err, cache.ErrCacheMiss):
			d.observeCache("miss")
		default:
			d.observeCache("error")
			d.logger.WarnContext(ctx, "read result cache failed", "error", err)
		}
	}

	start := time.Now()
	spans := snap.filter.Detect(s)
	res := &Result{
		Text:   text.MaskSpans(s, spans, snap.mask),
		Hit:    len(spans) > 0,
		Spans:  spans,
		Masked: covered(spans),
	}
	d.observeScan(algorithm, res.Hit, len(spans), time.Since(start))
	tracing.AddTag(ctx, "hit", res.Hit)

	if d.cache != nil {
		if err := d.cache.Set(ctx, key, res, 0); err != nil {
			d.logger.WarnContext(ctx, "write result cache failed", "error", err)
		}
	}
	return res, nil
}

// Detect 只返回命中信息，不生成屏蔽文本.
func (d *Detector) Detect(ctx context.Context, s string) (*Detection, error) {
	ctx, span := tracing.StartSpan(ctx, "detector.Detect")
	defer span.End()

	if err := d.checkText(ctx, s); err != nil {
		tracing.SetError(ctx, err)
		return nil, err
	}

	snap := d.active.Load()
	algorithm := string(snap.filter.Name())

	start := time.Now()
	spans := snap.filter.Detect(s)
	det := &Detection{Hit: len(spans) > 0, Spans: spans}
	if finder, ok := snap.filter.(sensitive.HitFinder); ok && det.Hit {
		det.Hits = finder.Hits(s)
	}
	d.observeScan(algorithm, det.Hit, len(spans), time.Since(start))
	return det, nil
}

// MaskBatch 并发屏蔽多段文本，结果顺序与输入一致. 任一条失败即取消其余并返回首个错误.
func (d *Detector) MaskBatch(ctx context.Context, texts []string) ([]*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "detector.MaskBatch")
	defer span.End()

	cfg := d.config()
	if cfg.MaxBatchSize > 0 && len(texts) > cfg.MaxBatchSize {
		err := xerrors.ErrBatchTooLarge.WithDetail("batch has %d texts, limit is %d", len(texts), cfg.MaxBatchSize)
		tracing.SetError(ctx, err)
		return nil, err
	}
	tracing.AddTag(ctx, "batch.size", len(texts))

	results := make([]*Result, len(texts))
	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(max(cfg.BatchConcurrency, 1))
	for i, s := range texts {
		p.Go(func(ctx context.Context) error {
			res, err := d.Mask(ctx, s)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		tracing.SetError(ctx, err)
		return nil, err
	}
	return results, nil
}

func (d *Detector) observeScan(algorithm string, hit bool, spans int, elapsed time.Duration) {
	if d.metrics == nil {
		return
	}
	d.metrics.ScansTotal.WithLabelValues(algorithm, strconv.FormatBool(hit)).Inc()
	d.metrics.ScanDuration.WithLabelValues(algorithm).Observe(elapsed.Seconds())
	d.metrics.MaskedSpans.WithLabelValues(algorithm).Add(float64(spans))
}

func (d *Detector) observeCache(result string) {
	if d.metrics != nil {
		d.metrics.CacheTotal.WithLabelValues(result).Inc()
	}
}

func covered(spans []structures.Span) int {
	n := 0
	for _, s := range spans {
		n += s.Len()
	}
	return n
}
