package service

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce 词库文件变化后等待的静默时间，编辑器保存往往触发多次事件.
const DefaultWatchDebounce = 500 * time.Millisecond

// watchSet 当前监听的词库文件及其所在目录.
type watchSet struct {
	watcher *fsnotify.Watcher
	files   []string
	dirs    []string
}

// sync 按 paths 重新计算监听目标，增删目录使 watcher 与之一致.
func (w *watchSet) sync(paths []string) error {
	files := make([]string, 0, len(paths))
	dirs := make([]string, 0, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve dictionary path %s: %w", path, err)
		}
		files = append(files, abs)
		if dir := filepath.Dir(abs); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}

	for _, dir := range dirs {
		if slices.Contains(w.dirs, dir) {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch dictionary dir %s: %w", dir, err)
		}
	}
	for _, dir := range w.dirs {
		if !slices.Contains(dirs, dir) {
			// 目录可能已被删除，移除失败无需处理
			_ = w.watcher.Remove(dir)
		}
	}

	w.files, w.dirs = files, dirs
	return nil
}

// Watch 监听词库文件，变化后合并事件并重载，直到 ctx 结束.
// 监听的是文件所在目录，以兼容“写临时文件再 rename”的保存方式.
// 每次重载成功后（包括 UpdateConfig 引起的）按新的词库列表调整监听目标.
func (d *Detector) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create dictionary watcher: %w", err)
	}
	defer watcher.Close()

	set := &watchSet{watcher: watcher}
	if err := set.sync(d.config().Dictionaries); err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "watching dictionaries", "files", set.files)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&relevant == 0 || !slices.Contains(set.files, filepath.Clean(event.Name)) {
				continue
			}
			d.logger.DebugContext(ctx, "dictionary changed", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.WarnContext(ctx, "dictionary watcher error", "error", watchErr)
		case <-d.reloaded:
			if syncErr := set.sync(d.config().Dictionaries); syncErr != nil {
				d.logger.WarnContext(ctx, "update dictionary watch failed", "error", syncErr)
				continue
			}
			d.logger.DebugContext(ctx, "dictionary watch updated", "files", set.files)
		case <-timerC:
			timerC = nil
			// 失败时保留旧词库，错误已在 Reload 中记录
			_ = d.Reload(ctx)
		}
	}
}
