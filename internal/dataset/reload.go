package dataset

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"auditview/internal/logging"
	"auditview/internal/record"
)

// settleDelay coalesces bursts of file events (editors write, rename and
// chmod in quick succession) into one reload.
const settleDelay = 200 * time.Millisecond

const reloadJobName = "dataset-reload"

// Reloader re-runs Load and publishes each successful result.
type Reloader struct {
	patterns []string
	onLoad   func([]record.Record)
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	reloadMu sync.Mutex // serialises Reload

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	watchDone chan struct{}
	scheduler gocron.Scheduler

	settleMu sync.Mutex
	settle   *time.Timer
}

// NewReloader returns a Reloader for patterns. onLoad runs after every
// successful Reload, never concurrently with itself.
func NewReloader(patterns []string, onLoad func([]record.Record), logger *slog.Logger) *Reloader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reloader{
		patterns: patterns,
		onLoad:   onLoad,
		logger:   logging.Default(logger).With(logging.ComponentKey, "dataset"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Reload loads the dataset and publishes it. On error nothing is
// published.
func (r *Reloader) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	records, err := Load(ctx, r.patterns, r.logger)
	if err != nil {
		r.logger.Warn("dataset reload failed, keeping previous records", "error", err)
		return err
	}
	r.onLoad(records)
	return nil
}

// Watch starts reloading whenever a file matching the patterns is
// written, created, renamed or removed. Calling Watch again replaces the
// previous watch.
func (r *Reloader) Watch() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopWatchLocked()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dirs := r.dirsToWatch()
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("watch %q: %w", dir, err)
		}
	}

	r.watcher = w
	r.watchDone = make(chan struct{})
	go r.watchLoop(w, r.watchDone)

	r.logger.Info("watching dataset", "dirs", len(dirs))
	return nil
}

// dirsToWatch is each pattern's static prefix plus, for recursive
// patterns, every directory beneath it that exists now.
func (r *Reloader) dirsToWatch() []string {
	prefixes := watchDirs(r.patterns)
	recursive := false
	for _, p := range r.patterns {
		if strings.Contains(p, "**") {
			recursive = true
			break
		}
	}
	if !recursive {
		return prefixes
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, root := range prefixes {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() && !seen[path] {
				seen[path] = true
				dirs = append(dirs, path)
			}
			return nil
		})
	}
	return dirs
}

func (r *Reloader) watchLoop(w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !matchesAny(ev.Name, r.patterns) {
				continue
			}
			r.scheduleReload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.logger.Warn("dataset watcher error", "error", err)
		}
	}
}

func (r *Reloader) scheduleReload() {
	r.settleMu.Lock()
	defer r.settleMu.Unlock()
	if r.settle != nil {
		r.settle.Stop()
	}
	r.settle = time.AfterFunc(settleDelay, func() {
		if r.ctx.Err() != nil {
			return
		}
		_ = r.Reload(r.ctx)
	})
}

func (r *Reloader) stopWatchLocked() {
	if r.watcher != nil {
		_ = r.watcher.Close()
		<-r.watchDone
		r.watcher = nil
		r.watchDone = nil
	}
	r.settleMu.Lock()
	if r.settle != nil {
		r.settle.Stop()
		r.settle = nil
	}
	r.settleMu.Unlock()
}

// Schedule reloads on a 6-field cron expression. An empty expression is a
// no-op. Calling Schedule again replaces the schedule.
func (r *Reloader) Schedule(cronExpr string) error {
	if cronExpr == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scheduler == nil {
		s, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create cron scheduler: %w", err)
		}
		r.scheduler = s
		s.Start()
	}
	for _, j := range r.scheduler.Jobs() {
		if j.Name() == reloadJobName {
			if err := r.scheduler.RemoveJob(j.ID()); err != nil {
				return fmt.Errorf("remove previous reload job: %w", err)
			}
		}
	}

	_, err := r.scheduler.NewJob(
		gocron.CronJob(cronExpr, true),
		gocron.NewTask(func() { _ = r.Reload(r.ctx) }),
		gocron.WithName(reloadJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create reload job: %w", err)
	}
	r.logger.Info("scheduled dataset reload", "cron", cronExpr)
	return nil
}

// Close stops watching and scheduling and cancels an in-flight reload.
func (r *Reloader) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopWatchLocked()

	var err error
	if r.scheduler != nil {
		if serr := r.scheduler.Shutdown(); serr != nil {
			err = fmt.Errorf("stop scheduler: %w", serr)
		}
		r.scheduler = nil
	}
	return err
}
