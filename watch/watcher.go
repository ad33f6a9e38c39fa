// Package watch reloads datasets when their source files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/dossier/dataset"
)

const defaultDebounce = 2 * time.Second

var (
	ErrReloaderRequired = errors.New("reloader is required")
	ErrNoSources        = errors.New("no dataset sources to watch")
)

// Reloader rebuilds ready datasets. *dataset.Manager satisfies it.
type Reloader interface {
	IsReady(id string) bool
	Reload(ctx context.Context, id string) (dataset.Stats, error)
}

// SourceWatcher watches dataset source files and reloads a ready dataset
// once its source has been quiet for the debounce interval. Datasets that
// are not ready are left alone; they pick up the new source when first built.
type SourceWatcher struct {
	reloader Reloader
	watcher  *fsnotify.Watcher
	targets  map[string][]string // absolute source path -> dataset ids
	debounce time.Duration
	logger   *slog.Logger
}

type Option func(*SourceWatcher) error

func WithDebounce(d time.Duration) Option {
	return func(w *SourceWatcher) error {
		if d <= 0 {
			return fmt.Errorf("debounce must be positive, got %s", d)
		}
		w.debounce = d
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *SourceWatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

func NewSourceWatcher(reloader Reloader, configs []dataset.Config, opts ...Option) (*SourceWatcher, error) {
	if reloader == nil {
		return nil, ErrReloaderRequired
	}
	if len(configs) == 0 {
		return nil, ErrNoSources
	}

	w := &SourceWatcher{
		reloader: reloader,
		targets:  make(map[string][]string),
		debounce: defaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	w.logger = w.logger.With("component", "source-watcher")

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Directories are watched rather than files so that editors which replace
	// a file by renaming over it keep being observed.
	dirs := make(map[string]bool)
	for _, cfg := range configs {
		path, err := filepath.Abs(cfg.SourcePath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.targets[path] = append(w.targets[path], cfg.ID)
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	w.watcher = fw
	return w, nil
}

// Run processes file events until ctx is cancelled. It closes the underlying
// watcher before returning and waits for reloads it started.
func (w *SourceWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var wg sync.WaitGroup
	done := make(chan struct{})
	due := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
		close(done)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			for _, id := range w.targets[filepath.Clean(event.Name)] {
				w.logger.Debug("source changed", "dataset", id, "op", event.Op.String())
				if t, ok := timers[id]; ok {
					t.Reset(w.debounce)
					continue
				}
				timers[id] = time.AfterFunc(w.debounce, func() {
					select {
					case due <- id:
					case <-done:
					}
				})
			}

		case id := <-due:
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.reload(ctx, id)
			}()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watch error", "err", err)
		}
	}
}

func (w *SourceWatcher) reload(ctx context.Context, id string) {
	if !w.reloader.IsReady(id) {
		w.logger.Debug("dataset not ready, skipping reload", "dataset", id)
		return
	}
	stats, err := w.reloader.Reload(ctx, id)
	if err != nil {
		w.logger.Error("reload failed", "dataset", id, "err", err)
		return
	}
	w.logger.Info("dataset reloaded",
		"dataset", id,
		"chunks", stats.ChunkCount,
		"entities", stats.EntityCount,
		"relationships", stats.RelationshipCount)
}
