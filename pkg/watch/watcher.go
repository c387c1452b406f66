// Package watch classifies record files as they land in the input directory.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/db"
	"github.com/yumyai/bgcselect/pkg/model"
	"github.com/yumyai/bgcselect/pkg/pipeline"
	"go.uber.org/zap"
)

type Config struct {
	Dir                       string
	IgnorePatterns            []string
	Debounce                  time.Duration
	RequireSingleClusterLabel bool
	Thresholds                model.Thresholds
}

// Watcher feeds settled .gbk files under Dir to a consumer, one at a time.
// Archives are unzipped in place and their records picked up from the new
// folders. Files present before Run starts are not processed, and each file
// is classified once; later writes to it are ignored.
type Watcher struct {
	config    Config
	records   *db.RecordDir
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	consumer  pipeline.Consumer
	ready     chan []string
	done      chan struct{}

	// owned by the Run goroutine
	processed map[string]bool
}

func New(cfg Config, consumer pipeline.Consumer) (*Watcher, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	rd, err := db.NewRecordDir(cfg.Dir, cfg.IgnorePatterns)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:    cfg,
		records:   rd,
		fsWatcher: fsWatcher,
		consumer:  consumer,
		ready:     make(chan []string, 16),
		done:      make(chan struct{}),
		processed: make(map[string]bool),
	}
	w.debouncer = NewDebouncer(cfg.Debounce, func(paths []string) {
		select {
		case w.ready <- paths:
		case <-w.done:
		}
	})

	if err := w.addTree(cfg.Dir, false); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and its subfolders. With enqueue set, files already in
// them are queued, which covers folders created or extracted while running.
func (w *Watcher) addTree(dir string, enqueue bool) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && w.ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.fsWatcher.Add(path); err != nil {
				logger.Warn("Failed to watch directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		if enqueue && wanted(path) {
			w.debouncer.Add(path)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.config.Dir, path)
	if err != nil {
		return true
	}
	return w.records.Ignored(rel)
}

func wanted(path string) bool {
	return strings.HasSuffix(path, model.RecordExtension) || strings.HasSuffix(path, ".zip")
}

// Run blocks until ctx is cancelled or the consumer fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsWatcher.Close()
	defer w.debouncer.Stop()
	defer close(w.done)

	logger.Info("Watching for records", zap.String("dir", w.config.Dir), zap.Duration("debounce", w.config.Debounce))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error", zap.Error(err))

		case paths := <-w.ready:
			if err := w.process(ctx, paths); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if w.ignored(event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name, true); err != nil {
				logger.Warn("Failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}

	if wanted(event.Name) && !w.processed[event.Name] {
		w.debouncer.Add(event.Name)
	}
}

func (w *Watcher) process(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if w.processed[path] {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			// Moved or deleted before it settled.
			continue
		}

		if strings.HasSuffix(path, ".zip") {
			if _, err := w.records.Unzip(); err != nil {
				logger.Warn("Failed to unzip", zap.String("path", path), zap.Error(err))
			}
			continue
		}

		w.processed[path] = true
		res := pipeline.Process(path, w.config.RequireSingleClusterLabel, w.config.Thresholds)
		if err := w.consumer.Consume(ctx, res); err != nil {
			return err
		}
		if res.Assessment != nil {
			logger.Info("Record classified",
				zap.String("file", res.FileName()),
				zap.String("verdict", string(res.Assessment.Verdict)))
		}
	}
	return nil
}
