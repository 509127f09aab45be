// Package watch reruns extraction when source files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"keysync/internal/filewalker"
	"keysync/internal/runner"
)

// DefaultDebounce is how long sources must be quiet before a rerun.
const DefaultDebounce = 300 * time.Millisecond

// Target is a project that can be extracted again.
type Target interface {
	Run(ctx context.Context) (*runner.Report, error)
	Walker() *filewalker.Walker
}

// Watcher monitors a project root recursively. Bursts of events are coalesced into one run.
type Watcher struct {
	root     string
	target   Target
	extra    *filewalker.Matcher
	debounce time.Duration
	logger   zerolog.Logger

	fs *fsnotify.Watcher
}

// New creates a Watcher. Changes to files matching the target's walker or the extra globs
// trigger a rerun.
func New(root string, target Target, extra []string, debounce time.Duration, logger zerolog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	m, err := filewalker.NewMatcher(extra)
	if err != nil {
		return nil, fmt.Errorf("watch patterns: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		root:     root,
		target:   target,
		extra:    m,
		debounce: debounce,
		logger:   logger,
		fs:       fw,
	}, nil
}

// Watch runs the target once and then after every settled change, passing each outcome to
// onRun. It returns nil when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, onRun func(*runner.Report, error)) error {
	defer w.fs.Close()

	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.run(ctx, onRun)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	w.logger.Info().Str("root", w.root).Msg("Watching for changes")
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Watcher error")

		case <-timer.C:
			w.run(ctx, onRun)
		}
	}
}

// handle registers new directories and reports whether ev should trigger a run.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn().Err(err).Str("path", ev.Name).Msg("Failed to watch directory")
			}
			return false
		}
	}
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if !w.relevant(ev.Name) {
		return false
	}
	w.logger.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("Source changed")
	return true
}

func (w *Watcher) relevant(path string) bool {
	if w.target.Walker().Matches(w.root, path) {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return w.extra.Match(filepath.ToSlash(rel))
}

func (w *Watcher) run(ctx context.Context, onRun func(*runner.Report, error)) {
	rep, err := w.target.Run(ctx)
	if ctx.Err() != nil {
		return
	}
	if onRun != nil {
		onRun(rep, err)
	}
}

// addTree watches dir and every directory below it that the walker does not ignore.
func (w *Watcher) addTree(dir string) error {
	walker := w.target.Walker()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(w.root, path); err == nil && rel != "." && walker.IgnoresDir(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}
