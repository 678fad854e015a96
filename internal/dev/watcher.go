package dev

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDuration = 500 * time.Millisecond

// Watcher reports writes to configuration files in a set of directories.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func(path string)
	logger   *slog.Logger
	mu       sync.Mutex
	debounce map[string]time.Time
}

// NewWatcher starts watching dirs immediately; events are delivered once Run
// is called.
func NewWatcher(dirs []string, onChange func(path string), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return &Watcher{
		watcher:  fw,
		onChange: onChange,
		logger:   logger,
		debounce: make(map[string]time.Time),
	}, nil
}

func isConfigFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

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
			if !isConfigFile(event.Name) {
				continue
			}
			if !w.accept(event.Name) {
				continue
			}

			w.logger.Info("File changed", "path", event.Name, "op", event.Op.String())

			if w.onChange != nil {
				w.onChange(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "error", err)
		}
	}
}

// accept reports whether a change to path falls outside the debounce window.
func (w *Watcher) accept(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	last, exists := w.debounce[path]
	if exists && time.Since(last) < debounceDuration {
		return false
	}
	w.debounce[path] = time.Now()
	return true
}
