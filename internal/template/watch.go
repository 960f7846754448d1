package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/willothy/overseer/internal/event"
)

// Watch reloads the registry whenever a template file in one of its dirs is
// written, created, removed or renamed. It blocks until ctx is done. Only
// meaningful when the registry reads from the OS filesystem.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range r.dirs {
		r.watchDirRecursive(watcher, dir)
	}

	// editors emit several events per save
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C
	pending := false

	for {
		select {
		case <-ctx.Done():
			debounceTimer.Stop()
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					r.watchDirRecursive(watcher, ev.Name)
					continue
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !r.matchesPattern(ev.Name) {
				continue
			}
			pending = true
			debounceTimer.Reset(r.debounce)

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false
			err := r.Load(ctx)
			if err != nil {
				r.logger.Warn("template reload failed", "error", err.Error())
			}
			if r.bus != nil {
				r.bus.Publish(event.NewTemplatesReloadedEvent(r.Len(), err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("template watcher error", "error", err.Error())
		}
	}
}

func (r *Registry) watchDirRecursive(watcher *fsnotify.Watcher, root string) {
	_ = afero.Walk(r.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := watcher.Add(path); err != nil {
				r.logger.Debug("failed to watch dir", "dir", path, "error", err.Error())
			}
		}
		return nil
	})
}

// matchesPattern reports whether path, inside one of the registry dirs,
// matches the load pattern.
func (r *Registry) matchesPattern(path string) bool {
	for _, dir := range r.dirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if ok, _ := doublestar.Match(r.pattern, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	return false
}
