package tutor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bowerhall/studybuddy/internal/logger"
)

// WatchPrompts reloads the prompts file into t whenever it changes, until ctx
// is done. A file that fails to parse keeps the previous templates.
func WatchPrompts(ctx context.Context, t *Tutor, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompts watcher: %w", err)
	}

	// editors often replace the file, so watch its directory
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				prompts, err := LoadPrompts(path)
				if err != nil {
					logger.Warn("prompts reload failed, keeping previous", "path", path, "error", err)
					continue
				}
				t.SetPrompts(prompts)
				logger.Info("prompts reloaded", "path", path)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("prompts watcher error", "error", err)
			}
		}
	}()

	return nil
}
