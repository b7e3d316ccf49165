package agent

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"wanhealth/internal/config"
	"wanhealth/internal/logging"
)

// WatchConfig reloads the agent whenever the file at path changes. The
// directory is watched rather than the file so editors that replace the file
// by rename are still seen. Edits that fail to load or validate are logged
// and the running snapshot is kept. It blocks until ctx is cancelled.
func (a *Agent) WatchConfig(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	a.log.Debug(ctx, "watching config", logging.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			a.reloadFrom(ctx, target)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.log.Warn(ctx, "config watcher error", logging.Err(err))
		}
	}
}

func (a *Agent) reloadFrom(ctx context.Context, path string) {
	cfg, err := config.Load(path)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		a.log.Warn(ctx, "config reload rejected", logging.String("path", path), logging.Err(err))
		return
	}
	a.Reload(cfg)
	a.log.Info(ctx, "config reloaded",
		logging.String("path", path),
		logging.Int("interfaces", len(cfg.Interfaces)))
}
