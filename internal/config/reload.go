package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

// Reloadable is the subset of Config that may change without restarting
// in-flight scans: log level and the maintenance cadences.
type Reloadable struct {
	LogLevel               string
	CacheSweepInterval     string
	AutoSyncInterval       string
	HealthSnapshotInterval string
	FullCycleInterval      string
}

// WatchEnvFile watches path for writes and invokes onChange with a freshly
// loaded Config whenever it changes. It runs until ctx is canceled.
func WatchEnvFile(ctx context.Context, path string, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := godotenv.Overload(path); err != nil {
				slog.Warn("config: could not read watched env file, keeping previous configuration", "error", err)
				continue
			}
			cfg, err := Load()
			if err != nil {
				slog.Warn("config: reload failed, keeping previous configuration", "error", err)
				continue
			}
			onChange(cfg)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config: watcher error", "error", watchErr)
		}
	}
}
