package lyrics

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"stemdeck/internal/logging"
)

const watchSettle = 150 * time.Millisecond

// Watch reloads path whenever it changes on disk and passes the result to
// onChange. The parent directory is watched so editors that replace the file
// are seen. Writes are coalesced until the file has been quiet for a short
// settle window. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, duration float64, logger *slog.Logger, onChange func([]Line, error)) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create lyric watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	ticker := time.NewTicker(watchSettle / 3)
	defer ticker.Stop()
	var pendingSince time.Time

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
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pendingSince = time.Now()
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("lyric watcher error", logging.Error(werr))
		case <-ticker.C:
			if pendingSince.IsZero() || time.Since(pendingSince) < watchSettle {
				continue
			}
			pendingSince = time.Time{}
			lines, err := Load(target, duration)
			if err != nil {
				logging.WarnWithContext(logger, "lyric reload failed; keeping previous lyrics", "lyrics_reload_failed",
					logging.String("path", target),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "fix the lyric file and save it again"))
			} else {
				logger.Info("lyrics reloaded", logging.String("path", target), logging.Int("lines", len(lines)))
			}
			onChange(lines, err)
		}
	}
}
