package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDelay = 200 * time.Millisecond

// Watch starts watching the config directory and refreshes the cache when a
// config file is created, written, removed or renamed. onChange, if not nil,
// is called with the affected config id after the refresh. Watching stops
// when ctx is done.
func (m *Manager) Watch(ctx context.Context, logger zerolog.Logger, onChange func(id string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(m.configDir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", m.configDir, err)
	}

	logger.Info().Str("dir", m.configDir).Msg("watching table configs")
	go m.processEvents(ctx, watcher, logger, onChange)
	return nil
}

func (m *Manager) processEvents(ctx context.Context, watcher *fsnotify.Watcher, logger zerolog.Logger, onChange func(id string)) {
	defer watcher.Close()

	var reloadTimer *time.Timer
	defer func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !isConfigFile(name) {
				continue
			}

			id := configID(name)
			logger.Debug().Str("file", name).Str("op", event.Op.String()).Msg("table config changed")
			m.Invalidate(id)

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, func() {
				if err := m.RefreshCache(); err != nil {
					logger.Error().Err(err).Msg("failed to refresh table configs")
					return
				}
				if onChange != nil {
					onChange(id)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("config watcher error")
		}
	}
}
