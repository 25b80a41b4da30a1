package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

// ConfigWatcher reloads the config file on change and hands the new config
// to registered callbacks. Callbacks run synchronously in registration order.
type ConfigWatcher struct {
	config     *Config
	configPath string
	logger     logger.Logger
	mu         sync.RWMutex
	watchers   []func(*Config)
	stopCh     chan struct{}
	stopOnce   sync.Once
}

func NewConfigWatcher(configPath string, initial *Config, logger logger.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		config:     initial,
		configPath: configPath,
		logger:     logger,
		watchers:   make([]func(*Config), 0),
		stopCh:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and ConfigMap updates replace the file.
	if err := watcher.Add(filepath.Dir(w.configPath)); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	w.logger.Info("Configuration watcher started", "configPath", w.configPath)
	target := filepath.Clean(w.configPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Info("Configuration file changed, reloading...", "file", event.Name)
			if err := w.reloadConfig(); err != nil {
				w.logger.Error("Failed to reload configuration", "error", err)
				continue
			}
			w.notifyWatchers()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Configuration watcher error", "error", err)

		case <-ctx.Done():
			w.logger.Info("Configuration watcher stopping")
			return nil

		case <-w.stopCh:
			w.logger.Info("Configuration watcher stopped")
			return nil
		}
	}
}

// RegisterWatcher adds a callback for configuration changes
func (w *ConfigWatcher) RegisterWatcher(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchers = append(w.watchers, callback)
}

// GetConfig returns the current configuration (thread-safe)
func (w *ConfigWatcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *ConfigWatcher) reloadConfig() error {
	newConfig, err := LoadFrom(w.configPath)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.config = newConfig
	w.mu.Unlock()

	w.logger.Info("Configuration reloaded successfully")
	return nil
}

func (w *ConfigWatcher) notifyWatchers() {
	w.mu.RLock()
	config := w.config
	watchers := make([]func(*Config), len(w.watchers))
	copy(watchers, w.watchers)
	w.mu.RUnlock()

	for _, cb := range watchers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Configuration watcher callback panicked", "panic", r)
				}
			}()
			cb(config)
		}()
	}
}
