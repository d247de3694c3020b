package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Manager holds the current configuration and reloads it when the file changes.
// A reload that fails to parse or validate keeps the previous config.
type Manager struct {
	path string

	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewManager(path string) (*Manager, error) {
	log.Debug().Str("path", path).Msg("config manager: initializing")

	config, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		log.Warn().Err(err).Msg("config manager: validation warning")
	}
	return &Manager{path: path, config: config}, nil
}

// NewManagerWithConfig starts from an in-memory config, for setups without a
// config file. Watching still picks the file up once it is created.
func NewManagerWithConfig(path string, config *Config) *Manager {
	return &Manager{path: path, config: config}
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// OnChange registers fn to run after every successful reload.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// editors replace the file, so watch the directory
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	log.Info().Str("path", m.path).Msg("config manager: watching for changes")
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	name := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				log.Debug().Str("event", event.String()).Msg("config manager: change detected")
				m.Reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config manager: watcher error")

		case <-ctx.Done():
			return
		}
	}
}

// Reload re-reads the file and reports whether the new config was accepted.
func (m *Manager) Reload() bool {
	newConfig, err := LoadFile(m.path)
	if err != nil {
		log.Error().Err(err).Msg("config manager: failed to reload config")
		return false
	}
	if err := newConfig.Validate(); err != nil {
		log.Error().Err(err).Msg("config manager: invalid config after reload")
		return false
	}

	m.mu.Lock()
	m.config = newConfig
	callbacks := append([]func(*Config){}, m.onChange...)
	m.mu.Unlock()

	log.Info().Msg("config manager: configuration reloaded")
	for _, fn := range callbacks {
		fn(newConfig)
	}
	return true
}
