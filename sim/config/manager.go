package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rodneysantos/toy-robot/sim/engine"
	"github.com/rodneysantos/toy-robot/sim/service"
)

// Aliases of the service errors so callers on either side can match them
var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = service.ErrInvalidConfig
)

// DefaultConfigID is the config preferred as default when present
const DefaultConfigID = "standard"

// extensions in lookup order
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles table configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.TableConfig
	configs       map[string]*engine.TableConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.TableConfig),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadDefaultLocked()

	return m, nil
}

// Dir returns the directory the manager reads from
func (m *Manager) Dir() string {
	return m.configDir
}

// LoadConfig loads a configuration by id. The id may carry a file extension.
func (m *Manager) LoadConfig(name string) (*engine.TableConfig, error) {
	id := configID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(id)
}

// loadLocked reads a config from disk into the cache. Caller holds m.mu.
func (m *Manager) loadLocked(id string) (*engine.TableConfig, error) {
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	path, err := m.findFile(id)
	if err != nil {
		return nil, err
	}

	config, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	m.configs[id] = config
	return config, nil
}

func (m *Manager) findFile(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return "", ErrConfigNotFound
	}
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, id+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// ReadConfigFile parses and validates a single JSON or YAML table config file
func ReadConfigFile(path string) (*engine.TableConfig, error) {
	return readConfigFile(path)
}

func readConfigFile(path string) (*engine.TableConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config engine.TableConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := engine.ValidateTableConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// ListConfigs returns information about all valid configurations, sorted by id.
// Invalid files are skipped.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	files, err := m.configFiles()
	if err != nil {
		return nil, err
	}

	var configs []*service.ConfigInfo
	for _, filename := range files {
		id := configID(filename)
		config, err := m.LoadConfig(id)
		if err != nil {
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:    filename,
			ConfigID:    id,
			Name:        config.Name,
			Description: config.Description,
			Width:       config.Width,
			Height:      config.Height,
		})
	}

	return configs, nil
}

// configFiles lists config file names, one per id, preferring .json over YAML
func (m *Manager) configFiles() ([]string, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !isConfigFile(entry.Name()) {
			continue
		}
		id := configID(entry.Name())
		if seen[id] {
			continue
		}
		path, err := m.findFile(id)
		if err != nil {
			continue
		}
		seen[id] = true
		files = append(files, filepath.Base(path))
	}

	sort.Strings(files)
	return files, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.TableConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by id
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached configuration and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configs = make(map[string]*engine.TableConfig)
	m.loadDefaultLocked()
	return nil
}

// Invalidate drops one configuration from the cache
func (m *Manager) Invalidate(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.configs, configID(name))
}

// loadDefaultLocked picks the default configuration. Caller holds m.mu.
func (m *Manager) loadDefaultLocked() {
	if config, err := m.loadLocked(DefaultConfigID); err == nil {
		m.defaultConfig = config
		return
	}

	files, err := m.configFiles()
	if err == nil {
		for _, filename := range files {
			if config, err := m.loadLocked(configID(filename)); err == nil {
				m.defaultConfig = config
				return
			}
		}
	}

	m.defaultConfig = engine.DefaultTableConfig()
}

// SaveConfig validates a configuration and writes it as <name>.json
func (m *Manager) SaveConfig(name string, config *engine.TableConfig) error {
	if err := engine.ValidateTableConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := configID(name)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: bad config name %q", ErrInvalidConfig, name)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, id+".json")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	return nil
}

func isConfigFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range extensions {
		if ext == known {
			return true
		}
	}
	return false
}

// configID strips a known config extension
func configID(name string) string {
	if isConfigFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
