// Package config provides configuration loading, defaults, and hot-reload for
// the recall server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Index     IndexConfig     `yaml:"index"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexDir     string `yaml:"index_dir"`
	FAQIndexPath string `yaml:"faq_index_path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ModelPath      string `yaml:"model_path"`
	Dimensions     int    `yaml:"dimensions"`
	MaxTokens      int    `yaml:"max_tokens"`
	CacheSize      int    `yaml:"cache_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SearchConfig holds per-intent similarity thresholds and ranking settings.
// These are the hot-reloadable tunables.
type SearchConfig struct {
	UserTopK             int     `yaml:"user_top_k"`
	UserMinSimilarity    float64 `yaml:"user_min_similarity"`
	ArchiveMinSimilarity float64 `yaml:"archive_min_similarity"`
	SystemMinSimilarity  float64 `yaml:"system_min_similarity"`
	FeedMinSimilarity    float64 `yaml:"feed_min_similarity"`
	ArchiveOverfetch     int     `yaml:"archive_overfetch"`
	RecommendLimit       int     `yaml:"recommend_limit"`
	BreedBonus           float64 `yaml:"breed_bonus"`
	TypeBonus            float64 `yaml:"type_bonus"`
}

// IndexConfig holds index build settings.
type IndexConfig struct {
	BatchSize int `yaml:"batch_size"`
	// ExpiryHours enables time-based invalidation when positive: CheckAndRefresh
	// rebuilds a store whose files are older than this. 0 disables expiry.
	ExpiryHours int `yaml:"expiry_hours"`
}

// Load reads and parses the config file at path, applies defaults, and expands
// relative paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Storage.FAQIndexPath = expandPath(cfg.Storage.FAQIndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

// Runtime holds the hot-reloadable part of the config behind a lock, so the
// watcher can swap thresholds while requests are in flight.
type Runtime struct {
	mu     sync.RWMutex
	search SearchConfig
}

// NewRuntime creates a runtime holder seeded with search.
func NewRuntime(search SearchConfig) *Runtime {
	return &Runtime{search: search}
}

// Search returns a copy of the current search settings.
func (r *Runtime) Search() SearchConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.search
}

// SetSearch replaces the search settings.
func (r *Runtime) SetSearch(search SearchConfig) {
	r.mu.Lock()
	r.search = search
	r.mu.Unlock()
}
