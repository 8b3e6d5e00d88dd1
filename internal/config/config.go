// Package config provides configuration loading and structs for the kiku server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Generation GenerationConfig `yaml:"generation"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// StorageConfig selects the backend for assets, sessions and history.
type StorageConfig struct {
	// Backend is "memory" (default) or "sqlite".
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
}

// RetrievalConfig configures the similarity index and how it is queried.
type RetrievalConfig struct {
	// Index is "keyword" (Bleve, default), "semantic" or "hybrid".
	Index string `yaml:"index"`
	// Scope is "asset" (only the session's document, default) or "global".
	Scope         string  `yaml:"scope"`
	TopK          int     `yaml:"top_k"`
	ChunkSize     int     `yaml:"chunk_size"`
	ChunkOverlap  int     `yaml:"chunk_overlap"`
	KeywordWeight float64 `yaml:"keyword_weight"`
	// Fuzziness is the edit distance allowed per keyword query term (0 disables, max 2).
	Fuzziness int `yaml:"fuzziness"`
}

// EmbeddingConfig holds embedder settings for the semantic and hybrid indexes.
type EmbeddingConfig struct {
	// Provider is "hash" (deterministic, default) or "onnx".
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// SessionsConfig holds chat session settings.
type SessionsConfig struct {
	// ValidateAsset rejects start-chat requests for asset ids that were never ingested.
	ValidateAsset bool `yaml:"validate_asset"`
}

// GenerationConfig configures the language-model client.
type GenerationConfig struct {
	// Provider is "openai" (default) or "ollama".
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	// PromptTemplate is a text/template with .Context and .Question; empty uses the built-in prompt.
	PromptTemplate string `yaml:"prompt_template"`
}

// Timeout returns the generation timeout as a duration.
func (g *GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// WatchConfig holds inbox directory settings. Files dropped there are ingested.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, applies defaults
// and environment overrides. A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	if cfg.Storage.Backend == BackendSQLite {
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	}
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that have no meaningful interpretation.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q (supported: memory, sqlite)", c.Storage.Backend)
	}
	switch c.Retrieval.Index {
	case IndexKeyword, IndexSemantic, IndexHybrid:
	default:
		return fmt.Errorf("unknown retrieval index %q (supported: keyword, semantic, hybrid)", c.Retrieval.Index)
	}
	switch c.Retrieval.Scope {
	case ScopeAsset, ScopeGlobal:
	default:
		return fmt.Errorf("unknown retrieval scope %q (supported: asset, global)", c.Retrieval.Scope)
	}
	switch c.Generation.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown generation provider %q (supported: openai, ollama)", c.Generation.Provider)
	}
	if c.Retrieval.Fuzziness < 0 || c.Retrieval.Fuzziness > 2 {
		return fmt.Errorf("fuzziness must be between 0 and 2, got %d", c.Retrieval.Fuzziness)
	}
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Retrieval.ChunkOverlap, c.Retrieval.ChunkSize)
	}
	return nil
}

// ApplyEnv overrides secrets and provider choice from the environment.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("KIKU_GENERATOR"); v != "" {
		cfg.Generation.Provider = strings.ToLower(v)
	}
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" && cfg.Generation.Provider == ProviderOllama {
		cfg.Generation.BaseURL = v
	}
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
