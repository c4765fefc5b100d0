package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the docqa service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Chunk      ChunkConfig      `yaml:"chunk"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Store      StoreConfig      `yaml:"store"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	MaxUploadMB     int      `yaml:"max_upload_mb"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ShutdownTimeout int      `yaml:"shutdown_timeout_secs"`
}

// ChunkConfig holds word-window chunking configuration.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK             int `yaml:"top_k"`
	BuildConcurrency int `yaml:"build_concurrency"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "mock"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Dimension   int     `yaml:"dimension"` // only used by the mock provider
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
}

// GenerationConfig holds answer generation configuration.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "echo"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float32 `yaml:"temperature"`
}

// StoreConfig holds document store configuration.
type StoreConfig struct {
	MaxDocuments int    `yaml:"max_documents"`
	TTLMinutes   int    `yaml:"ttl_minutes"` // 0 = never expire
	Path         string `yaml:"path"`        // bbolt file, empty = memory only
}

// CacheConfig holds query embedding cache configuration.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
	TTLMinutes int  `yaml:"ttl_minutes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			MaxUploadMB:     32,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10,
		},
		Chunk: ChunkConfig{
			Size:    300,
			Overlap: 50,
		},
		Retrieve: RetrieveConfig{
			TopK:             3,
			BuildConcurrency: 4,
		},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			Model:       "text-embedding-3-small",
			APIKeyEnv:   "OPENAI_API_KEY",
			Dimension:   256,
			TimeoutSecs: 30,
			MaxRetries:  0,
		},
		Generation: GenerationConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			TimeoutSecs: 60,
			Temperature: 0.2,
		},
		Store: StoreConfig{
			MaxDocuments: 256,
		},
		Cache: CacheConfig{
			Enabled:    false,
			MaxEntries: 512,
			TTLMinutes: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides selected settings from the environment.
func (c *Config) ApplyEnv() {
	if addr := os.Getenv("DOCQA_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("DOCQA_STORE_PATH"); path != "" {
		c.Store.Path = path
	}
	if level := os.Getenv("DOCQA_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks the configuration for values that would make the pipeline misbehave.
func (c *Config) Validate() error {
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be positive, got %d", c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap must be in [0, %d), got %d", c.Chunk.Size, c.Chunk.Overlap)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if c.Store.MaxDocuments <= 0 {
		return fmt.Errorf("store.max_documents must be positive, got %d", c.Store.MaxDocuments)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

// EmbeddingTimeout returns the per-call embedding timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return seconds(c.Embedding.TimeoutSecs)
}

// GenerationTimeout returns the per-call generation timeout.
func (c *Config) GenerationTimeout() time.Duration {
	return seconds(c.Generation.TimeoutSecs)
}

// StoreTTL returns the document time-to-live, zero meaning no expiry.
func (c *Config) StoreTTL() time.Duration {
	return time.Duration(c.Store.TTLMinutes) * time.Minute
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
