package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the docchat service.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Answer    AnswerConfig    `yaml:"answer"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ChunkingConfig holds sliding-window chunking parameters.
type ChunkingConfig struct {
	Size    int `yaml:"size"`    // Chunk size in characters
	Overlap int `yaml:"overlap"` // Overlap between adjacent chunks
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`    // Optional OpenAI-compatible endpoint
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// AnswerConfig holds answer-generation configuration.
type AnswerConfig struct {
	Model       string  `yaml:"model"` // e.g., "gpt-4o-mini"
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK         int `yaml:"top_k"`
	PreviewChars int `yaml:"preview_chars"` // Snippet preview length for search-only output
}

// StorageConfig holds on-disk storage locations.
type StorageConfig struct {
	EmbeddingsDir string `yaml:"embeddings_dir"` // One index record JSON per document
	SessionsDB    string `yaml:"sessions_db"`    // BoltDB file for chat transcripts
}

// CacheConfig bounds the in-process engine and query caches.
type CacheConfig struct {
	MaxEngines   int `yaml:"max_engines"`   // LRU capacity for per-document engines
	QueryResults int `yaml:"query_results"` // Per-engine query-result cache size
	QueryTTLSecs int `yaml:"query_ttl_secs"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	CORSEnabled bool   `yaml:"cors_enabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 50,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
		},
		Answer: AnswerConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
		},
		Retrieve: RetrieveConfig{
			TopK:         3,
			PreviewChars: 300,
		},
		Storage: StorageConfig{
			EmbeddingsDir: filepath.Join("tmp", "embeddings"),
			SessionsDB:    filepath.Join("tmp", "sessions.db"),
		},
		Cache: CacheConfig{
			MaxEngines:   32,
			QueryResults: 100,
			QueryTTLSecs: 300,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSEnabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docchat.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docchat.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docchat", "config.yaml")
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
