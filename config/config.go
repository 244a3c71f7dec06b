package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported providers and index backends
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"

	// EmbedHashing embeds offline with word hashing, no model server needed
	EmbedHashing = "hashing"

	BackendSQLite   = "sqlite"
	BackendPGVector = "pgvector"
)

// Config holds application configuration
type Config struct {
	Provider string `yaml:"provider"`
	// EmbedProvider overrides Provider for embeddings only; empty means Provider
	EmbedProvider string `yaml:"embed_provider,omitempty"`
	EmbedDim      int    `yaml:"embed_dim,omitempty"`
	Ollama        struct {
		BaseURL    string `yaml:"base_url"`
		ChatModel  string `yaml:"chat_model"`
		EmbedModel string `yaml:"embed_model"`
	} `yaml:"ollama"`
	OpenAI struct {
		BaseURL    string `yaml:"base_url"`
		APIKeyEnv  string `yaml:"api_key_env"`
		APIVersion string `yaml:"api_version"`
		ChatModel  string `yaml:"chat_model"`
		EmbedModel string `yaml:"embed_model"`
	} `yaml:"openai"`
	Generation struct {
		Temperature       float64 `yaml:"temperature"`
		MaxTokens         int     `yaml:"max_tokens"`
		TimeoutSecs       int     `yaml:"timeout_secs"`
		MaxRetries        int     `yaml:"max_retries"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"generation"`
	Processing struct {
		ChunkSize        int `yaml:"chunk_size"`
		ChunkOverlap     int `yaml:"chunk_overlap"`
		TopK             int `yaml:"top_k"`
		BatchSize        int `yaml:"batch_size"`
		Concurrency      int `yaml:"concurrency"`
		MaxContextTokens int `yaml:"max_context_tokens"`
	} `yaml:"processing"`
	Index struct {
		Backend          string `yaml:"backend"`
		Dir              string `yaml:"dir"`
		Collection       string `yaml:"collection"`
		ConnectionString string `yaml:"connection_string"`
	} `yaml:"index"`
	Paths struct {
		DocumentsDir string `yaml:"documents_dir"`
	} `yaml:"paths"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultPath returns ~/.hammond/config.yaml
func DefaultPath() string {
	return filepath.Join(homeDir(), ".hammond", "config.yaml")
}

// Load loads configuration from path or returns defaults when the file is missing.
// A .env file in the working directory is loaded first so API keys can live there.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the values the pipeline depends on
func (c *Config) Validate() error {
	p := c.Processing
	if p.ChunkSize <= 0 {
		return fmt.Errorf("processing.chunk_size must be positive, got %d", p.ChunkSize)
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("processing.chunk_overlap must be in [0, %d), got %d", p.ChunkSize, p.ChunkOverlap)
	}
	if p.TopK <= 0 {
		return fmt.Errorf("processing.top_k must be positive, got %d", p.TopK)
	}
	if p.BatchSize <= 0 {
		return fmt.Errorf("processing.batch_size must be positive, got %d", p.BatchSize)
	}
	if c.Generation.MaxRetries < 0 {
		return fmt.Errorf("generation.max_retries must not be negative, got %d", c.Generation.MaxRetries)
	}

	switch c.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderAzure:
	default:
		return fmt.Errorf("unknown provider: %q", c.Provider)
	}

	switch c.EmbedProvider {
	case "", ProviderOllama, ProviderOpenAI, ProviderAzure, EmbedHashing:
	default:
		return fmt.Errorf("unknown embed provider: %q", c.EmbedProvider)
	}
	if c.EmbedDim < 0 {
		return fmt.Errorf("embed_dim must not be negative, got %d", c.EmbedDim)
	}

	switch c.Index.Backend {
	case BackendSQLite:
		if c.Index.Dir == "" {
			return errors.New("index.dir is required for the sqlite backend")
		}
	case BackendPGVector:
		if c.Index.ConnectionString == "" {
			return errors.New("index.connection_string is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("unknown index backend: %q", c.Index.Backend)
	}
	return nil
}

// EmbeddingProvider returns the provider used for embeddings
func (c *Config) EmbeddingProvider() string {
	if c.EmbedProvider != "" {
		return c.EmbedProvider
	}
	return c.Provider
}

// Timeout returns the per-call provider timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSecs) * time.Second
}

// APIKey returns the OpenAI/Azure key from the configured environment variable
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(c.OpenAI.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("missing API key in env %s", c.OpenAI.APIKeyEnv)
	}
	return key, nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Provider = ProviderOllama
	cfg.Ollama.BaseURL = "http://localhost:11434"
	cfg.Ollama.ChatModel = ""
	cfg.Ollama.EmbedModel = "nomic-embed-text"
	cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	cfg.OpenAI.APIVersion = "2024-06-01"
	cfg.OpenAI.ChatModel = "gpt-4o-mini"
	cfg.OpenAI.EmbedModel = "text-embedding-3-small"
	cfg.Generation.Temperature = 0
	cfg.Generation.MaxTokens = 0
	cfg.Generation.TimeoutSecs = 120
	cfg.Generation.MaxRetries = 2
	cfg.Generation.RequestsPerSecond = 0
	cfg.Processing.ChunkSize = 1000
	cfg.Processing.ChunkOverlap = 200
	cfg.Processing.TopK = 2
	cfg.Processing.BatchSize = 32
	cfg.Processing.Concurrency = 2
	cfg.Processing.MaxContextTokens = 2000
	cfg.Index.Backend = BackendSQLite
	cfg.Index.Dir = filepath.Join(homeDir(), ".hammond", "index")
	cfg.Index.Collection = "hammond_chunks"
	cfg.Index.ConnectionString = ""
	cfg.Paths.DocumentsDir = "data"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	return cfg
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.TempDir()
}
