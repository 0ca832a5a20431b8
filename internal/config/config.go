package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for the assistant backend.
// Environment variables are parsed from the TOHUM_ prefix,
// e.g. TOHUM_HTTP_PORT, TOHUM_DB_DRIVER.
type Config struct {
	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Relational store
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"data/memory.sqlite"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Vector index
	VectorStore   string `envconfig:"VECTOR_STORE" default:"chromem"`
	ChromemPath   string `envconfig:"CHROMEM_PATH" default:"data/embeddings"`
	Collection    string `envconfig:"COLLECTION" default:"tohum_memory"`
	WeaviateURL   string `envconfig:"WEAVIATE_URL" default:"localhost:8081"`
	IndexTimeoutS int    `envconfig:"INDEX_TIMEOUT_SECONDS" default:"5"`

	// Embeddings
	EmbedProvider      string `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel         string `envconfig:"EMBED_MODEL" default:"intfloat/multilingual-e5-small"`
	EmbedFallbackModel string `envconfig:"EMBED_FALLBACK_MODEL" default:"paraphrase-multilingual-minilm"`
	OllamaURL          string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`

	// Retrieval defaults
	SearchTopK int `envconfig:"SEARCH_TOP_K" default:"5"`
	ListLimit  int `envconfig:"LIST_LIMIT" default:"100"`

	// Startup
	BootstrapTimeoutSeconds int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"30"`
}

// ResolveDefaults validates driver names and fills derived values.
func (c *Config) ResolveDefaults() error {
	allowedDB := map[string]bool{"sqlite": true, "postgres": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
	}

	allowedVec := map[string]bool{"chromem": true, "weaviate": true}
	if !allowedVec[c.VectorStore] {
		return fmt.Errorf("unsupported VECTOR_STORE: %s", c.VectorStore)
	}

	allowedEmb := map[string]bool{"ollama": true, "mock": true}
	if !allowedEmb[c.EmbedProvider] {
		return fmt.Errorf("unsupported EMBED_PROVIDER: %s", c.EmbedProvider)
	}

	if c.SearchTopK <= 0 {
		c.SearchTopK = 5
	}
	if c.ListLimit <= 0 {
		c.ListLimit = 100
	}
	return nil
}

// New creates a Config by parsing TOHUM_-prefixed environment variables.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("TOHUM", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetHTTPAddr returns the HTTP server listen address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
