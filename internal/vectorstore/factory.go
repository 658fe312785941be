package vectorstore

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider names accepted by NewStore.
const (
	ProviderChromem = "chromem"
	ProviderQdrant  = "qdrant"
	ProviderMemory  = "memory"
)

// SharedConfig holds the settings every backend needs.
type SharedConfig struct {
	// VectorSize is the embedding dimension. Must match the embedder output.
	// Default: 384.
	VectorSize int `koanf:"vector_size"`

	// Model is the identity of the embedding model the corpus is built with.
	// Durable backends record it and refuse to open a corpus built with a
	// different model. Empty disables the check.
	Model string `koanf:"model"`

	// MinSimilarity is the minimum cosine similarity a query result must
	// reach to be returned. Default: 0.3. Set negative to disable gating.
	MinSimilarity float32 `koanf:"min_similarity"`
}

// ApplyDefaults sets default values for unset fields.
func (c *SharedConfig) ApplyDefaults() {
	if c.VectorSize == 0 {
		c.VectorSize = 384
	}
	if c.MinSimilarity == 0 {
		c.MinSimilarity = 0.3
	}
}

// Validate validates the configuration.
func (c *SharedConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	if c.MinSimilarity < -1 || c.MinSimilarity > 1 {
		return fmt.Errorf("%w: min similarity must be within [-1, 1]", ErrInvalidConfig)
	}
	return nil
}

// Config selects and configures a store backend.
type Config struct {
	// Provider is one of "chromem" (default), "qdrant", "memory".
	Provider string `koanf:"provider"`

	VectorSize    int     `koanf:"vector_size"`
	Model         string  `koanf:"model"`
	MinSimilarity float32 `koanf:"min_similarity"`

	Chromem ChromemConfig `koanf:"chromem"`
	Qdrant  QdrantConfig  `koanf:"qdrant"`
}

func (c Config) shared() SharedConfig {
	return SharedConfig{
		VectorSize:    c.VectorSize,
		Model:         c.Model,
		MinSimilarity: c.MinSimilarity,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderChromem
	}
	shared := c.shared()
	shared.ApplyDefaults()
	c.VectorSize = shared.VectorSize
	c.MinSimilarity = shared.MinSimilarity
	c.Chromem.ApplyDefaults()
	c.Qdrant.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderChromem, ProviderQdrant, ProviderMemory:
	default:
		return fmt.Errorf("%w: unknown vector store provider %q", ErrInvalidConfig, c.Provider)
	}
	shared := c.shared()
	if err := shared.Validate(); err != nil {
		return err
	}
	switch c.Provider {
	case ProviderChromem:
		return c.Chromem.Validate()
	case ProviderQdrant:
		return c.Qdrant.Validate()
	}
	return nil
}

// NewStore builds the configured store backend.
func NewStore(cfg Config, embedder Embedder, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderChromem:
		return NewChromemStore(cfg.Chromem, cfg.shared(), embedder, logger.Named("chromem"))
	case ProviderQdrant:
		return NewQdrantStore(cfg.Qdrant, cfg.shared(), embedder, logger.Named("qdrant"))
	case ProviderMemory:
		return NewMemoryStore(cfg.shared(), embedder, logger.Named("memory")), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
