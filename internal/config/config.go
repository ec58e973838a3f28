// Package config provides configuration loading for docuchat.
//
// Configuration is loaded in three layers, lowest precedence first:
// hardcoded defaults, an optional YAML file, and environment variables
// with the DOCUCHAT_ prefix.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete docuchat configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	OpenAI      OpenAIConfig      `koanf:"openai"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Agent       AgentConfig       `koanf:"agent"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxUploadBytes is the per-file size ceiling for uploads.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// OpenAIConfig holds credentials and model selection for the
// OpenAI-compatible chat and embedding APIs.
type OpenAIConfig struct {
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	ChatModel      string `koanf:"chat_model"`
	EmbeddingModel string `koanf:"embedding_model"`
}

// VectorStoreConfig holds vector store configuration.
//
// Provider selects the backing store: "chromem" (embedded, default) or
// "qdrant" (external server over gRPC).
type VectorStoreConfig struct {
	Provider   string `koanf:"provider"`
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`

	// Path is the persistence directory for the chromem provider.
	// Compress enables gzip compression of persisted files.
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`

	// Host and Port locate the qdrant gRPC endpoint (qdrant provider only).
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	UseTLS bool   `koanf:"use_tls"`
}

// IngestConfig holds text chunking parameters for ingestion.
type IngestConfig struct {
	ChunkSize    int `koanf:"chunk_size"`
	ChunkOverlap int `koanf:"chunk_overlap"`
}

// AgentConfig holds chat agent configuration.
type AgentConfig struct {
	// MaxToolIterations bounds the reason-act loop per chat turn.
	MaxToolIterations int `koanf:"max_tool_iterations"`

	// RetrievalTopK is the number of chunks fetched per tool call.
	RetrievalTopK int `koanf:"retrieval_top_k"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  5 * 1024 * 1024,
		},
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com/v1",
			ChatModel:      "gpt-4o",
			EmbeddingModel: "text-embedding-3-small",
		},
		VectorStore: VectorStoreConfig{
			Provider:   "chromem",
			Collection: "documents",
			VectorSize: 1536,
			Path:       "./data/vectorstore",
			Host:       "localhost",
			Port:       6334,
		},
		Ingest: IngestConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Agent: AgentConfig{
			MaxToolIterations: 5,
			RetrievalTopK:     4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	if c.OpenAI.APIKey == "" {
		return errors.New("openai api key is required (DOCUCHAT_OPENAI_API_KEY)")
	}
	if c.VectorStore.Collection == "" {
		return errors.New("vectorstore collection name is required")
	}
	if c.VectorStore.VectorSize <= 0 {
		return fmt.Errorf("invalid vector size: %d", c.VectorStore.VectorSize)
	}
	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unsupported vectorstore provider: %s (supported: chromem, qdrant)", c.VectorStore.Provider)
	}
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size: %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be in [0, chunk size)", c.Ingest.ChunkOverlap)
	}
	if c.Agent.MaxToolIterations <= 0 {
		return fmt.Errorf("max tool iterations must be positive, got %d", c.Agent.MaxToolIterations)
	}
	if c.Agent.RetrievalTopK <= 0 {
		return fmt.Errorf("retrieval top k must be positive, got %d", c.Agent.RetrievalTopK)
	}
	return nil
}
