package vectorstore

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docuchat/internal/config"
)

// New creates a Store based on the configured provider.
//
// "chromem" (the default) runs an embedded persistent store with no
// external dependencies. "qdrant" connects to an external Qdrant
// server over gRPC.
func New(cfg config.VectorStoreConfig, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.Provider {
	case "", "chromem":
		return NewChromemStore(ChromemConfig{
			Path:       cfg.Path,
			Collection: cfg.Collection,
			VectorSize: cfg.VectorSize,
			Compress:   cfg.Compress,
		}, embedder, logger)
	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			Host:         cfg.Host,
			Port:         cfg.Port,
			Collection:   cfg.Collection,
			VectorSize:   uint64(cfg.VectorSize),
			UseTLS:       cfg.UseTLS,
			RetryBackoff: time.Second,
		}, embedder)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
