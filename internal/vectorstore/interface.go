// Package vectorstore provides the persistent chunk index for docuchat.
//
// Document chunks are embedded and stored in a single collection;
// retrieval answers top-k cosine-similarity queries over the stored
// vectors. Two backing implementations are provided: an embedded
// chromem-go database (default, no external services) and an external
// Qdrant server reached over gRPC.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when the collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrConnectionFailed indicates the backing store is unreachable.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	// Returns one embedding per input text.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for the backing vector collection.
//
// The collection is append-only: chunks are added during ingestion and
// read during retrieval, never updated or deleted. Implementations must
// be safe for concurrent adds and searches.
type Store interface {
	// EnsureCollection creates the collection with the configured
	// schema if it does not exist, and is a no-op otherwise.
	EnsureCollection(ctx context.Context) error

	// AddDocuments embeds and appends documents to the collection.
	// Returns the stored document IDs.
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// Search returns up to k documents most similar to the query,
	// ordered by descending similarity.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Info returns metadata about the collection.
	Info(ctx context.Context) (*CollectionInfo, error)

	// Close releases resources held by the store.
	Close() error
}
