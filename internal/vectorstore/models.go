package vectorstore

// Metadata keys used for document chunks.
const (
	// MetaSource is the originating filename of a chunk.
	MetaSource = "source"
	// MetaChunkIndex is the zero-based chunk position within its file.
	MetaChunkIndex = "chunk_index"
	// MetaTotalChunks is the number of chunks produced from the file.
	MetaTotalChunks = "total_chunks"
)

// Document represents a chunk to be stored in the vector store.
type Document struct {
	// ID is the unique identifier for the document. If empty, the
	// store assigns one.
	ID string

	// Content is the chunk text.
	Content string

	// Metadata contains additional key-value pairs, typically the
	// source filename and chunk position.
	Metadata map[string]interface{}
}

// SearchResult represents a retrieval hit from the vector store.
type SearchResult struct {
	// ID is the document identifier.
	ID string

	// Content is the chunk text.
	Content string

	// Score is the similarity score (higher = more similar).
	Score float32

	// Metadata contains the stored document metadata.
	Metadata map[string]interface{}
}

// CollectionInfo contains metadata about the vector collection.
type CollectionInfo struct {
	// Name is the collection name.
	Name string `json:"name"`

	// PointCount is the number of vectors in the collection.
	PointCount int `json:"point_count"`

	// VectorSize is the dimensionality of vectors in this collection.
	VectorSize int `json:"vector_size"`
}
