// Package chunker splits extracted text into overlapping passages
// sized for embedding and retrieval.
package chunker

import (
	"github.com/tmc/langchaingo/textsplitter"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters
// between consecutive chunks.
const DefaultChunkOverlap = 200

// separators are tried in priority order: paragraph break, line break,
// word break, then character break. Splitting falls to the next level
// only when a segment still exceeds the chunk size, which keeps cuts
// away from mid-sentence wherever possible.
var separators = []string{"\n\n", "\n", " ", ""}

// Chunker splits text using a layered-separator strategy.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	splitter     textsplitter.RecursiveCharacter
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between consecutive chunks.
func WithChunkOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.chunkOverlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Overlap must stay below the chunk size.
	if c.chunkOverlap >= c.chunkSize {
		c.chunkOverlap = c.chunkSize / 4
	}

	c.splitter = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.chunkSize),
		textsplitter.WithChunkOverlap(c.chunkOverlap),
		textsplitter.WithSeparators(separators),
	)

	return c
}

// ChunkSize returns the configured chunk size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// ChunkOverlap returns the configured chunk overlap.
func (c *Chunker) ChunkOverlap() int { return c.chunkOverlap }

// Split splits text into an ordered sequence of chunks. It is
// deterministic: the same input always yields the same chunks. Empty
// input yields no chunks; input shorter than the chunk size yields
// exactly one.
func (c *Chunker) Split(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	return c.splitter.SplitText(text)
}
