// Package ingest implements the document ingestion pipeline: uploaded
// files are validated, their text extracted, split into overlapping
// chunks, and appended to the vector store with provenance metadata.
//
// Files in a batch are processed independently. One file failing never
// aborts the batch; its failure is recorded in the summary and the
// remaining files proceed.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docuchat/internal/vectorstore"
)

var tracer = otel.Tracer("docuchat.ingest")

var (
	// ErrUnsupportedFormat indicates the file extension is not ingestable.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyContent indicates extraction yielded no usable text.
	ErrEmptyContent = errors.New("no text content extracted")
)

// Extractor extracts plain text from raw file bytes.
type Extractor interface {
	Extract(content []byte, filename string) (string, error)
}

// Chunker splits extracted text into overlapping chunks.
type Chunker interface {
	Split(text string) ([]string, error)
}

// DocumentAdder appends chunk documents to the vector store.
type DocumentAdder interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) ([]string, error)
}

// File is one uploaded file pending ingestion.
type File struct {
	Filename string
	Content  []byte
}

// Status of a single file after processing.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// FileResult reports the outcome of processing one file.
type FileResult struct {
	Filename        string `json:"filename"`
	Status          string `json:"status"`
	ChunksProcessed int    `json:"chunks_processed,omitempty"`
	TotalCharacters int    `json:"total_characters,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Summary aggregates the per-file outcomes of a batch.
type Summary struct {
	Successful []FileResult `json:"successful"`
	Failed     []FileResult `json:"failed"`
}

// Service runs the ingestion pipeline.
type Service struct {
	extractor Extractor
	chunker   Chunker
	store     DocumentAdder
	logger    *zap.Logger
}

// NewService creates an ingestion service.
func NewService(extractor Extractor, chunker Chunker, store DocumentAdder, logger *zap.Logger) (*Service, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if chunker == nil {
		return nil, errors.New("chunker is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor: extractor,
		chunker:   chunker,
		store:     store,
		logger:    logger,
	}, nil
}

// ProcessFiles ingests a batch of files, returning a per-file summary.
// Files are processed in order; a failure is recorded and the batch
// continues. Context cancellation stops the batch between files.
func (s *Service) ProcessFiles(ctx context.Context, files []File) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "ingest.ProcessFiles")
	defer span.End()
	span.SetAttributes(attribute.Int("file_count", len(files)))

	summary := &Summary{
		Successful: []FileResult{},
		Failed:     []FileResult{},
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("batch canceled: %w", err)
		}

		result, err := s.processFile(ctx, file)
		if err != nil {
			s.logger.Warn("file ingestion failed",
				zap.String("filename", file.Filename),
				zap.Error(err),
			)
			summary.Failed = append(summary.Failed, FileResult{
				Filename: file.Filename,
				Status:   StatusFailed,
				Error:    err.Error(),
			})
			continue
		}

		s.logger.Info("file ingested",
			zap.String("filename", file.Filename),
			zap.Int("chunks", result.ChunksProcessed),
			zap.Int("characters", result.TotalCharacters),
		)
		summary.Successful = append(summary.Successful, result)
	}

	span.SetAttributes(
		attribute.Int("successful", len(summary.Successful)),
		attribute.Int("failed", len(summary.Failed)),
	)
	return summary, nil
}

func (s *Service) processFile(ctx context.Context, file File) (FileResult, error) {
	ctx, span := tracer.Start(ctx, "ingest.processFile")
	defer span.End()
	span.SetAttributes(attribute.String("filename", file.Filename))

	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".pdf" {
		return FileResult{}, fmt.Errorf("%w: %q (only .pdf is supported)", ErrUnsupportedFormat, ext)
	}

	text, err := s.extractor.Extract(file.Content, file.Filename)
	if err != nil {
		return FileResult{}, fmt.Errorf("extracting %s: %w", file.Filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return FileResult{}, fmt.Errorf("%s: %w", file.Filename, ErrEmptyContent)
	}

	chunks, err := s.chunker.Split(text)
	if err != nil {
		return FileResult{}, fmt.Errorf("chunking %s: %w", file.Filename, err)
	}
	if len(chunks) == 0 {
		return FileResult{}, fmt.Errorf("%s: %w", file.Filename, ErrEmptyContent)
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vectorstore.Document{
			ID:      uuid.New().String(),
			Content: chunk,
			Metadata: map[string]interface{}{
				vectorstore.MetaSource:      file.Filename,
				vectorstore.MetaChunkIndex:  i,
				vectorstore.MetaTotalChunks: len(chunks),
			},
		}
	}

	if _, err := s.store.AddDocuments(ctx, docs); err != nil {
		return FileResult{}, fmt.Errorf("storing chunks for %s: %w", file.Filename, err)
	}

	return FileResult{
		Filename:        file.Filename,
		Status:          StatusSuccess,
		ChunksProcessed: len(chunks),
		TotalCharacters: len(text),
	}, nil
}
