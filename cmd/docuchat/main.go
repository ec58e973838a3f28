// Docuchat is a retrieval-augmented chat server over uploaded PDFs.
//
// Uploaded documents are extracted, chunked, embedded, and stored in a
// vector store; the chat endpoint answers questions grounded in that
// store through a tool-calling agent.
//
// Configuration is loaded from an optional YAML file and DOCUCHAT_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults (embedded chromem store)
//	DOCUCHAT_OPENAI_API_KEY=sk-... docuchat
//
//	# Start with a config file
//	docuchat --config config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docuchat/internal/agent"
	"github.com/fyrsmithlabs/docuchat/internal/chat"
	"github.com/fyrsmithlabs/docuchat/internal/chunker"
	"github.com/fyrsmithlabs/docuchat/internal/config"
	"github.com/fyrsmithlabs/docuchat/internal/embeddings"
	"github.com/fyrsmithlabs/docuchat/internal/extractor"
	httpserver "github.com/fyrsmithlabs/docuchat/internal/http"
	"github.com/fyrsmithlabs/docuchat/internal/ingest"
	"github.com/fyrsmithlabs/docuchat/internal/logging"
	"github.com/fyrsmithlabs/docuchat/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  docuchat [--config FILE]   Start the docuchat server\n")
			fmt.Fprintf(os.Stderr, "  docuchat version           Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("docuchat\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the docuchat server and blocks until context cancellation.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize structured logging
//  3. Create embedding service and vector store
//  4. Wire ingestion pipeline and chat agent
//  5. Start HTTP server
//  6. Graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting docuchat",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("vectorstore_provider", cfg.VectorStore.Provider),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbeddingModel,
		APIKey:  cfg.OpenAI.APIKey,
	})
	if err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}

	store, err := vectorstore.New(cfg.VectorStore, embedder, logger)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	storeSvc := vectorstore.NewService(store)
	defer func() {
		if err := storeSvc.Close(); err != nil {
			logger.Warn("closing vector store", zap.Error(err))
		}
	}()

	ingestSvc, err := ingest.NewService(
		extractor.NewPDFExtractor(),
		chunker.New(
			chunker.WithChunkSize(cfg.Ingest.ChunkSize),
			chunker.WithChunkOverlap(cfg.Ingest.ChunkOverlap),
		),
		storeSvc,
		logger,
	)
	if err != nil {
		return fmt.Errorf("creating ingestion service: %w", err)
	}

	agentSvc, err := agent.NewService(
		newOpenAIClient(cfg.OpenAI),
		storeSvc,
		agent.Config{
			Model:             cfg.OpenAI.ChatModel,
			MaxToolIterations: cfg.Agent.MaxToolIterations,
			RetrievalTopK:     cfg.Agent.RetrievalTopK,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}

	chatSvc, err := chat.NewService(agentSvc, logger)
	if err != nil {
		return fmt.Errorf("creating chat service: %w", err)
	}

	srv, err := httpserver.NewServer(ingestSvc, chatSvc, storeSvc, logger, &httpserver.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("metrics_endpoint", "/metrics"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// newOpenAIClient builds the chat completion client, honoring a custom
// base URL for OpenAI-compatible providers.
func newOpenAIClient(cfg config.OpenAIConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}
