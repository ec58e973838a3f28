// Package http provides the HTTP API for docuchat: document upload,
// chat, collection info, health, and metrics endpoints.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docuchat/internal/agent"
	"github.com/fyrsmithlabs/docuchat/internal/chat"
	"github.com/fyrsmithlabs/docuchat/internal/ingest"
	"github.com/fyrsmithlabs/docuchat/internal/vectorstore"
)

// uploadFieldName is the multipart form field carrying uploaded files.
const uploadFieldName = "files"

// Ingestor processes uploaded files into the vector store.
type Ingestor interface {
	ProcessFiles(ctx context.Context, files []ingest.File) (*ingest.Summary, error)
}

// Chatter answers a conversation.
type Chatter interface {
	Respond(ctx context.Context, conversation []agent.Message) (string, error)
}

// InfoProvider reports vector store collection metadata.
type InfoProvider interface {
	Info(ctx context.Context) (*vectorstore.CollectionInfo, error)
}

// Server provides HTTP endpoints for docuchat.
type Server struct {
	echo     *echo.Echo
	ingestor Ingestor
	chatter  Chatter
	info     InfoProvider
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// MaxUploadBytes is the per-file upload size ceiling.
	MaxUploadBytes int64
}

// NewServer creates a new HTTP server.
func NewServer(ingestor Ingestor, chatter Chatter, info InfoProvider, logger *zap.Logger, cfg *Config) (*Server, error) {
	if ingestor == nil {
		return nil, fmt.Errorf("ingestor cannot be nil")
	}
	if chatter == nil {
		return nil, fmt.Errorf("chatter cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:           "localhost",
			Port:           8000,
			MaxUploadBytes: 5 * 1024 * 1024,
		}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 * 1024 * 1024
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		ingestor: ingestor,
		chatter:  chatter,
		info:     info,
		logger:   logger,
		config:   cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// Echo exposes the underlying echo instance for route registration and
// tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/files/upload", s.handleUpload)
	s.echo.POST("/chat", s.handleChat)
	s.echo.POST("/chat/", s.handleChat)
	s.echo.GET("/documents/info", s.handleInfo)
}

// UploadResponse is the response body for POST /files/upload.
type UploadResponse struct {
	Message    string              `json:"message"`
	Successful []ingest.FileResult `json:"successful"`
	Failed     []ingest.FileResult `json:"failed"`
}

// ChatMessage is one conversation turn on the wire. Sender is "user"
// or "ai".
type ChatMessage struct {
	Content string `json:"content"`
	Sender  string `json:"sender"`
}

// ChatRequest is the request body for POST /chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse is the response body for POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleUpload ingests uploaded PDF files. Files that fail validation
// or processing are reported in the failed list; the rest proceed.
func (s *Server) handleUpload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		s.logger.Warn("invalid upload request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "multipart form required")
	}

	headers := form.File[uploadFieldName]
	if len(headers) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files provided in field \"files\"")
	}

	var files []ingest.File
	var oversized []ingest.FileResult
	for _, header := range headers {
		if header.Size > s.config.MaxUploadBytes {
			oversized = append(oversized, ingest.FileResult{
				Filename: header.Filename,
				Status:   ingest.StatusFailed,
				Error:    fmt.Sprintf("file exceeds %d byte limit", s.config.MaxUploadBytes),
			})
			continue
		}

		content, err := readMultipartFile(header, s.config.MaxUploadBytes)
		if err != nil {
			s.logger.Warn("reading uploaded file failed",
				zap.String("filename", header.Filename),
				zap.Error(err),
			)
			oversized = append(oversized, ingest.FileResult{
				Filename: header.Filename,
				Status:   ingest.StatusFailed,
				Error:    "could not read file",
			})
			continue
		}

		files = append(files, ingest.File{
			Filename: header.Filename,
			Content:  content,
		})
	}

	summary := &ingest.Summary{Successful: []ingest.FileResult{}, Failed: []ingest.FileResult{}}
	if len(files) > 0 {
		summary, err = s.ingestor.ProcessFiles(c.Request().Context(), files)
		if err != nil {
			s.logger.Error("ingestion batch failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "ingestion failed")
		}
	}
	summary.Failed = append(summary.Failed, oversized...)

	return c.JSON(http.StatusOK, UploadResponse{
		Message:    fmt.Sprintf("Processed %d files: %d successful, %d failed", len(headers), len(summary.Successful), len(summary.Failed)),
		Successful: summary.Successful,
		Failed:     summary.Failed,
	})
}

func readMultipartFile(header *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit+1))
}

// handleChat answers the conversation's latest user message.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid chat request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	conversation := make([]agent.Message, len(req.Messages))
	for i, msg := range req.Messages {
		conversation[i] = agent.Message{
			Role:    agent.Role(msg.Sender),
			Content: msg.Content,
		}
	}

	answer, err := s.chatter.Respond(c.Request().Context(), conversation)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyConversation) || errors.Is(err, chat.ErrInvalidConversation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		s.logger.Error("chat turn failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "chat agent failed to produce a response")
	}

	return c.JSON(http.StatusOK, ChatResponse{Response: answer})
}

// handleInfo reports vector store collection metadata.
func (s *Server) handleInfo(c echo.Context) error {
	if s.info == nil {
		return echo.NewHTTPError(http.StatusNotFound, "collection info unavailable")
	}

	info, err := s.info.Info(c.Request().Context())
	if err != nil {
		s.logger.Error("collection info failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not read collection info")
	}
	return c.JSON(http.StatusOK, info)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
