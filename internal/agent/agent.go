// Package agent implements the retrieval-augmented chat agent. The
// agent answers questions over ingested documents by running a bounded
// reason-act loop: the model may call the document search tool any
// number of times up to the iteration cap, then must produce a final
// text answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("docuchat.agent")

var (
	// ErrModelFailure indicates the chat model could not produce a
	// completion after retries.
	ErrModelFailure = errors.New("chat model failure")

	// ErrToolLoopExceeded indicates the model kept requesting tool
	// calls past the iteration cap without producing an answer.
	ErrToolLoopExceeded = errors.New("tool iteration limit exceeded")

	// ErrInvalidConfig indicates invalid agent configuration.
	ErrInvalidConfig = errors.New("invalid agent configuration")
)

const systemPrompt = `You are a helpful assistant that answers questions about the user's uploaded documents.

Use the search_documents tool to look up relevant passages before answering. Base your answers on the retrieved content. If the documents contain no relevant information, say so plainly instead of guessing.`

// CompletionClient is the slice of the OpenAI client the agent uses.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds agent configuration.
type Config struct {
	// Model is the chat completion model name.
	Model string

	// MaxToolIterations bounds the reason-act loop. Default: 5
	MaxToolIterations int

	// RetrievalTopK is how many chunks each search returns. Default: 4
	RetrievalTopK int

	// MaxAttempts is the retry budget per model call. Default: 3
	MaxAttempts int

	// RetryDelay is the initial retry backoff. Default: 500ms
	RetryDelay time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = openai.GPT4o
	}
	if c.MaxToolIterations == 0 {
		c.MaxToolIterations = 5
	}
	if c.RetrievalTopK == 0 {
		c.RetrievalTopK = 4
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.MaxToolIterations < 1 {
		return fmt.Errorf("%w: max tool iterations must be positive", ErrInvalidConfig)
	}
	if c.RetrievalTopK < 1 {
		return fmt.Errorf("%w: retrieval top-k must be positive", ErrInvalidConfig)
	}
	return nil
}

// Service runs the agent loop.
type Service struct {
	client CompletionClient
	tool   *searchTool
	config Config
	logger *zap.Logger
}

// NewService creates the agent.
func NewService(client CompletionClient, searcher Searcher, config Config, logger *zap.Logger) (*Service, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: completion client is required", ErrInvalidConfig)
	}
	if searcher == nil {
		return nil, fmt.Errorf("%w: searcher is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		tool:   &searchTool{searcher: searcher, topK: config.RetrievalTopK},
		config: config,
		logger: logger,
	}, nil
}

// Answer runs one agent turn over the conversation and returns the
// model's final text answer. The conversation must end with a user
// message; the HTTP layer validates that before calling.
func (s *Service) Answer(ctx context.Context, conversation []Message) (string, error) {
	ctx, span := tracer.Start(ctx, "agent.Answer")
	defer span.End()
	span.SetAttributes(attribute.Int("conversation_length", len(conversation)))

	messages := make([]openai.ChatCompletionMessage, 0, len(conversation)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range conversation {
		role := openai.ChatMessageRoleUser
		if msg.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	tools := []openai.Tool{s.tool.definition()}

	for iteration := 0; iteration < s.config.MaxToolIterations; iteration++ {
		resp, err := s.complete(ctx, openai.ChatCompletionRequest{
			Model:    s.config.Model,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", fmt.Errorf("%w: %v", ErrModelFailure, err)
		}
		if len(resp.Choices) == 0 {
			span.SetStatus(codes.Error, "no choices")
			return "", fmt.Errorf("%w: completion returned no choices", ErrModelFailure)
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			span.SetAttributes(attribute.Int("tool_iterations", iteration))
			span.SetStatus(codes.Ok, "success")
			return msg.Content, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			result, err := s.runToolCall(ctx, call)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return "", err
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	span.SetStatus(codes.Error, "tool loop exceeded")
	return "", fmt.Errorf("%w: no answer after %d iterations", ErrToolLoopExceeded, s.config.MaxToolIterations)
}

func (s *Service) runToolCall(ctx context.Context, call openai.ToolCall) (string, error) {
	if call.Function.Name != searchToolName {
		// Let the model recover from hallucinating a tool name.
		s.logger.Warn("model called unknown tool", zap.String("tool", call.Function.Name))
		return fmt.Sprintf("Unknown tool %q. Available tools: %s.", call.Function.Name, searchToolName), nil
	}

	s.logger.Debug("running document search",
		zap.String("tool_call_id", call.ID),
	)
	result, err := s.tool.run(ctx, call.Function.Arguments)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", searchToolName, err)
	}
	return result, nil
}

// complete calls the model, retrying transient API failures with
// exponential backoff.
func (s *Service) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var resp openai.ChatCompletionResponse

	err := retry.Do(
		func() error {
			var err error
			resp, err = s.client.CreateChatCompletion(ctx, req)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.config.MaxAttempts)),
		retry.Delay(s.config.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransientModelError),
	)
	return resp, err
}

// isTransientModelError reports whether a model call failure is worth
// retrying. Rate limits and server errors are transient; bad requests
// and auth failures are not.
func isTransientModelError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return false
}
