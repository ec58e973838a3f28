package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docuchat/internal/vectorstore"
)

// scriptedClient returns canned responses in order and records every
// request it sees.
type scriptedClient struct {
	responses []openai.ChatCompletionResponse
	errs      []error
	requests  []openai.ChatCompletionRequest
}

func (c *scriptedClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.requests = append(c.requests, req)
	i := len(c.requests) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return openai.ChatCompletionResponse{}, c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return openai.ChatCompletionResponse{}, errors.New("no scripted response")
}

// fakeSearcher records queries and returns canned results.
type fakeSearcher struct {
	results []vectorstore.SearchResult
	err     error
	queries []string
	lastK   int
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int) ([]vectorstore.SearchResult, error) {
	f.queries = append(f.queries, query)
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			},
		}},
	}
}

func toolCallResponse(id, query string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   id,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      searchToolName,
						Arguments: `{"query": "` + query + `"}`,
					},
				}},
			},
		}},
	}
}

func newTestAgent(t *testing.T, client CompletionClient, searcher Searcher, cfg Config) *Service {
	t.Helper()
	cfg.RetryDelay = time.Millisecond
	svc, err := NewService(client, searcher, cfg, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestAnswer_DirectResponse(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		textResponse("Hello there."),
	}}
	searcher := &fakeSearcher{}
	svc := newTestAgent(t, client, searcher, Config{})

	answer, err := svc.Answer(context.Background(), []Message{
		{Role: RoleUser, Content: "Hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", answer)
	assert.Empty(t, searcher.queries)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, searchToolName, req.Tools[0].Function.Name)
}

func TestAnswer_RetrievalThenAnswer(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolCallResponse("call_1", "refund policy"),
		textResponse("Refunds are issued within 30 days."),
	}}
	searcher := &fakeSearcher{results: []vectorstore.SearchResult{
		{Content: "Refunds within 30 days of purchase.", Metadata: map[string]interface{}{
			vectorstore.MetaSource: "policy.pdf",
		}},
	}}
	svc := newTestAgent(t, client, searcher, Config{RetrievalTopK: 4})

	answer, err := svc.Answer(context.Background(), []Message{
		{Role: RoleUser, Content: "What is the refund policy?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Refunds are issued within 30 days.", answer)

	assert.Equal(t, []string{"refund policy"}, searcher.queries)
	assert.Equal(t, 4, searcher.lastK)

	// Second request carries the assistant tool call and the tool result.
	require.Len(t, client.requests, 2)
	msgs := client.requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Contains(t, last.Content, "policy.pdf")
	assert.Contains(t, last.Content, "Refunds within 30 days")
}

func TestAnswer_NoRelevantDocuments(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolCallResponse("call_1", "quantum mechanics"),
		textResponse("The documents do not cover that topic."),
	}}
	searcher := &fakeSearcher{}
	svc := newTestAgent(t, client, searcher, Config{})

	answer, err := svc.Answer(context.Background(), []Message{
		{Role: RoleUser, Content: "Explain quantum mechanics"},
	})
	require.NoError(t, err)
	assert.Equal(t, "The documents do not cover that topic.", answer)

	msgs := client.requests[1].Messages
	assert.Equal(t, noResultsMessage, msgs[len(msgs)-1].Content)
}

func TestAnswer_ToolLoopBounded(t *testing.T) {
	responses := make([]openai.ChatCompletionResponse, 5)
	for i := range responses {
		responses[i] = toolCallResponse("call", "again")
	}
	client := &scriptedClient{responses: responses}
	svc := newTestAgent(t, client, &fakeSearcher{}, Config{MaxToolIterations: 5})

	_, err := svc.Answer(context.Background(), []Message{
		{Role: RoleUser, Content: "loop"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolLoopExceeded)
	assert.Len(t, client.requests, 5)
}

func TestAnswer_UnknownToolRecovers(t *testing.T) {
	resp := toolCallResponse("call_1", "x")
	resp.Choices[0].Message.ToolCalls[0].Function.Name = "delete_everything"

	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		resp,
		textResponse("Sorry, I used the wrong tool."),
	}}
	searcher := &fakeSearcher{}
	svc := newTestAgent(t, client, searcher, Config{})

	answer, err := svc.Answer(context.Background(), []Message{
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I used the wrong tool.", answer)
	assert.Empty(t, searcher.queries)

	msgs := client.requests[1].Messages
	assert.Contains(t, msgs[len(msgs)-1].Content, "Unknown tool")
}

func TestAnswer_HistoryRoleConversion(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		textResponse("Following up."),
	}}
	svc := newTestAgent(t, client, &fakeSearcher{}, Config{})

	_, err := svc.Answer(context.Background(), []Message{
		{Role: RoleUser, Content: "first question"},
		{Role: RoleAssistant, Content: "first answer"},
		{Role: RoleUser, Content: "follow-up"},
	})
	require.NoError(t, err)

	msgs := client.requests[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, "first answer", msgs[2].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[3].Role)
}

func TestAnswer_ModelFailure(t *testing.T) {
	client := &scriptedClient{errs: []error{
		&openai.APIError{HTTPStatusCode: 401, Message: "bad key"},
	}}
	svc := newTestAgent(t, client, &fakeSearcher{}, Config{})

	_, err := svc.Answer(context.Background(), []Message{
		{Role: RoleUser, Content: "hi"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelFailure)
	// Auth failures are not retried.
	assert.Len(t, client.requests, 1)
}

func TestAnswer_RetriesRateLimit(t *testing.T) {
	client := &scriptedClient{
		errs: []error{
			&openai.APIError{HTTPStatusCode: 429, Message: "rate limited"},
			nil,
		},
		responses: []openai.ChatCompletionResponse{
			{},
			textResponse("ok"),
		},
	}
	svc := newTestAgent(t, client, &fakeSearcher{}, Config{MaxAttempts: 3})

	answer, err := svc.Answer(context.Background(), []Message{
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Len(t, client.requests, 2)
}

func TestAnswer_SearchFailure(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolCallResponse("call_1", "x"),
	}}
	searcher := &fakeSearcher{err: errors.New("store down")}
	svc := newTestAgent(t, client, searcher, Config{})

	_, err := svc.Answer(context.Background(), []Message{
		{Role: RoleUser, Content: "hi"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(nil, &fakeSearcher{}, Config{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewService(&scriptedClient{}, nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, 5, cfg.MaxToolIterations)
	assert.Equal(t, 4, cfg.RetrievalTopK)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.NoError(t, cfg.Validate())
}
