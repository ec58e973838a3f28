// Package chat validates incoming conversations and runs one agent
// turn per request. The service is stateless; clients carry the full
// conversation history on every call.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docuchat/internal/agent"
)

var (
	// ErrEmptyConversation indicates the request carried no messages.
	ErrEmptyConversation = errors.New("conversation is empty")

	// ErrInvalidConversation indicates a malformed conversation, such
	// as an unknown role or a conversation not ending with the user.
	ErrInvalidConversation = errors.New("invalid conversation")
)

// Answerer produces an answer for a conversation.
type Answerer interface {
	Answer(ctx context.Context, conversation []agent.Message) (string, error)
}

// Service validates conversations and delegates to the agent.
type Service struct {
	agent  Answerer
	logger *zap.Logger
}

// NewService creates the chat service.
func NewService(agent Answerer, logger *zap.Logger) (*Service, error) {
	if agent == nil {
		return nil, errors.New("agent is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{agent: agent, logger: logger}, nil
}

// Respond validates the conversation and returns the agent's answer to
// its latest user message.
func (s *Service) Respond(ctx context.Context, conversation []agent.Message) (string, error) {
	if err := validate(conversation); err != nil {
		return "", err
	}

	s.logger.Debug("running chat turn", zap.Int("messages", len(conversation)))

	answer, err := s.agent.Answer(ctx, conversation)
	if err != nil {
		return "", fmt.Errorf("answering: %w", err)
	}
	return answer, nil
}

func validate(conversation []agent.Message) error {
	if len(conversation) == 0 {
		return ErrEmptyConversation
	}
	for i, msg := range conversation {
		if !msg.Role.Valid() {
			return fmt.Errorf("%w: message %d has unknown sender %q", ErrInvalidConversation, i, msg.Role)
		}
		if strings.TrimSpace(msg.Content) == "" {
			return fmt.Errorf("%w: message %d is empty", ErrInvalidConversation, i)
		}
	}
	if last := conversation[len(conversation)-1]; last.Role != agent.RoleUser {
		return fmt.Errorf("%w: conversation must end with a user message", ErrInvalidConversation)
	}
	return nil
}
