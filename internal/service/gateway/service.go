// Package gateway sends conversation turns to the hosted chat model.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
)

// Gateway is the remote chat endpoint as seen by the tutor engine.
type Gateway interface {
	Send(ctx context.Context, history []chat.Turn, message string) (string, error)
}

// Service runs an eino chain of system instruction, prior turns and the new
// message over a chat model.
type Service struct {
	system string
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *zap.Logger
}

var _ Gateway = (*Service)(nil)

// NewService compiles the chat chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, system string, logger *zap.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		system: system,
		chain:  runnable,
		logger: logger.Named("gateway"),
	}, nil
}

// Send replays history and sends message as the new user turn. Failures are
// always returned as *Error.
func (s *Service) Send(ctx context.Context, history []chat.Turn, message string) (string, error) {
	input := map[string]any{
		"system":  s.system,
		"history": buildHistoryMessages(history),
		"query":   message,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr == context.DeadlineExceeded {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		classified := Classify(err)
		s.logger.Warn("chat model call failed",
			zap.Int("history", len(history)),
			zap.Bool("retryable", classified.Retryable()),
			zap.Error(classified))
		return "", classified
	}

	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", &Error{Kind: ErrInvalidResponse, Err: fmt.Errorf("empty reply")}
	}

	s.logger.Debug("generated reply", zap.Int("history", len(history)), zap.Int("length", len(response.Content)))
	return response.Content, nil
}

func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleModel:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
