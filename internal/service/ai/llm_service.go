package ai

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/bellhop-widget/internal/config"
	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
)

// Responder produces the assistant reply for one user message as a stream of
// text chunks.
type Responder interface {
	Stream(ctx context.Context, history []chat.Message, userMessage string) (*schema.StreamReader[*schema.Message], error)
}

// Service encapsulates AI-powered chat functionality
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

var _ Responder = (*Service)(nil)

// NewService creates a new AI service instance
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chat model")
	}
	return NewServiceWithModel(ctx, cfg, chatModel)
}

// NewServiceWithModel builds the prompt chain around an existing model.
func NewServiceWithModel(ctx context.Context, cfg config.AIConfig, chatModel model.ChatModel) (*Service, error) {
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
		return nil, errors.Wrap(err, "failed to compile chat chain")
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// Stream streams AI response chunks via the configured chain.
func (s *Service) Stream(ctx context.Context, history []chat.Message, userMessage string) (*schema.StreamReader[*schema.Message], error) {
	input := map[string]any{
		"system":  s.cfg.SystemPrompt,
		"history": buildHistoryMessages(history),
		"query":   userMessage,
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stream AI chain output")
	}

	log.Debug().Int("history", len(history)).Msg("ai stream started")
	return stream, nil
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	const historyLimit = 10

	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
