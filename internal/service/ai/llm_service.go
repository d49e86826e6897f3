package ai

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/dealer-chat/backend/internal/model/chat"
	"github.com/zhouzirui/dealer-chat/backend/internal/model/persona"
)

const (
	// HistoryLimit is how many stored messages are replayed as context.
	HistoryLimit = 10
	// FallbackReply is returned when the provider produces no content.
	FallbackReply = "Sorry, I could not generate a response."
)

// Options tunes each completion request.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Service encapsulates the completion call for a relay turn.
type Service struct {
	chatModel model.BaseChatModel
	prompts   *PromptBuilder
	opts      Options
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService wires the prompt template and chat model into an eino chain.
func NewService(ctx context.Context, chatModel model.BaseChatModel, opts Options) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
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
		return nil, errors.Wrap(err, "compile chat chain")
	}

	return &Service{
		chatModel: chatModel,
		prompts:   NewPromptBuilder(),
		opts:      opts,
		chain:     runnable,
	}, nil
}

// GenerateReply asks the provider for the bot's next turn. history is the
// conversation before userMessage was appended.
func (s *Service) GenerateReply(ctx context.Context, p persona.Persona, history []chat.Message, userMessage string) (string, error) {
	input := s.buildChainInput(p, history, userMessage)

	var modelOpts []model.Option
	if s.opts.Temperature > 0 {
		modelOpts = append(modelOpts, model.WithTemperature(s.opts.Temperature))
	}
	if s.opts.MaxTokens > 0 {
		modelOpts = append(modelOpts, model.WithMaxTokens(s.opts.MaxTokens))
	}

	response, err := s.chain.Invoke(ctx, input, compose.WithChatModelOption(modelOpts...))
	if err != nil {
		return "", errors.Wrap(err, "run completion chain")
	}

	reply := ""
	if response != nil {
		reply = response.Content
	}
	if strings.TrimSpace(reply) == "" {
		log.Warn().Str("component", "ai").Str("customer_domain", p.Domain).Msg("provider returned no content, using fallback reply")
		reply = FallbackReply
	}

	log.Debug().Str("component", "ai").Str("customer_domain", p.Domain).Int("history", len(history)).Int("length", len(reply)).Msg("generated reply")
	return reply, nil
}

func (s *Service) buildChainInput(p persona.Persona, history []chat.Message, userMessage string) map[string]any {
	return map[string]any{
		"system":  s.prompts.BuildSystemPrompt(p),
		"history": buildHistoryMessages(history),
		"query":   userMessage,
	}
}

// buildHistoryMessages maps the last HistoryLimit messages to provider
// roles. Bot turns are replayed with the system role, not assistant.
func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	window := chat.Conversation{Messages: messages}.LastMessages(HistoryLimit)
	if len(window) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(window))
	for _, msg := range window {
		switch msg.Sender {
		case chat.SenderUser:
			history = append(history, schema.UserMessage(msg.Content))
		default:
			history = append(history, schema.SystemMessage(msg.Content))
		}
	}
	return history
}
