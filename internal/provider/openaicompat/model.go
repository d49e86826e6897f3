// Package openaicompat adapts an OpenAI-compatible chat completion API
// (Together AI, OpenAI, local gateways) to eino's chat model contract.
package openaicompat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Config configures the adapter. Temperature and MaxTokens are defaults
// that per-call eino options override.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float32
	MaxTokens   *int
	HTTPClient  *http.Client
}

// ChatModel implements model.BaseChatModel over go-openai.
type ChatModel struct {
	client *openai.Client
	cfg    Config
}

var _ model.BaseChatModel = (*ChatModel)(nil)

// NewChatModel validates cfg and builds the client.
func NewChatModel(_ context.Context, cfg Config) (*ChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openaicompat: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("openaicompat: model is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &ChatModel{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

// Generate sends one completion request and returns the first choice.
// A response without choices yields an empty assistant message.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Temperature: m.cfg.Temperature,
		MaxTokens:   m.cfg.MaxTokens,
		Model:       &m.cfg.Model,
	}, opts...)

	req := openai.ChatCompletionRequest{
		Model:    m.cfg.Model,
		Messages: toOpenAIMessages(input),
	}
	if options.Model != nil && *options.Model != "" {
		req.Model = *options.Model
	}
	if options.Temperature != nil {
		req.Temperature = *options.Temperature
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = *options.TopP
	}
	if len(options.Stop) > 0 {
		req.Stop = options.Stop
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "create chat completion")
	}

	out := &schema.Message{Role: schema.Assistant}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.ResponseMeta = &schema.ResponseMeta{
			FinishReason: string(resp.Choices[0].FinishReason),
			Usage: &schema.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}
	}
	return out, nil
}

// Stream is not used for token delivery; it wraps Generate in a single-chunk
// reader so the model still satisfies eino's contract.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func toOpenAIMessages(input []*schema.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}
