package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/zhouzirui/insight-dice/backend/internal/config"
)

// OpenAIChatModel adapts the OpenAI chat completions API to the eino ChatModel interface.
type OpenAIChatModel struct {
	client      openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIChatModel creates a model from the OPENAI_* settings.
func NewOpenAIChatModel(cfg config.AIConfig) (*OpenAIChatModel, error) {
	if cfg.OpenAIAPIKey == "" || cfg.OpenAIModel == "" {
		return nil, errors.New("OpenAI 凭证或模型配置缺失，需要 OPENAI_API_KEY + OPENAI_MODEL")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}

	return &OpenAIChatModel{
		client:      openai.NewClient(opts...),
		model:       cfg.OpenAIModel,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	temperature := m.temperature
	maxTokens := m.maxTokens
	name := m.model
	options := model.GetCommonOptions(&model.Options{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Model:       &name,
	}, opts...)

	params := openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(input),
		Model:    openai.ChatModel(*options.Model),
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(float64(*options.Temperature))
	}
	if options.MaxTokens != nil && *options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(*options.MaxTokens))
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("openai chat completion returned no choices")
	}
	return schema.AssistantMessage(completion.Choices[0].Message.Content, nil), nil
}

// Stream emits the full completion as a single chunk.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is not supported; throw generation never calls tools.
func (m *OpenAIChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) > 0 {
		return errors.New("openai model: tools are not supported")
	}
	return nil
}

func toOpenAIMessages(input []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			out = append(out, openai.SystemMessage(msg.Content))
		case schema.Assistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
