package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/insight-dice/backend/internal/config"
	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/model/throw"
)

// ErrUnavailable is returned by Unavailable for every request.
var ErrUnavailable = errors.New("ai generation is not configured")

// Service generates throw narratives through eino chains.
type Service struct {
	prompts *PromptManager
	chains  map[string]compose.Runnable[map[string]any, *schema.Message]
	logger  *zap.Logger
}

// NewChatModel builds the chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		m, err := NewOpenAIChatModel(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return cfg.NewChatModel(ctx)
	}
}

// NewService compiles one chain per request shape on top of chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, logger *zap.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := &Service{
		prompts: NewPromptManager(),
		chains:  make(map[string]compose.Runnable[map[string]any, *schema.Message], 3),
		logger:  logger.Named("ai"),
	}

	for _, kind := range []string{KindInterpret, KindSuggest, KindReflection} {
		promptTemplate := prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{system}"),
			schema.UserMessage("{query}"),
		)

		chain := compose.NewChain[map[string]any, *schema.Message]()
		chain.AppendChatTemplate(promptTemplate)
		chain.AppendChatModel(chatModel)

		runnable, err := chain.Compile(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s chain: %w", kind, err)
		}
		svc.chains[kind] = runnable
	}

	return svc, nil
}

// Interpret returns a narrative reading of the spread.
func (s *Service) Interpret(ctx context.Context, situation string, spread []throw.Placement) (string, error) {
	return s.run(ctx, KindInterpret, s.prompts.InterpretQuery(situation, spread))
}

// SuggestPaths returns one suggestion per recognised path key.
func (s *Service) SuggestPaths(ctx context.Context, situation string, spread []throw.Placement, interpretation string, paths []catalog.Path) (map[catalog.PathKey]string, error) {
	content, err := s.run(ctx, KindSuggest, s.prompts.SuggestQuery(situation, spread, interpretation, paths))
	if err != nil {
		return nil, err
	}
	suggestions, err := parseSuggestions(content, paths)
	if err != nil {
		s.logger.Warn("suggestion output parse failed", zap.Error(err))
		return nil, err
	}
	return suggestions, nil
}

// ReflectionPrompts returns reflection questions for the chosen path.
func (s *Service) ReflectionPrompts(ctx context.Context, situation string, path catalog.Path, spread []throw.Placement) ([]string, error) {
	content, err := s.run(ctx, KindReflection, s.prompts.ReflectionQuery(situation, path, spread))
	if err != nil {
		return nil, err
	}
	prompts, err := parsePrompts(content)
	if err != nil {
		s.logger.Warn("reflection output parse failed", zap.Error(err))
		return nil, err
	}
	return prompts, nil
}

func (s *Service) run(ctx context.Context, kind, query string) (string, error) {
	system, err := s.prompts.SystemPrompt(kind)
	if err != nil {
		return "", err
	}

	msg, err := s.chains[kind].Invoke(ctx, map[string]any{
		"system": system,
		"query":  query,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run %s chain: %w", kind, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%s chain returned empty output", kind)
	}

	s.logger.Debug("generated", zap.String("kind", kind), zap.Int("length", len(msg.Content)))
	return strings.TrimSpace(msg.Content), nil
}

// Unavailable is the generator used when no model is configured. Every call fails.
type Unavailable struct{}

func (Unavailable) Interpret(context.Context, string, []throw.Placement) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) SuggestPaths(context.Context, string, []throw.Placement, string, []catalog.Path) (map[catalog.PathKey]string, error) {
	return nil, ErrUnavailable
}

func (Unavailable) ReflectionPrompts(context.Context, string, catalog.Path, []throw.Placement) ([]string, error) {
	return nil, ErrUnavailable
}
