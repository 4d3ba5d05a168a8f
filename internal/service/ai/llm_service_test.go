package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zhouzirui/insight-dice/backend/internal/config"
	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/model/throw"
)

// scriptedModel answers based on which request shape the system prompt belongs to.
type scriptedModel struct {
	replies map[string]string
	err     error
	last    []*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.last = input
	if m.err != nil {
		return nil, m.err
	}
	system := input[0].Content
	switch {
	case strings.Contains(system, "JSON object"):
		return schema.AssistantMessage(m.replies[KindSuggest], nil), nil
	case strings.Contains(system, "JSON array"):
		return schema.AssistantMessage(m.replies[KindReflection], nil), nil
	default:
		return schema.AssistantMessage(m.replies[KindInterpret], nil), nil
	}
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) BindTools([]*schema.ToolInfo) error { return nil }

func testSpread() []throw.Placement {
	symbols := catalog.SeedSymbols()
	positions := catalog.SeedPositions()
	out := make([]throw.Placement, len(positions))
	for i, p := range positions {
		out[i] = throw.Placement{Position: p, Symbol: symbols[i]}
	}
	return out
}

func newTestService(t *testing.T, m *scriptedModel) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), m, zaptest.NewLogger(t))
	require.NoError(t, err)
	return svc
}

func TestServiceInterpret(t *testing.T) {
	m := &scriptedModel{replies: map[string]string{KindInterpret: "  A reading.  "}}
	svc := newTestService(t, m)

	got, err := svc.Interpret(context.Background(), "Should I change jobs?", testSpread())
	require.NoError(t, err)
	assert.Equal(t, "A reading.", got)

	require.Len(t, m.last, 2)
	assert.Equal(t, schema.System, m.last[0].Role)
	assert.Equal(t, schema.User, m.last[1].Role)
	assert.Contains(t, m.last[1].Content, "Should I change jobs?")
	assert.Contains(t, m.last[1].Content, "Magnifier")
	assert.Contains(t, m.last[1].Content, "Root")
}

func TestServiceSuggestPaths(t *testing.T) {
	m := &scriptedModel{replies: map[string]string{
		KindSuggest: "```json\n{\"change\": \"Leave.\", \"stay\": \"Stay.\"}\n```",
	}}
	svc := newTestService(t, m)

	got, err := svc.SuggestPaths(context.Background(), "s", testSpread(), "reading", catalog.SeedPaths())
	require.NoError(t, err)
	assert.Equal(t, "Leave.", got[catalog.PathChange])
	assert.Equal(t, "Stay.", got[catalog.PathStay])
	assert.Contains(t, m.last[1].Content, `"patience"`)
}

func TestServiceReflectionPrompts(t *testing.T) {
	m := &scriptedModel{replies: map[string]string{KindReflection: "1. First?\n2. Second?"}}
	svc := newTestService(t, m)

	path, _ := catalog.NewSeededStore().FindPath(catalog.PathChange)
	got, err := svc.ReflectionPrompts(context.Background(), "s", path, testSpread())
	require.NoError(t, err)
	assert.Equal(t, []string{"First?", "Second?"}, got)
}

func TestServiceErrors(t *testing.T) {
	svc := newTestService(t, &scriptedModel{err: errors.New("quota")})
	_, err := svc.Interpret(context.Background(), "s", testSpread())
	assert.Error(t, err)

	empty := newTestService(t, &scriptedModel{replies: map[string]string{}})
	_, err = empty.Interpret(context.Background(), "s", testSpread())
	assert.Error(t, err)

	bad := newTestService(t, &scriptedModel{replies: map[string]string{KindSuggest: "sorry"}})
	_, err = bad.SuggestPaths(context.Background(), "s", testSpread(), "r", catalog.SeedPaths())
	assert.Error(t, err)
}

func TestUnavailable(t *testing.T) {
	var gen Unavailable
	_, err := gen.Interpret(context.Background(), "s", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = gen.SuggestPaths(context.Background(), "s", nil, "", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = gen.ReflectionPrompts(context.Background(), "s", catalog.Path{}, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestToOpenAIMessagesSkipsNil(t *testing.T) {
	msgs := toOpenAIMessages([]*schema.Message{
		schema.SystemMessage("sys"),
		nil,
		schema.UserMessage("hi"),
		schema.AssistantMessage("hello", nil),
	})
	assert.Len(t, msgs, 3)
}

func TestNewOpenAIChatModelRequiresKey(t *testing.T) {
	_, err := NewOpenAIChatModel(testAIConfig(""))
	assert.Error(t, err)

	m, err := NewOpenAIChatModel(testAIConfig("sk-test"))
	require.NoError(t, err)
	assert.NoError(t, m.BindTools(nil))
	assert.Error(t, m.BindTools([]*schema.ToolInfo{{Name: "x"}}))
}

func TestNewChatModelDispatchesOnProvider(t *testing.T) {
	m, err := NewChatModel(context.Background(), testAIConfig(""))
	assert.Error(t, err)
	assert.Nil(t, m)

	m, err = NewChatModel(context.Background(), testAIConfig("sk-test"))
	require.NoError(t, err)
	assert.IsType(t, &OpenAIChatModel{}, m)
}

func testAIConfig(key string) config.AIConfig {
	return config.AIConfig{
		Provider:     config.ProviderOpenAI,
		OpenAIAPIKey: key,
		OpenAIModel:  "gpt-3.5-turbo",
		Temperature:  0.8,
		MaxTokens:    500,
	}
}
