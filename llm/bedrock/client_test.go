package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBedrockRuntime struct {
	converseFunc func(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	lastInput    *bedrockruntime.ConverseInput
}

func (m *mockBedrockRuntime) Converse(ctx context.Context, in *bedrockruntime.ConverseInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.lastInput = in
	return m.converseFunc(ctx, in, opts...)
}

func textOutput(texts ...string) *bedrockruntime.ConverseOutput {
	var blocks []types.ContentBlock
	for _, t := range texts {
		blocks = append(blocks, &types.ContentBlockMemberText{Value: t})
	}
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: blocks,
			},
		},
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(&mockBedrockRuntime{}, Options{})
	assert.Equal(t, defaultModelID, c.opts.ModelID)
	assert.Equal(t, int32(defaultMaxTokens), c.opts.MaxTokens)
	assert.Equal(t, float32(defaultTemperature), c.opts.Temperature)
	assert.Equal(t, float32(defaultTopP), c.opts.TopP)
}

func TestComplete(t *testing.T) {
	mock := &mockBedrockRuntime{
		converseFunc: func(_ context.Context, _ *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
			return textOutput(`{"ranked_ids":`, `["mealdb:1"]}`), nil
		},
	}
	c := NewClient(mock, Options{ModelID: "test-model"})

	got, err := c.Complete(context.Background(), "You rank recipes.", "rank these")
	require.NoError(t, err)
	assert.Equal(t, `{"ranked_ids":["mealdb:1"]}`, got)

	require.NotNil(t, mock.lastInput)
	assert.Equal(t, "test-model", *mock.lastInput.ModelId)
	require.Len(t, mock.lastInput.Messages, 1)
	assert.Equal(t, types.ConversationRoleUser, mock.lastInput.Messages[0].Role)
	require.Len(t, mock.lastInput.System, 1)
	sys, ok := mock.lastInput.System[0].(*types.SystemContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "You rank recipes.", sys.Value)
}

func TestCompleteNoSystemPrompt(t *testing.T) {
	mock := &mockBedrockRuntime{
		converseFunc: func(_ context.Context, _ *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
			return textOutput("ok"), nil
		},
	}
	c := NewClient(mock, Options{})

	_, err := c.Complete(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Empty(t, mock.lastInput.System)
}

func TestCompleteConverseError(t *testing.T) {
	mock := &mockBedrockRuntime{
		converseFunc: func(_ context.Context, _ *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	c := NewClient(mock, Options{})

	_, err := c.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestCompleteNoTextContent(t *testing.T) {
	mock := &mockBedrockRuntime{
		converseFunc: func(_ context.Context, _ *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
			return textOutput(), nil
		},
	}
	c := NewClient(mock, Options{})

	_, err := c.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
}
