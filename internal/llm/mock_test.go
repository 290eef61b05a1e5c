package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_ReplaysResponses(t *testing.T) {
	p := NewMockProvider("first", "second")

	resp, err := p.Generate(context.Background(), GenerateRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	resp, err = p.Generate(context.Background(), GenerateRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)
}

func TestMockProvider_StreamsWordByWord(t *testing.T) {
	p := NewMockProvider("Hello there world")

	var chunks []string
	resp, err := p.Generate(context.Background(), GenerateRequest{Stream: true}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello ", "there ", "world"}, chunks)
	assert.Equal(t, "Hello there world", resp.Content)
}

func TestMockProvider_EchoMode(t *testing.T) {
	p := NewMockProvider()

	resp, err := p.Generate(context.Background(), GenerateRequest{
		Messages: []Message{
			{Role: "user", Content: "ping"},
			{Role: "assistant", Content: "pong"},
			{Role: "user", Content: "hello"},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "You said: hello", resp.Content)
}

func TestMockProvider_CancelledContext(t *testing.T) {
	p := NewMockProvider("never delivered")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, GenerateRequest{Stream: true}, func(chunk string) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenAIProvider_Name(t *testing.T) {
	provider := &OpenAIProvider{model: "gpt-4o"}
	assert.Equal(t, "openai", provider.Name())
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "gpt-4o-mini", "")
	assert.Error(t, err)
}
