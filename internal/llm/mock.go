package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shoal-chat/shoal/internal/config"
)

// MockProvider implements the Provider interface with canned responses.
// It backs offline demos (shoal chat --model mock:echo) and tests that
// need a provider without network access.
type MockProvider struct {
	mu        sync.Mutex
	responses []string
	step      int
}

// NewMockProvider creates a mock provider replaying the given responses in
// order. With no responses configured it echoes the last user message.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{responses: responses}
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return "mock"
}

// Generate returns the next canned response, streaming it word by word
// when a callback is provided.
func (p *MockProvider) Generate(ctx context.Context, req GenerateRequest, streamCallback StreamCallback) (*GenerateResponse, error) {
	content := p.next(req)

	if streamCallback != nil && req.Stream {
		words := strings.Split(content, " ")
		for i, word := range words {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			suffix := " "
			if i == len(words)-1 {
				suffix = ""
			}
			if err := streamCallback(word + suffix); err != nil {
				return nil, err
			}
		}
	}

	return &GenerateResponse{
		Content:      content,
		FinishReason: "stop",
	}, nil
}

func (p *MockProvider) next(req GenerateRequest) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.responses) > 0 {
		content := p.responses[p.step%len(p.responses)]
		p.step++
		return content
	}

	// Echo mode: repeat the last user message.
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return fmt.Sprintf("You said: %s", req.Messages[i].Content)
		}
	}
	return "Hello! How can I help?"
}

func init() {
	// Hidden from ListProviders; selectable as mock:echo for offline use.
	Register(ProviderMetadata{
		Name:           "mock",
		DisplayName:    "Mock",
		Description:    "Canned responses for tests and offline demos",
		RequiresAPIKey: false,
	}, func(ctx context.Context, modelID string, cfg *config.Config) (Provider, error) {
		return NewMockProvider(), nil
	})
}
