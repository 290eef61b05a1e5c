package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/shoal-chat/shoal/internal/config"
)

// OpenAIProvider implements the Provider interface for OpenAI-compatible APIs.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider. If baseURL is empty, the
// public OpenAI API is used. A non-empty baseURL allows targeting any
// OpenAI-compatible endpoint, such as a chat-completions proxy.
func NewOpenAIProvider(apiKey string, modelName string, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required") // nolint: staticcheck
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	return &OpenAIProvider{
		client: &client,
		model:  modelName,
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Generate sends a request to OpenAI and returns the response.
func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest, streamCallback StreamCallback) (*GenerateResponse, error) {
	var messages []openai.ChatCompletionMessageParamUnion

	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	if req.Stream && streamCallback != nil {
		return p.generateStreaming(ctx, params, streamCallback)
	}

	return p.generateNonStreaming(ctx, params)
}

// generateNonStreaming sends a non-streaming request.
func (p *OpenAIProvider) generateNonStreaming(ctx context.Context, params openai.ChatCompletionNewParams) (*GenerateResponse, error) {
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("generate error: %w", err)
	}

	if len(completion.Choices) == 0 {
		return &GenerateResponse{FinishReason: "stop"}, nil
	}

	choice := completion.Choices[0]

	finishReason := choice.FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return &GenerateResponse{
		Content:      choice.Message.Content,
		FinishReason: finishReason,
	}, nil
}

// generateStreaming sends a streaming request.
func (p *OpenAIProvider) generateStreaming(ctx context.Context, params openai.ChatCompletionNewParams, streamCallback StreamCallback) (*GenerateResponse, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	acc := openai.ChatCompletionAccumulator{}

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		// Stream text content deltas.
		if len(chunk.Choices) > 0 {
			delta := chunk.Choices[0].Delta
			if delta.Content != "" {
				if err := streamCallback(delta.Content); err != nil {
					return nil, fmt.Errorf("stream callback error: %w", err)
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("stream error: %w", err)
	}

	// Extract accumulated result.
	if len(acc.Choices) == 0 {
		return &GenerateResponse{FinishReason: "stop"}, nil
	}

	choice := acc.Choices[0]

	finishReason := choice.FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return &GenerateResponse{
		Content:      choice.Message.Content,
		FinishReason: finishReason,
	}, nil
}

func init() {
	Register(ProviderMetadata{
		Name:           "openai",
		DisplayName:    "OpenAI",
		Description:    "OpenAI models and compatible APIs",
		DefaultEnvVar:  "OPENAI_API_KEY",
		RequiresAPIKey: true,
		SupportedModels: []ModelMetadata{
			{
				ID:          "gpt-4o",
				DisplayName: "GPT-4o",
				Description: "Most capable GPT-4 model",
			},
			{
				ID:          "gpt-4o-mini",
				DisplayName: "GPT-4o Mini",
				Description: "Fast, affordable model for most tasks",
			},
			{
				ID:          "gpt-4-turbo",
				DisplayName: "GPT-4 Turbo",
				Description: "Previous generation advanced model",
			},
			{
				ID:          "gpt-3.5-turbo",
				DisplayName: "GPT-3.5 Turbo",
				Description: "Legacy fast model",
				Deprecated:  true,
			},
		},
	}, func(ctx context.Context, modelID string, cfg *config.Config) (Provider, error) {
		apiKey, err := cfg.ResolveAPIKey("openai", "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewOpenAIProvider(apiKey, modelID, cfg.Chat.BaseURL)
	})
}
