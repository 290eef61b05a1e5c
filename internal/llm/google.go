package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/shoal-chat/shoal/internal/config"
)

// GoogleProvider implements the Provider interface for Google AI (Gemini).
type GoogleProvider struct {
	client *genai.Client
	model  string
}

// NewGoogleProvider creates a new Google AI provider.
func NewGoogleProvider(ctx context.Context, apiKey string, modelName string) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Google AI API key is required") // nolint: staticcheck
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google AI client: %w", err)
	}

	return &GoogleProvider{
		client: client,
		model:  modelName,
	}, nil
}

// Name returns the provider name.
func (p *GoogleProvider) Name() string {
	return "google"
}

// Generate sends a request to Google AI and returns the response.
func (p *GoogleProvider) Generate(ctx context.Context, req GenerateRequest, streamCallback StreamCallback) (*GenerateResponse, error) {
	model := p.client.GenerativeModel(p.model)

	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens)) //nolint:gosec // G115: token caps are small
	}

	// Build chat session from message history. Gemini expects alternating
	// user/model turns; the last message is the current one, everything
	// before it is history.
	chat := model.StartChat()

	var history []*genai.Content
	var currentParts []genai.Part

	for i, msg := range req.Messages {
		role := "user"
		if msg.Role == "assistant" || msg.Role == "model" {
			role = "model"
		}

		parts := []genai.Part{genai.Text(msg.Content)}

		if i == len(req.Messages)-1 {
			currentParts = parts
		} else {
			history = append(history, &genai.Content{Role: role, Parts: parts})
		}
	}

	chat.History = history

	if req.Stream && streamCallback != nil {
		iter := chat.SendMessageStream(ctx, currentParts...)
		var fullResponse string

		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("stream error: %w", err)
			}

			for _, chunk := range textParts(resp) {
				fullResponse += chunk
				if err := streamCallback(chunk); err != nil {
					return nil, fmt.Errorf("stream callback error: %w", err)
				}
			}
		}

		return &GenerateResponse{
			Content:      fullResponse,
			FinishReason: "stop",
		}, nil
	}

	resp, err := chat.SendMessage(ctx, currentParts...)
	if err != nil {
		return nil, fmt.Errorf("generate error: %w", err)
	}

	var content string
	for _, chunk := range textParts(resp) {
		content += chunk
	}

	return &GenerateResponse{
		Content:      content,
		FinishReason: "stop",
	}, nil
}

// textParts extracts the text parts of the first candidate.
func textParts(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil
	}

	var out []string
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out = append(out, string(txt))
		}
	}
	return out
}

func init() {
	Register(ProviderMetadata{
		Name:           "google",
		DisplayName:    "Google AI",
		Description:    "Google Gemini models",
		DefaultEnvVar:  "GOOGLE_API_KEY",
		RequiresAPIKey: true,
		SupportedModels: []ModelMetadata{
			{
				ID:          "gemini-2.0-flash",
				DisplayName: "Gemini 2.0 Flash",
				Description: "Fast multimodal model",
			},
			{
				ID:          "gemini-1.5-pro",
				DisplayName: "Gemini 1.5 Pro",
				Description: "Large context window model",
			},
			{
				ID:          "gemini-1.5-flash",
				DisplayName: "Gemini 1.5 Flash",
				Description: "Fast and versatile model",
			},
		},
	}, func(ctx context.Context, modelID string, cfg *config.Config) (Provider, error) {
		apiKey, err := cfg.ResolveAPIKey("google", "GOOGLE_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewGoogleProvider(ctx, apiKey, modelID)
	})
}
