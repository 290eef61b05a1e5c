// Package llm provides model provider abstractions for chat streaming and
// title generation.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shoal-chat/shoal/internal/config"
)

// Message represents a chat message.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// GenerateRequest contains the parameters for a completion.
type GenerateRequest struct {
	Messages     []Message
	SystemPrompt string // System instructions, prepended when non-empty
	MaxTokens    int    // Response length cap; 0 means provider default
	Stream       bool   // Whether to stream the response
}

// GenerateResponse contains the model's response.
type GenerateResponse struct {
	Content      string // Text content of the response
	FinishReason string // Why generation stopped: "stop", "length", etc.
}

// StreamCallback is called for each chunk when streaming.
type StreamCallback func(chunk string) error

// Provider defines the interface that model providers must implement.
type Provider interface {
	// Name returns the provider name (e.g., "openai", "google").
	Name() string

	// Generate sends a request to the model and returns the response.
	// If streaming is enabled, it calls the callback for each chunk.
	// Cancellation is cooperative via ctx; providers must observe it
	// between token arrivals.
	Generate(ctx context.Context, req GenerateRequest, streamCallback StreamCallback) (*GenerateResponse, error)
}

// ProviderMetadata contains metadata about a model provider.
type ProviderMetadata struct {
	Name            string          // Provider identifier (e.g., "openai")
	DisplayName     string          // Human-readable name
	Description     string          // Short description
	DefaultEnvVar   string          // Default API key env var (e.g., "OPENAI_API_KEY")
	SupportedModels []ModelMetadata // Models supported by this provider
	RequiresAPIKey  bool            // Whether API key is required
}

// ModelMetadata contains metadata about a specific model.
type ModelMetadata struct {
	ID          string // Model identifier (e.g., "gpt-4o-mini")
	DisplayName string // Human-readable name
	Description string // Model description
	Deprecated  bool   // Whether model is deprecated
}

// ProviderFactory creates a Provider instance.
type ProviderFactory func(ctx context.Context, modelID string, cfg *config.Config) (Provider, error)

// Registry manages available model providers.
type Registry struct {
	providers map[string]*registeredProvider
	mu        sync.RWMutex
}

type registeredProvider struct {
	metadata ProviderMetadata
	factory  ProviderFactory
}

var globalRegistry = NewRegistry()

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*registeredProvider),
	}
}

// Register registers a provider with the global registry.
func Register(metadata ProviderMetadata, factory ProviderFactory) {
	globalRegistry.RegisterProvider(metadata, factory)
}

// RegisterProvider registers a provider.
func (r *Registry) RegisterProvider(metadata ProviderMetadata, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[metadata.Name] = &registeredProvider{
		metadata: metadata,
		factory:  factory,
	}
}

// Get returns the global registry.
func Get() *Registry {
	return globalRegistry
}

// GetProvider creates a provider instance by name.
func (r *Registry) GetProvider(ctx context.Context, providerName string, modelID string, cfg *config.Config) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[providerName]
	if !exists {
		return nil, fmt.Errorf("unsupported provider: %s (run 'shoal status' to see available providers)", providerName)
	}

	return provider.factory(ctx, modelID, cfg)
}

// ListProviders returns all registered provider metadata.
func (r *Registry) ListProviders() []ProviderMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ProviderMetadata, 0, len(r.providers))
	for _, p := range r.providers {
		if p.metadata.Name == "mock" {
			continue
		}
		result = append(result, p.metadata)
	}

	// Sort by name for consistent output.
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// ValidateModel validates a model ID for a specific provider.
func (r *Registry) ValidateModel(providerName string, modelID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[providerName]
	if !exists {
		return fmt.Errorf("unknown provider: %s", providerName)
	}

	// Empty model list means any model is accepted (e.g., OpenAI-compatible endpoints).
	if len(provider.metadata.SupportedModels) == 0 {
		return nil
	}

	for _, model := range provider.metadata.SupportedModels {
		if model.ID == modelID {
			return nil
		}
	}

	// Provide helpful error with model suggestions.
	var modelIDs []string
	for _, model := range provider.metadata.SupportedModels {
		if !model.Deprecated {
			modelIDs = append(modelIDs, model.ID)
		}
	}
	return fmt.Errorf("unsupported model %q for provider %s. Supported models: %s",
		modelID, providerName, strings.Join(modelIDs, ", "))
}
