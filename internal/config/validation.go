package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for values the client cannot run with.
func Validate(cfg *Config) error {
	if cfg.Store.BaseURL == "" {
		return fmt.Errorf("store.base_url is required")
	}
	u, err := url.Parse(cfg.Store.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid store.base_url %q", cfg.Store.BaseURL)
	}

	if cfg.Chat.DefaultModel == "" {
		return fmt.Errorf("chat.default_model is required")
	}
	if _, _, err := SplitModel(cfg.Chat.DefaultModel); err != nil {
		return err
	}

	if cfg.Chat.MaxTokens <= 0 {
		return fmt.Errorf("chat.max_tokens must be positive, got %d", cfg.Chat.MaxTokens)
	}
	if cfg.Store.TimeoutSeconds <= 0 {
		return fmt.Errorf("store.timeout_seconds must be positive, got %d", cfg.Store.TimeoutSeconds)
	}
	if cfg.Store.DebounceMS < 0 {
		return fmt.Errorf("store.debounce_ms must be non-negative, got %d", cfg.Store.DebounceMS)
	}

	return nil
}

// SplitModel splits a provider:model-id string into its parts.
func SplitModel(model string) (provider string, modelID string, err error) {
	parts := strings.SplitN(model, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model format %q, expected provider:model-id (e.g., openai:gpt-4o-mini)", model)
	}
	return parts[0], parts[1], nil
}
