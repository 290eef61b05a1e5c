// Package config provides configuration loading and management.
package config

import "time"

// Config is the root configuration for shoal, stored at
// ~/.shoal/config.yaml.
type Config struct {
	Store   StoreConfig       `yaml:"store"`
	Chat    ChatConfig        `yaml:"chat"`
	APIKeys map[string]string `yaml:"api_keys,omitempty"`
	Log     LogConfig         `yaml:"log"`
}

// StoreConfig configures the conversation store client.
type StoreConfig struct {
	// BaseURL is the conversation store API root, e.g. http://localhost:8000/api.
	BaseURL string `yaml:"base_url"`
	// TimeoutSeconds bounds each store request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// DebounceMS is the quiet window before coalesced updates are flushed.
	DebounceMS int `yaml:"debounce_ms"`
}

// ChatConfig configures model selection and generation limits.
type ChatConfig struct {
	// DefaultModel selects the model as provider:model-id, e.g. openai:gpt-4o-mini.
	DefaultModel string `yaml:"default_model"`
	// MaxTokens caps the assistant response length.
	MaxTokens int `yaml:"max_tokens"`
	// BaseURL overrides the OpenAI-compatible endpoint. Empty means the
	// public API of the selected provider.
	BaseURL string `yaml:"base_url,omitempty"`
	// StreamTimeoutSeconds is the hard cap on a single streaming response.
	StreamTimeoutSeconds int `yaml:"stream_timeout_seconds"`
	// TitleTimeoutSeconds bounds the title-generation request.
	TitleTimeoutSeconds int `yaml:"title_timeout_seconds"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			BaseURL:        "http://localhost:8000/api",
			TimeoutSeconds: 15,
			DebounceMS:     300,
		},
		Chat: ChatConfig{
			DefaultModel:         "openai:gpt-4o-mini",
			MaxTokens:            500,
			StreamTimeoutSeconds: 300,
			TitleTimeoutSeconds:  30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// StoreTimeout returns the per-request store timeout as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Store.TimeoutSeconds) * time.Second
}

// DebounceWindow returns the update coalescing window as a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Store.DebounceMS) * time.Millisecond
}

// StreamTimeout returns the streaming hard cap as a duration.
func (c *Config) StreamTimeout() time.Duration {
	return time.Duration(c.Chat.StreamTimeoutSeconds) * time.Second
}

// TitleTimeout returns the title-generation timeout as a duration.
func (c *Config) TitleTimeout() time.Duration {
	return time.Duration(c.Chat.TitleTimeoutSeconds) * time.Second
}
