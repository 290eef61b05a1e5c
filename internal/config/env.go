package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable overrides, applied on top of file values.
// This enables config-less usage (CI, containers) with only SHOAL_* vars set.
const (
	EnvStoreURL      = "SHOAL_STORE_URL"
	EnvModel         = "SHOAL_MODEL"
	EnvMaxTokens     = "SHOAL_MAX_TOKENS"
	EnvChatBaseURL   = "SHOAL_CHAT_BASE_URL"
	EnvLogLevel      = "SHOAL_LOG_LEVEL"
	EnvDebounceMS    = "SHOAL_DEBOUNCE_MS"
	EnvStoreTimeout  = "SHOAL_STORE_TIMEOUT_SECONDS"
	EnvStreamTimeout = "SHOAL_STREAM_TIMEOUT_SECONDS"
)

// ApplyEnv applies environment variable overrides to the config.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvStoreURL); v != "" {
		cfg.Store.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		cfg.Chat.DefaultModel = v
	}
	if v := os.Getenv(EnvChatBaseURL); v != "" {
		cfg.Chat.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if n, ok := envInt(EnvMaxTokens); ok {
		cfg.Chat.MaxTokens = n
	}
	if n, ok := envInt(EnvDebounceMS); ok {
		cfg.Store.DebounceMS = n
	}
	if n, ok := envInt(EnvStoreTimeout); ok {
		cfg.Store.TimeoutSeconds = n
	}
	if n, ok := envInt(EnvStreamTimeout); ok {
		cfg.Chat.StreamTimeoutSeconds = n
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// resolveAPIKeyReferences resolves API key references like "env://OPENAI_API_KEY".
func resolveAPIKeyReferences(cfg *Config) error {
	if cfg.APIKeys == nil {
		return nil
	}

	for provider, ref := range cfg.APIKeys {
		if strings.HasPrefix(ref, "env://") {
			envVar := strings.TrimPrefix(ref, "env://")
			value := os.Getenv(envVar)
			if value == "" {
				// Don't error on missing keys - provider might not be used.
				continue
			}
			cfg.APIKeys[provider] = value
		} else if ref == "" {
			// Empty reference - try to find API key from common env vars.
			cfg.APIKeys[provider] = defaultAPIKey(provider)
		}
	}

	return nil
}

// defaultAPIKey attempts to get an API key from common environment variables.
func defaultAPIKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "google":
		return os.Getenv("GOOGLE_API_KEY")
	default:
		return ""
	}
}

// ResolveAPIKey resolves the API key for a provider. It checks the config
// map first, falling back to the given default environment variable. It
// returns an error if the key is missing or still contains an unresolved
// env:// reference.
func (c *Config) ResolveAPIKey(provider string, defaultEnvVar string) (string, error) {
	apiKey := c.APIKeys[provider]

	// Detect unresolved env:// references (env var was not set).
	if strings.HasPrefix(apiKey, "env://") {
		envVar := strings.TrimPrefix(apiKey, "env://")
		return "", fmt.Errorf("%s API key not configured: environment variable %s is not set", provider, envVar) //nolint:staticcheck
	}

	if apiKey == "" {
		apiKey = os.Getenv(defaultEnvVar)
	}

	if apiKey == "" {
		return "", fmt.Errorf("%s API key not configured (set %s)", provider, defaultEnvVar) //nolint:staticcheck
	}

	return apiKey, nil
}
