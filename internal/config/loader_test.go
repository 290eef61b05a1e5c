package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_DefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("SHOAL_CONFIG", t.TempDir())

	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.Store.BaseURL)
	assert.Equal(t, "openai:gpt-4o-mini", cfg.Chat.DefaultModel)
	assert.Equal(t, 500, cfg.Chat.MaxTokens)
	assert.Equal(t, 300, cfg.Store.DebounceMS)
}

func TestLoader_RoundTrip(t *testing.T) {
	t.Setenv("SHOAL_CONFIG", t.TempDir())

	loader := NewLoader()

	cfg := Default()
	cfg.Store.BaseURL = "http://store.example.com/api"
	cfg.Chat.DefaultModel = "google:gemini-2.0-flash"
	cfg.APIKeys = map[string]string{"google": "test-key"}

	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://store.example.com/api", loaded.Store.BaseURL)
	assert.Equal(t, "google:gemini-2.0-flash", loaded.Chat.DefaultModel)
	assert.Equal(t, "test-key", loaded.APIKeys["google"])
}

func TestLoader_ConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHOAL_CONFIG", dir)

	loader := NewLoader()
	assert.Equal(t, filepath.Join(dir, "config.yaml"), loader.Path())
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("SHOAL_CONFIG", t.TempDir())
	t.Setenv("SHOAL_STORE_URL", "http://env.example.com/api")
	t.Setenv("SHOAL_MODEL", "openai:gpt-4o")
	t.Setenv("SHOAL_MAX_TOKENS", "250")

	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://env.example.com/api", cfg.Store.BaseURL)
	assert.Equal(t, "openai:gpt-4o", cfg.Chat.DefaultModel)
	assert.Equal(t, 250, cfg.Chat.MaxTokens)
}

func TestLoader_ResolvesEnvKeyReferences(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHOAL_CONFIG", dir)
	t.Setenv("TEST_SHOAL_KEY", "resolved-secret")

	data := []byte("api_keys:\n  openai: env://TEST_SHOAL_KEY\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o600))

	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "resolved-secret", cfg.APIKeys["openai"])
}

func TestResolveAPIKey_UnresolvedReference(t *testing.T) {
	cfg := Default()
	cfg.APIKeys = map[string]string{"openai": "env://DOES_NOT_EXIST_SHOAL"}

	_, err := cfg.ResolveAPIKey("openai", "OPENAI_API_KEY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOES_NOT_EXIST_SHOAL")
}

func TestResolveAPIKey_DefaultEnvFallback(t *testing.T) {
	t.Setenv("TEST_SHOAL_DEFAULT_KEY", "from-env")

	cfg := Default()
	key, err := cfg.ResolveAPIKey("openai", "TEST_SHOAL_DEFAULT_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}
