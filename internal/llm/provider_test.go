package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoal-chat/shoal/internal/config"
)

func TestRegistry_GetProvider_Unknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.GetProvider(context.Background(), "nope", "model", config.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestRegistry_ListProviders_SortedAndHidesMock(t *testing.T) {
	r := NewRegistry()
	r.RegisterProvider(ProviderMetadata{Name: "zeta"}, nil)
	r.RegisterProvider(ProviderMetadata{Name: "mock"}, nil)
	r.RegisterProvider(ProviderMetadata{Name: "alpha"}, nil)

	listed := r.ListProviders()
	require.Len(t, listed, 2)
	assert.Equal(t, "alpha", listed[0].Name)
	assert.Equal(t, "zeta", listed[1].Name)
}

func TestRegistry_ValidateModel(t *testing.T) {
	r := NewRegistry()
	r.RegisterProvider(ProviderMetadata{
		Name: "openai",
		SupportedModels: []ModelMetadata{
			{ID: "gpt-4o-mini"},
			{ID: "gpt-3.5-turbo", Deprecated: true},
		},
	}, nil)
	r.RegisterProvider(ProviderMetadata{Name: "proxy"}, nil)

	assert.NoError(t, r.ValidateModel("openai", "gpt-4o-mini"))
	assert.Error(t, r.ValidateModel("openai", "gpt-99"))
	assert.Error(t, r.ValidateModel("unknown", "gpt-4o-mini"))
	// Empty model list accepts any model ID.
	assert.NoError(t, r.ValidateModel("proxy", "anything"))
}

func TestGlobalRegistry_HasBuiltins(t *testing.T) {
	listed := Get().ListProviders()

	names := make(map[string]bool)
	for _, p := range listed {
		names[p.Name] = true
	}

	assert.True(t, names["openai"], "openai provider should be registered")
	assert.True(t, names["google"], "google provider should be registered")
	assert.False(t, names["mock"], "mock provider should be hidden")
}
