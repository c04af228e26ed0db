package llmfactory

import (
	"net/http"
	"slices"
)

// Config of the model providers
type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" toml:"providers"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider" toml:"default_provider"`
}

// ProviderConfig for a hosted model provider
type ProviderConfig struct {
	Name            string   `json:"name" yaml:"name" toml:"name"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty" toml:"token"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty" toml:"default_model"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty" toml:"available_models"`
	// APIType specifies the type of API to use:
	// OPENAI|ANTHROPIC|GOOGLEAI
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty" toml:"api_type"`
	// BaseURL overrides the provider endpoint,
	// for OpenAI compatible servers or proxies.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty" toml:"org_id"`

	// HTTPClient is used by the backends when set
	HTTPClient *http.Client `json:"-" yaml:"-" toml:"-"`
}

// FindModel returns the first of the models served by the provider,
// or the provider's default model.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if model == c.DefaultModel || slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}
