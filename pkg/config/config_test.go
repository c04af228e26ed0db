package config_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/config"
	"github.com/effective-security/toolagent/pkg/llmfactory"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, env := range []string{
		config.EnvConfig, config.EnvProvider, config.EnvModel, config.EnvBaseURL,
		config.EnvLogLevel, config.EnvVerbose,
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
	} {
		t.Setenv(env, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, 1024, cfg.MaxTokens)
	assert.Equal(t, 10, cfg.MaxToolRounds)
	assert.Equal(t, 2*time.Minute, cfg.Timeout())
	assert.Equal(t, xlog.ERROR, cfg.Level())
	assert.False(t, cfg.Verbose)

	llmCfg := cfg.LLMConfig()
	require.Len(t, llmCfg.Providers, 1)
	assert.Equal(t, "openai", llmCfg.DefaultProvider)
	assert.Equal(t, "gpt-4o", llmCfg.Providers[0].DefaultModel)
	assert.Equal(t, "sk-test", llmCfg.Providers[0].Token)
}

func TestLoad_MissingCredential(t *testing.T) {
	clearEnv(t)

	tcases := []struct {
		provider string
		env      string
	}{
		{"openai", "OPENAI_API_KEY"},
		{"anthropic", "ANTHROPIC_API_KEY"},
		{"gemini", "GEMINI_API_KEY or GOOGLE_API_KEY"},
	}
	for _, tc := range tcases {
		t.Run(tc.provider, func(t *testing.T) {
			t.Setenv(config.EnvProvider, tc.provider)
			_, err := config.Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrMissingCredential))
			assert.True(t, errors.Is(err, config.ErrConfiguration))
			assert.Contains(t, err.Error(), tc.env)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvProvider, "claude")
	t.Setenv(config.EnvModel, "claude-haiku-4-5")
	t.Setenv(config.EnvLogLevel, "debug")
	t.Setenv(config.EnvVerbose, "true")
	t.Setenv("ANTHROPIC_API_KEY", "ak")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-haiku-4-5", cfg.Model)
	assert.Equal(t, "ak", cfg.APIKey)
	assert.Equal(t, xlog.DEBUG, cfg.Level())
	assert.True(t, cfg.Verbose)

	t.Setenv(config.EnvVerbose, "maybe")
	_, err = config.Load()
	assert.True(t, errors.Is(err, config.ErrConfiguration))
	assert.EqualError(t, err, `invalid TOOLAGENT_VERBOSE value: "maybe"`)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_TOOLAGENT_KEY", "yaml-key")

	cfg, err := config.LoadFile("testdata/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-haiku-4-5", cfg.Model)
	assert.Equal(t, 2048, cfg.MaxTokens)
	assert.Equal(t, 5, cfg.MaxToolRounds)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Contains(t, cfg.SystemPrompt, "{{ len .Tools }}")

	t.Setenv(config.EnvConfig, "testdata/config.toml")
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, "googleai", cfg.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model)
	assert.Equal(t, "toml-key", cfg.APIKey)
	assert.Equal(t, 512, cfg.MaxTokens)
	assert.Equal(t, 10, cfg.MaxToolRounds)
	assert.True(t, cfg.Verbose)
}

func TestLoadFile_Invalid(t *testing.T) {
	clearEnv(t)

	_, err := config.LoadFile("testdata/invalid.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfiguration))
	assert.Contains(t, err.Error(), "MaxTokens")

	_, err = config.LoadFile("testdata/missing.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfiguration))

	t.Setenv("OPENAI_API_KEY", "key")
	tcases := []struct {
		name   string
		mutate func(c *config.Config)
		exp    string
	}{
		{"provider", func(c *config.Config) { c.Provider = "bedrock" }, `unsupported provider: "bedrock"`},
		{"timeout", func(c *config.Config) { c.RequestTimeout = "soon" }, `invalid request_timeout: "soon"`},
		{"rounds", func(c *config.Config) { c.MaxToolRounds = 0 }, "MaxToolRounds"},
		{"log level", func(c *config.Config) { c.LogLevel = "loud" }, "LogLevel"},
		{"base url", func(c *config.Config) { c.BaseURL = "not a url" }, "BaseURL"},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			c := config.Default()
			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrConfiguration))
			assert.Contains(t, err.Error(), tc.exp)
		})
	}
}

func TestProviderHelpers(t *testing.T) {
	assert.Equal(t, "googleai", config.ProviderName(llms.ProviderGoogleAI))
	assert.Equal(t, "claude-sonnet-4-5", config.DefaultModel(llms.ProviderAnthropic))
	assert.Equal(t, []string{"OPENAI_API_KEY"}, config.APIKeyEnvs(llms.ProviderOpenAI))
}

func TestLoadFile_Providers(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := config.LoadFile("testdata/providers.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o-mini"}, cfg.AvailableModels)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "anthropic", cfg.Providers[0].APIType)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Providers[0].DefaultModel)
	assert.Equal(t, "googleai", cfg.Providers[1].APIType)
	assert.Equal(t, "gemini-key", cfg.Providers[1].Token)
	assert.Equal(t, "gemini-2.5-flash", cfg.Providers[1].DefaultModel)

	llmCfg := cfg.LLMConfig()
	assert.Equal(t, "openai", llmCfg.DefaultProvider)
	require.Len(t, llmCfg.Providers, 3)
	assert.Equal(t, "claude", llmCfg.Providers[0].Name)
	assert.Equal(t, "openai", llmCfg.Providers[2].Name)
	assert.Equal(t, "openai-key", llmCfg.Providers[2].Token)
	assert.Equal(t, "gpt-4o", llmCfg.Providers[2].DefaultModel)
	assert.Equal(t, []string{"gpt-4o-mini"}, llmCfg.Providers[2].AvailableModels)

	t.Setenv("GEMINI_API_KEY", "")
	_, err = config.LoadFile("testdata/providers.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrMissingCredential))
	assert.Contains(t, err.Error(), "for gemini provider")
}

func TestValidate_Providers(t *testing.T) {
	clearEnv(t)

	tcases := []struct {
		name      string
		providers []*llmfactory.ProviderConfig
		exp       string
	}{
		{"no name", []*llmfactory.ProviderConfig{{APIType: "anthropic"}}, "providers[0]: name is required"},
		{"nil", []*llmfactory.ProviderConfig{nil}, "providers[0]: name is required"},
		{"same as default", []*llmfactory.ProviderConfig{{Name: "openai", Token: "k"}}, `providers[0]: duplicate name: "openai"`},
		{"duplicate", []*llmfactory.ProviderConfig{{Name: "a", APIType: "anthropic", Token: "k"}, {Name: "a", APIType: "anthropic", Token: "k"}}, `providers[1]: duplicate name: "a"`},
		{"api type", []*llmfactory.ProviderConfig{{Name: "b", APIType: "bedrock", Token: "k"}}, `providers[0]: unsupported api_type: "bedrock"`},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			c := config.Default()
			c.APIKey = "key"
			c.Providers = tc.providers
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrConfiguration))
			assert.EqualError(t, err, tc.exp)
		})
	}
}
