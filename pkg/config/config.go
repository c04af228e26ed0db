package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llmfactory"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llms/anthropic"
	"github.com/effective-security/toolagent/pkg/llms/googleai"
	"github.com/effective-security/toolagent/pkg/llms/openai"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
)

// Environment variables
const (
	EnvConfig   = "TOOLAGENT_CONFIG"
	EnvProvider = "TOOLAGENT_PROVIDER"
	EnvModel    = "TOOLAGENT_MODEL"
	EnvBaseURL  = "TOOLAGENT_BASE_URL"
	EnvLogLevel = "TOOLAGENT_LOG_LEVEL"
	EnvVerbose  = "TOOLAGENT_VERBOSE"
)

// Defaults
const (
	DefaultProvider       = "openai"
	DefaultMaxTokens      = 1024
	DefaultRequestTimeout = "2m"
	DefaultMaxToolRounds  = 10
	DefaultLogLevel       = "ERROR"
)

var (
	// ErrConfiguration is the kind of every configuration failure
	ErrConfiguration = errors.New("configuration error")
	// ErrMissingCredential is returned when no API key is found for the provider
	ErrMissingCredential = errors.Mark(errors.New("missing API key"), ErrConfiguration)
)

// Config of the agent
type Config struct {
	// Provider is one of openai|anthropic|googleai
	Provider string `json:"provider" yaml:"provider" toml:"provider" validate:"required,oneof=openai anthropic googleai"`
	// Model defaults to the provider's default model
	Model string `json:"model,omitempty" yaml:"model,omitempty" toml:"model" validate:"required"`
	// BaseURL overrides the provider endpoint
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url" validate:"omitempty,url"`
	// APIKey defaults to the provider's environment variable
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty" toml:"api_key"`
	MaxTokens      int    `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens" validate:"gte=1"`
	RequestTimeout string `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty" toml:"request_timeout" validate:"required"`
	MaxToolRounds  int    `json:"max_tool_rounds,omitempty" yaml:"max_tool_rounds,omitempty" toml:"max_tool_rounds" validate:"gte=1,lte=100"`
	// SystemPrompt is a text/template with sprig functions
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty" toml:"system_prompt"`
	LogLevel     string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level" validate:"oneof=CRITICAL ERROR WARNING NOTICE INFO DEBUG TRACE"`
	// Verbose prints LLM calls and tool calls to the terminal
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty" toml:"verbose"`

	// AvailableModels lists other models of the provider that Model may name
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty" toml:"available_models"`
	// Providers are additional providers, Model selects the one that lists it
	Providers []*llmfactory.ProviderConfig `json:"providers,omitempty" yaml:"providers,omitempty" toml:"providers"`
}

// Default returns the config with default values
func Default() *Config {
	return &Config{
		Provider:       DefaultProvider,
		MaxTokens:      DefaultMaxTokens,
		RequestTimeout: DefaultRequestTimeout,
		MaxToolRounds:  DefaultMaxToolRounds,
		LogLevel:       DefaultLogLevel,
	}
}

// Load returns the config from the file named by TOOLAGENT_CONFIG, if any,
// and the environment.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvConfig))
}

// LoadFile returns the config from the file and the environment.
// Empty file name means defaults and environment only.
func LoadFile(file string) (*Config, error) {
	cfg := Default()
	if file != "" {
		var err error
		if strings.EqualFold(filepath.Ext(file), ".toml") {
			_, err = toml.DecodeFile(file, cfg)
		} else {
			err = configloader.UnmarshalAndExpand(file, cfg)
		}
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "failed to load config %q", file), ErrConfiguration)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Provider = values.StringsCoalesce(os.Getenv(EnvProvider), c.Provider)
	c.Model = values.StringsCoalesce(os.Getenv(EnvModel), c.Model)
	c.BaseURL = values.StringsCoalesce(os.Getenv(EnvBaseURL), c.BaseURL)
	c.LogLevel = values.StringsCoalesce(os.Getenv(EnvLogLevel), c.LogLevel)

	if v := os.Getenv(EnvVerbose); v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Mark(errors.Newf("invalid %s value: %q", EnvVerbose, v), ErrConfiguration)
		}
		c.Verbose = verbose
	}
	return nil
}

// Validate normalizes the values, fills the provider defaults
// and returns ErrConfiguration kind of error for invalid config.
func (c *Config) Validate() error {
	pt, ok := llms.ParseProviderType(c.Provider)
	if !ok {
		return errors.Mark(errors.Newf("unsupported provider: %q", c.Provider), ErrConfiguration)
	}
	c.Provider = ProviderName(pt)
	c.Model = values.StringsCoalesce(c.Model, DefaultModel(pt))
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))

	if err := validator.New().Struct(c); err != nil {
		return errors.Mark(errors.Wrap(err, "invalid config"), ErrConfiguration)
	}

	timeout, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || timeout <= 0 {
		return errors.Mark(errors.Newf("invalid request_timeout: %q", c.RequestTimeout), ErrConfiguration)
	}

	if c.APIKey == "" {
		for _, env := range APIKeyEnvs(pt) {
			if key := os.Getenv(env); key != "" {
				c.APIKey = key
				break
			}
		}
	}
	if c.APIKey == "" {
		return errors.Wrapf(ErrMissingCredential, "set %s for %s provider",
			strings.Join(APIKeyEnvs(pt), " or "), c.Provider)
	}
	return c.validateProviders()
}

func (c *Config) validateProviders() error {
	names := map[string]bool{c.Provider: true}
	for i, p := range c.Providers {
		if p == nil || p.Name == "" {
			return errors.Mark(errors.Newf("providers[%d]: name is required", i), ErrConfiguration)
		}
		if names[p.Name] {
			return errors.Mark(errors.Newf("providers[%d]: duplicate name: %q", i, p.Name), ErrConfiguration)
		}
		names[p.Name] = true

		pt, ok := llms.ParseProviderType(values.StringsCoalesce(p.APIType, p.Name))
		if !ok {
			return errors.Mark(errors.Newf("providers[%d]: unsupported api_type: %q", i, p.APIType), ErrConfiguration)
		}
		p.APIType = ProviderName(pt)
		p.DefaultModel = values.StringsCoalesce(p.DefaultModel, DefaultModel(pt))
		if p.Token == "" {
			for _, env := range APIKeyEnvs(pt) {
				if key := os.Getenv(env); key != "" {
					p.Token = key
					break
				}
			}
		}
		if p.Token == "" {
			return errors.Wrapf(ErrMissingCredential, "set %s for %s provider",
				strings.Join(APIKeyEnvs(pt), " or "), p.Name)
		}
	}
	return nil
}

// Timeout returns the per request timeout
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultRequestTimeout)
	}
	return d
}

// Level returns the xlog level for LogLevel
func (c *Config) Level() xlog.LogLevel {
	switch c.LogLevel {
	case "CRITICAL":
		return xlog.CRITICAL
	case "WARNING":
		return xlog.WARNING
	case "NOTICE":
		return xlog.NOTICE
	case "INFO":
		return xlog.INFO
	case "DEBUG":
		return xlog.DEBUG
	case "TRACE":
		return xlog.TRACE
	}
	return xlog.ERROR
}

// LLMConfig returns the model factory config.
// The additional providers are listed before the default one,
// so a Model listed by one of them selects it.
func (c *Config) LLMConfig() *llmfactory.Config {
	providers := make([]*llmfactory.ProviderConfig, 0, len(c.Providers)+1)
	providers = append(providers, c.Providers...)
	providers = append(providers, &llmfactory.ProviderConfig{
		Name:            c.Provider,
		APIType:         c.Provider,
		Token:           c.APIKey,
		DefaultModel:    c.Model,
		AvailableModels: c.AvailableModels,
		BaseURL:         c.BaseURL,
	})
	return &llmfactory.Config{
		DefaultProvider: c.Provider,
		Providers:       providers,
	}
}

// ProviderName returns the config name of the provider
func ProviderName(pt llms.ProviderType) string {
	return strings.ToLower(string(pt))
}

// DefaultModel returns the default model for the provider
func DefaultModel(pt llms.ProviderType) string {
	switch pt {
	case llms.ProviderAnthropic:
		return anthropic.DefaultModel
	case llms.ProviderGoogleAI:
		return googleai.DefaultModel
	}
	return openai.DefaultModel
}

// APIKeyEnvs returns the environment variables with the API key for the provider
func APIKeyEnvs(pt llms.ProviderType) []string {
	switch pt {
	case llms.ProviderAnthropic:
		return []string{anthropic.TokenEnvVarName}
	case llms.ProviderGoogleAI:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	return []string{"OPENAI_API_KEY"}
}
