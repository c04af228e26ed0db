package assistants

import (
	"time"

	"github.com/effective-security/toolagent/pkg/llms"
)

const (
	// DefaultMaxToolRounds is the default limit of model requests
	// answered with tool calls in one user turn.
	DefaultMaxToolRounds = 10
	// DefaultRequestTimeout is the default timeout of one model request.
	DefaultRequestTimeout = 2 * time.Minute
)

// Option is a function that can be used to modify the behavior of the Assistant Config.
type Option func(*Config)

type Config struct {
	// Model is the model to use in an LLM call,
	// if not set then the default model of the backend is used.
	Model string
	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens int
	// Temperature is the temperature for sampling to use in an LLM call, between 0 and 1.
	Temperature float64

	// RequestTimeout bounds each LLM call
	RequestTimeout time.Duration
	// MaxToolRounds bounds the number of tool call rounds per user turn
	MaxToolRounds int
	// SystemPrompt is the template of the system prompt
	SystemPrompt string
	// CallbackHandler is the callback handler for the Assistant
	CallbackHandler Callback
}

func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		RequestTimeout: DefaultRequestTimeout,
		MaxToolRounds:  DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// GetCallOptions returns the LLM call options of the config
func (c *Config) GetCallOptions() []llms.CallOption {
	var opts []llms.CallOption
	if c.Model != "" {
		opts = append(opts, llms.WithModel(c.Model))
	}
	if c.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.Temperature))
	}
	return opts
}

// WithModel is an option that allows to specify the model name.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
	}
}

// WithMaxTokens is an option that allows to specify the max tokens to generate.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature is an option that allows to specify the temperature.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
	}
}

// WithRequestTimeout is an option that allows to specify the timeout of LLM call.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Config) {
		if timeout > 0 {
			o.RequestTimeout = timeout
		}
	}
}

// WithMaxToolRounds is an option that allows to specify the limit of tool rounds per turn.
func WithMaxToolRounds(rounds int) Option {
	return func(o *Config) {
		if rounds > 0 {
			o.MaxToolRounds = rounds
		}
	}
}

// WithSystemPrompt is an option that allows to specify the system prompt template.
func WithSystemPrompt(prompt string) Option {
	return func(o *Config) {
		o.SystemPrompt = prompt
	}
}

// WithCallback is an option that allows to specify a callback handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}
