package googleai

import (
	"net/http"
	"os"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.5-flash"

// Options is a set of options for the GoogleAI client.
type Options struct {
	DefaultModel     string
	DefaultMaxTokens int
	HarmThreshold    genai.HarmBlockThreshold
	APIKey           string
	BaseURL          string
	HTTPClient       *http.Client
}

func DefaultOptions() Options {
	return Options{
		DefaultModel:  DefaultModel,
		HarmThreshold: genai.HarmBlockThresholdBlockOnlyHigh,
	}
}

// EnsureAuthPresent uses GEMINI_API_KEY or GOOGLE_API_KEY environment variable,
// if the API key is not set.
func (o *Options) EnsureAuthPresent() {
	if o.APIKey == "" {
		for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if key := os.Getenv(env); key != "" {
				o.APIKey = key
				return
			}
		}
	}
}

type Option func(*Options)

// WithAPIKey passes the API KEY (token) to the client.
func WithAPIKey(apiKey string) Option {
	return func(opts *Options) {
		opts.APIKey = apiKey
	}
}

// WithHTTPClient uses the provided HTTP client to make requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = httpClient
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithDefaultModel passes a default content model name to the client.
func WithDefaultModel(defaultModel string) Option {
	return func(opts *Options) {
		if defaultModel != "" {
			opts.DefaultModel = defaultModel
		}
	}
}

// WithDefaultMaxTokens sets the maximum token count used when the call does not specify it.
func WithDefaultMaxTokens(maxTokens int) Option {
	return func(opts *Options) {
		opts.DefaultMaxTokens = maxTokens
	}
}

// WithHarmThreshold sets the safety/harm setting for the model, potentially
// limiting any harmful content it may generate.
func WithHarmThreshold(ht genai.HarmBlockThreshold) Option {
	return func(opts *Options) {
		opts.HarmThreshold = ht
	}
}
