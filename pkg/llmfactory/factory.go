package llmfactory

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llms/anthropic"
	"github.com/effective-security/toolagent/pkg/llms/googleai"
	"github.com/effective-security/toolagent/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "llmfactory")

// ErrNoProviders is returned when the config has no providers
var ErrNoProviders = errors.New("no LLM providers configured")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// ModelByName returns the model of the first provider that serves
	// one of the preferred models, in order of the providers.
	// If none is served, it returns the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
}

type factory struct {
	cfg *Config

	defaultProvider *ProviderConfig
	byName          map[string]llms.Model
	lock            sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:    cfg,
		byName: make(map[string]llms.Model),
	}

	if cfg.DefaultProvider != "" {
		for _, provider := range cfg.Providers {
			if provider.Name == cfg.DefaultProvider {
				f.defaultProvider = provider
				break
			}
		}
	}

	if f.defaultProvider == nil && len(f.cfg.Providers) > 0 {
		f.defaultProvider = f.cfg.Providers[0]
	}

	return f
}

func (f *factory) DefaultModel() (llms.Model, error) {
	if f.defaultProvider == nil {
		return nil, ErrNoProviders
	}
	return f.get(f.defaultProvider)
}

func (f *factory) ModelByName(preferredModels ...string) (llms.Model, error) {
	for _, model := range preferredModels {
		for _, provider := range f.cfg.Providers {
			if provider.FindModel(model) == model {
				return f.get(provider, model)
			}
		}
	}
	return f.DefaultModel()
}

func (f *factory) get(provider *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	name := provider.FindModel(preferredModels...)
	key := provider.Name + "/" + name

	f.lock.Lock()
	defer f.lock.Unlock()

	if m, ok := f.byName[key]; ok {
		return m, nil
	}

	m, err := NewLLM(provider, name)
	if err != nil {
		return nil, err
	}
	logger.KV(xlog.DEBUG,
		"status", "created",
		"provider", provider.Name,
		"type", m.GetProviderType(),
		"model", m.GetName(),
	)

	f.byName[key] = m
	return m, nil
}

// CreateLLM returns the backend for the provider type
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	provType, ok := llms.ParseProviderType(cfg.APIType)
	if !ok {
		return nil, errors.Errorf("unsupported provider type: %s", strings.ToUpper(cfg.APIType))
	}
	switch provType {
	case llms.ProviderOpenAI:
		return newOpenAI(cfg, preferredModels...)
	case llms.ProviderAnthropic:
		return newAnthropic(cfg, preferredModels...)
	default:
		return newGoogleAI(cfg, preferredModels...)
	}
}

func newOpenAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []openai.Option
	if model := cfg.FindModel(preferredModels...); model != "" {
		opts = append(opts, openai.WithModel(model))
	}

	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.OrgID != "" {
		opts = append(opts, openai.WithOrganization(cfg.OrgID))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
	}
	return openai.New(opts...)
}

func newAnthropic(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []anthropic.Option
	if model := cfg.FindModel(preferredModels...); model != "" {
		opts = append(opts, anthropic.WithModel(model))
	}
	if cfg.Token != "" {
		opts = append(opts, anthropic.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(cfg.HTTPClient))
	}
	return anthropic.New(opts...)
}

func newGoogleAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithDefaultModel(cfg.FindModel(preferredModels...)),
	}
	if cfg.Token != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, googleai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, googleai.WithHTTPClient(cfg.HTTPClient))
	}
	return googleai.New(context.Background(), opts...)
}
