// Package llmfactory creates the hosted model backends from the provider configuration.
package llmfactory
