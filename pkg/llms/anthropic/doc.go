// Package anthropic implements the Anthropic Messages API backend.
package anthropic
