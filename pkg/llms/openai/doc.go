// Package openai implements the OpenAI Chat Completions backend.
package openai
