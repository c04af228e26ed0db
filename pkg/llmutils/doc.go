// Package llmutils provides helpers to handle the model input and output.
package llmutils
