// Package llms provides the provider neutral conversation types and the Model
// interface implemented by the hosted LLM backends in its subpackages.
//
// The `llms.go` file contains the message and response types.
//
// The `options.go` file provides the call options, including tool declarations.
//
// The `errors.go` file defines the error kinds shared by all backends.
package llms
