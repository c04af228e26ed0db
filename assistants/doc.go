// Package assistants drives a conversation with a tool calling model:
// it formats the request, sends it to the model, and resolves the tool calls
// in the response against the tool registry.
package assistants
