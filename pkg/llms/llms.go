package llms

import (
	"context"
	"strings"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderAnthropic is the Anthropic Messages API.
	ProviderAnthropic ProviderType = "ANTHROPIC"
	// ProviderGoogleAI is the Gemini API.
	ProviderGoogleAI ProviderType = "GOOGLEAI"
	// ProviderOpenAI is the OpenAI Chat Completions API, or a compatible one.
	ProviderOpenAI ProviderType = "OPENAI"
)

// ParseProviderType returns the ProviderType for the name,
// accepting the config spellings like `openai`, `open_ai` or `gemini`.
func ParseProviderType(name string) (ProviderType, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "OPENAI", "OPEN_AI":
		return ProviderOpenAI, true
	case "ANTHROPIC", "CLAUDE":
		return ProviderAnthropic, true
	case "GOOGLEAI", "GOOGLE_AI", "GEMINI":
		return ProviderGoogleAI, true
	}
	return "", false
}

// Model is an interface the hosted models implement.
//
//go:generate mockgen -source=llms.go -destination=../../mocks/mockllms/llms_mock.go -package mockllms
type Model interface {
	// GetName returns the model name.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent sends the messages and the declared tools to the model,
	// and returns either the final answer or the tool calls requested by the model.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}

// Role is the author of a message.
type Role string

const (
	// RoleSystem is the system prompt, always the first message of a request.
	RoleSystem Role = "system"
	// RoleUser is a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the model.
	RoleAssistant Role = "assistant"
	// RoleToolResult is the output of a tool call, sent back to the model.
	RoleToolResult Role = "tool_result"
)

// Message is one turn of the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	// ToolCalls is set on the assistant turn that requests tools.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID is set on a tool_result turn, and refers to the ToolCall it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// Name is the tool name on a tool_result turn.
	Name string `json:"name,omitempty"`
}

// SystemMessage returns a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant message.
func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResultMessage returns a tool_result message for the call.
func ToolResultMessage(call ToolCall, content string) Message {
	msg := Message{
		Role:       RoleToolResult,
		Content:    content,
		ToolCallID: call.ID,
	}
	if call.FunctionCall != nil {
		msg.Name = call.FunctionCall.Name
	}
	return msg
}

// ToolCall is a call to a tool (as requested by the model) that should be executed.
type ToolCall struct {
	// ID is the unique identifier of the tool call.
	ID string `json:"id"`
	// Type is the type of the tool call. Typically, this would be "function".
	Type string `json:"type"`
	// FunctionCall is the function call to be executed.
	FunctionCall *FunctionCall `json:"function,omitempty"`
}

// FunctionCall is the name and arguments of a function call.
type FunctionCall struct {
	// The name of the function to call.
	Name string `json:"name"`
	// The arguments to pass to the function, as a JSON string.
	Arguments string `json:"arguments"`
}

// ContentResponse is the response returned by a GenerateContent call.
type ContentResponse struct {
	// Content is the textual answer of the model.
	Content string `json:"content,omitempty"`
	// ToolCalls is a list of tool calls the model asks to invoke.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// StopReason is the provider specific reason the generation stopped.
	StopReason string `json:"stop_reason,omitempty"`
	// Usage is the token usage reported by the provider.
	Usage Usage `json:"usage"`
}

// IsFinal returns true when the response is the final answer,
// and not a request to invoke tools.
func (r *ContentResponse) IsFinal() bool {
	return len(r.ToolCalls) == 0
}

// Message returns the assistant turn to append to the conversation.
func (r *ContentResponse) Message() Message {
	return AssistantMessage(r.Content, r.ToolCalls...)
}

// Usage is the token usage of a call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (u Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}
