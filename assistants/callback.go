package assistants

import (
	"context"

	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/tools"
)

// Callback receives the events of the assistant run.
type Callback interface {
	OnLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message)
	OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse)
	OnLLMCallError(ctx context.Context, llm llms.Model, err error)
	OnToolStart(ctx context.Context, tool *tools.Descriptor, input string)
	OnToolEnd(ctx context.Context, tool *tools.Descriptor, input string, output string)
	OnToolError(ctx context.Context, tool *tools.Descriptor, input string, err error)
	OnToolNotFound(ctx context.Context, tool string)
}
