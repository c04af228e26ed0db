package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/prompts"
	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ assistants.Callback = (*Noop)(nil)
	_ assistants.Callback = (*Printer)(nil)
	_ assistants.Callback = (*PackageLogger)(nil)
	_ assistants.Callback = (*Fanout)(nil)
	_ assistants.Callback = (*Scratchpad)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []assistants.Callback
}

func NewFanout(callbacks ...assistants.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback assistants.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, llm, payload)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, llm, resp)
	}
}

func (l *Fanout) OnLLMCallError(ctx context.Context, llm llms.Model, err error) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallError(ctx, llm, err)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, tool *tools.Descriptor, input string) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, tool, input)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, tool *tools.Descriptor, input string, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, tool, input, output)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, tool *tools.Descriptor, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, tool, input, err)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, tool string) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, tool)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message) {}
func (l *Noop) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
}
func (l *Noop) OnLLMCallError(ctx context.Context, llm llms.Model, err error)          {}
func (l *Noop) OnToolStart(ctx context.Context, tool *tools.Descriptor, input string) {}
func (l *Noop) OnToolEnd(ctx context.Context, tool *tools.Descriptor, input string, output string) {
}
func (l *Noop) OnToolError(ctx context.Context, tool *tools.Descriptor, input string, err error) {
}
func (l *Noop) OnToolNotFound(ctx context.Context, tool string) {}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call: %s model, %d messages\n", llm.GetName(), len(payload))
	if l.Mode == ModeVerbose {
		fmt.Fprint(l.Out, prompts.ChatPromptValue(payload).String())
	}
}

func (l *Printer) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call End: %s model, %d tool calls, %d tokens\n", llm.GetName(), len(resp.ToolCalls), resp.Usage.TotalTokens())
	if l.Mode == ModeVerbose {
		for _, tc := range resp.ToolCalls {
			fmt.Fprintf(l.Out, "Tool Call: %s(%s)\n", tc.FunctionCall.Name, tc.FunctionCall.Arguments)
		}
	}
}

func (l *Printer) OnLLMCallError(ctx context.Context, llm llms.Model, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call Error: %s model: %s: %s\n", llm.GetName(), llms.ErrorKind(err), err.Error())
}

func (l *Printer) OnToolStart(ctx context.Context, tool *tools.Descriptor, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s\n", tool.Name)
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnToolEnd(ctx context.Context, tool *tools.Descriptor, input string, output string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s\n", tool.Name)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", output)
	}
}

func (l *Printer) OnToolError(ctx context.Context, tool *tools.Descriptor, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Error: %s: %s\n", tool.Name, err.Error())
}

func (l *Printer) OnToolNotFound(ctx context.Context, tool string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Not Found: %s\n", tool)
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"model", llm.GetName(),
		"messages", len(payload),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"model", llm.GetName(),
		"tool_calls", len(resp.ToolCalls),
		"tokens", resp.Usage.TotalTokens(),
	)
}

func (l *PackageLogger) OnLLMCallError(ctx context.Context, llm llms.Model, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "llm_call_error",
		"model", llm.GetName(),
		"kind", llms.ErrorKind(err),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, tool *tools.Descriptor, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", tool.Name,
		"input", input,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, tool *tools.Descriptor, input string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", tool.Name,
		"output", slices.StringUpto(output, 256),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, tool *tools.Descriptor, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", tool.Name,
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, tool string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_not_found",
		"tool", tool,
	)
}
