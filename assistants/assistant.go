package assistants

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/pkg/metricskey"
	"github.com/effective-security/toolagent/pkg/prompts"
	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "assistants")

// ErrToolRoundsExceeded is returned when the model keeps requesting tools
// beyond the configured number of rounds in one user turn.
var ErrToolRoundsExceeded = errors.New("tool call rounds exceeded")

// Assistant sends the conversation to the model
// and resolves the tool calls of the responses.
type Assistant struct {
	LLM llms.Model

	registry  *tools.Registry
	formatter *Formatter
	cfg       *Config
}

// NewAssistant returns the Assistant for the model and the tools of the registry.
// The system prompt template is rendered once, with the registered tools.
func NewAssistant(llmModel llms.Model, registry *tools.Registry, options ...Option) (*Assistant, error) {
	cfg := NewConfig(options...)

	tmpl, err := prompts.NewSystemPromptTemplate(cfg.SystemPrompt)
	if err != nil {
		return nil, err
	}
	data := prompts.SystemPromptData{
		Model: llmModel.GetName(),
		Now:   time.Now(),
	}
	for d := range registry.List() {
		data.Tools = append(data.Tools, prompts.ToolInfo{Name: d.Name, Description: d.Description})
	}
	sysprompt, err := tmpl.Format(data)
	if err != nil {
		return nil, err
	}

	return &Assistant{
		LLM:       llmModel,
		registry:  registry,
		formatter: NewFormatter(registry, sysprompt, cfg.GetCallOptions()...),
		cfg:       cfg,
	}, nil
}

// Config returns the configuration of the Assistant
func (a *Assistant) Config() *Config {
	return a.cfg
}

// Formatter returns the request formatter
func (a *Assistant) Formatter() *Formatter {
	return a.formatter
}

// Registry returns the tools registry
func (a *Assistant) Registry() *tools.Registry {
	return a.registry
}

// Dispatch sends the conversation to the model.
// On success the assistant turn of the response is appended to the conversation,
// on error the conversation is not changed.
func (a *Assistant) Dispatch(ctx context.Context, conv *chatmodel.Conversation) (*llms.ContentResponse, error) {
	messages, callOpts, err := a.formatter.Format(conv)
	if err != nil {
		return nil, err
	}

	modelName := a.LLM.GetName()
	cb := a.cfg.CallbackHandler
	if cb != nil {
		cb.OnLLMCallStart(ctx, a.LLM, messages)
	}

	bytesSent := llmutils.CountMessagesContentSize(messages)
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messages)), modelName)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), modelName)

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	started := time.Now()
	resp, err := a.LLM.GenerateContent(callCtx, messages, callOpts...)
	metricskey.PerfLLMCall.MeasureSince(started, modelName)
	if err == nil && resp == nil {
		err = errors.Mark(errors.New("empty response"), llms.ErrProvider)
	}
	if err != nil {
		kind := llms.ErrorKind(err)
		metricskey.StatsLLMCallsFailed.IncrCounter(1, modelName, kind)
		logger.ContextKV(ctx, xlog.ERROR,
			"chat_id", chatmodel.GetChatID(ctx),
			"model", modelName,
			"kind", kind,
			"err", err.Error(),
		)
		if cb != nil {
			cb.OnLLMCallError(ctx, a.LLM, err)
		}
		return nil, errors.Wrapf(err, "failed to generate content from LLM")
	}

	metricskey.StatsLLMCallsSucceeded.IncrCounter(1, modelName)
	metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), modelName)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(resp.Usage.InputTokens), modelName)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(resp.Usage.OutputTokens), modelName)
	metricskey.StatsLLMTotalTokens.IncrCounter(float64(resp.Usage.TotalTokens()), modelName)

	logger.ContextKV(ctx, xlog.DEBUG,
		"chat_id", chatmodel.GetChatID(ctx),
		"model", modelName,
		"messages", len(messages),
		"tool_calls", len(resp.ToolCalls),
		"stop_reason", resp.StopReason,
		"elapsed", time.Since(started).String(),
	)

	conv.Append(resp.Message())

	if cb != nil {
		cb.OnLLMCallEnd(ctx, a.LLM, resp)
	}
	return resp, nil
}

// ResolveToolCalls invokes the requested tools one by one, in order,
// and returns a tool result turn for each call.
// An unknown tool or a failed callback produces an error payload
// for the model, not an error.
func (a *Assistant) ResolveToolCalls(ctx context.Context, calls []llms.ToolCall) []llms.Message {
	cb := a.cfg.CallbackHandler
	results := make([]llms.Message, 0, len(calls))

	for _, call := range calls {
		var name, args string
		if call.FunctionCall != nil {
			name = call.FunctionCall.Name
			args = call.FunctionCall.Arguments
		}

		tool, err := a.registry.Lookup(name)
		if err != nil {
			metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
			logger.ContextKV(ctx, xlog.WARNING,
				"chat_id", chatmodel.GetChatID(ctx),
				"status", "tool_not_found",
				"tool", name,
			)
			if cb != nil {
				cb.OnToolNotFound(ctx, name)
			}
			results = append(results, llms.ToolResultMessage(call, tools.NotFoundResult(name, a.registry.Names())))
			continue
		}

		if cb != nil {
			cb.OnToolStart(ctx, tool, args)
		}

		started := time.Now()
		res, err := tool.Invoke(ctx, args)
		metricskey.PerfToolCall.MeasureSince(started, name)

		if err != nil {
			metricskey.StatsToolCallsFailed.IncrCounter(1, name)
			logger.ContextKV(ctx, xlog.WARNING,
				"chat_id", chatmodel.GetChatID(ctx),
				"status", "tool_failed",
				"tool", name,
				"args", slices.StringUpto(args, 256),
				"err", err.Error(),
			)
			if cb != nil {
				cb.OnToolError(ctx, tool, args, err)
			}
			results = append(results, llms.ToolResultMessage(call, tools.ErrorResult(name, err)))
			continue
		}

		metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
		if cb != nil {
			cb.OnToolEnd(ctx, tool, args, res)
		}
		results = append(results, llms.ToolResultMessage(call, res))
	}
	return results
}

// Run appends the user input to the conversation and drives the
// request and tool call rounds until the model returns the final answer.
// On error the conversation is truncated back to the user turn.
func (a *Assistant) Run(ctx context.Context, conv *chatmodel.Conversation, input string) (string, error) {
	turn := a.BeginTurn(conv, input)
	for {
		answer, final, err := turn.Dispatch(ctx)
		if err != nil {
			return "", err
		}
		if final {
			return answer, nil
		}
		turn.ResolveToolCalls(ctx)
	}
}

// CheckToolRounds returns ErrToolRoundsExceeded when the zero based round
// of tool calls reached the configured limit.
func (a *Assistant) CheckToolRounds(ctx context.Context, round int) error {
	if round < a.cfg.MaxToolRounds {
		return nil
	}
	metricskey.StatsToolRoundsExceeded.IncrCounter(1, a.LLM.GetName())
	logger.ContextKV(ctx, xlog.WARNING,
		"chat_id", chatmodel.GetChatID(ctx),
		"status", "tool_rounds_exceeded",
		"rounds", round,
	)
	return errors.Wrapf(ErrToolRoundsExceeded, "the model requested tools more than %d times", a.cfg.MaxToolRounds)
}
