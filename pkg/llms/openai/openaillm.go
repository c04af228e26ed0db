package openai

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent/pkg/llms", "openai")

// ErrMissingToken is returned when no API key is configured
var ErrMissingToken = errors.New("missing the OpenAI API key, set it in the OPENAI_API_KEY environment variable")

// LLM is the OpenAI Chat Completions backend
type LLM struct {
	client *openai.Client
	model  string
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{
		token:   os.Getenv(tokenEnvVarName),
		model:   os.Getenv(modelEnvVarName),
		baseURL: os.Getenv(baseURLEnvVarName),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.token == "" {
		return nil, ErrMissingToken
	}

	cfg := openai.DefaultConfig(o.token)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.organization != "" {
		cfg.OrgID = o.organization
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}

	return &LLM{
		client: openai.NewClientWithConfig(cfg),
		model:  values.StringsCoalesce(o.model, DefaultModel),
	}, nil
}

// GetName returns the model name
func (o *LLM) GetName() string {
	return o.model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if len(messages) == 0 {
		return nil, llms.ErrEmptyConversation
	}
	opts := llms.NewCallOptions(options...)

	req := openai.ChatCompletionRequest{
		Model:     values.StringsCoalesce(opts.Model, o.model),
		Messages:  toChatMessages(messages),
		MaxTokens: opts.MaxTokens,
		Tools:     toTools(opts.Tools),
	}
	if opts.Temperature > 0 {
		req.Temperature = float32(opts.Temperature)
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, markError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Mark(errors.New("openai: no choices in response"), llms.ErrProvider)
	}

	choice := resp.Choices[0]
	res := &llms.ContentResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage: llms.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		if tc.Function.Name == "" {
			return nil, errors.Mark(errors.New("openai: tool call without function name"), llms.ErrProvider)
		}
		res.ToolCalls = append(res.ToolCalls, llms.ToolCall{
			ID:   values.StringsCoalesce(tc.ID, uuid.NewString()),
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	if res.IsFinal() && res.Content == "" && choice.FinishReason != openai.FinishReasonStop {
		return nil, errors.Mark(errors.Newf("openai: empty response, finish reason: %s", choice.FinishReason), llms.ErrProvider)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", req.Model,
		"finish_reason", choice.FinishReason,
		"tool_calls", len(res.ToolCalls),
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
	)
	return res, nil
}

func toChatMessages(messages []llms.Message) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Content: m.Content,
		}
		switch m.Role {
		case llms.RoleSystem:
			msg.Role = openai.ChatMessageRoleSystem
		case llms.RoleUser:
			msg.Role = openai.ChatMessageRoleUser
		case llms.RoleAssistant:
			msg.Role = openai.ChatMessageRoleAssistant
			for _, tc := range m.ToolCalls {
				if tc.FunctionCall == nil {
					continue
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.FunctionCall.Name,
						Arguments: tc.FunctionCall.Arguments,
					},
				})
			}
		case llms.RoleToolResult:
			msg.Role = openai.ChatMessageRoleTool
			msg.ToolCallID = m.ToolCallID
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func toTools(tools []llms.Tool) []openai.Tool {
	var res []openai.Tool
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		res = append(res, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	return res
}

func markError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llms.MarkStatus(errors.Wrapf(err, "openai: status %d", apiErr.HTTPStatusCode), apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llms.MarkStatus(errors.Wrapf(err, "openai: status %d", reqErr.HTTPStatusCode), reqErr.HTTPStatusCode)
	}
	return llms.MarkTransport(errors.Wrap(err, "openai"))
}
