package anthropic

import (
	"context"
	"encoding/json"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent/pkg/llms", "anthropic")

var (
	ErrMissingToken           = errors.New("missing the Anthropic API key, set it in the ANTHROPIC_API_KEY environment variable")
	ErrUnsupportedMessageType = errors.New("unsupported message type")
)

// LLM is the Anthropic Messages API backend
type LLM struct {
	Client *anthropic.Client
	model  string
}

var _ llms.Model = (*LLM)(nil)

// New returns a new Anthropic LLM.
//
// Example:
//
//	llm, err := anthropic.New(
//	    anthropic.WithToken("your-api-key"),
//	    anthropic.WithModel("claude-sonnet-4-5"),
//	)
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token: os.Getenv(TokenEnvVarName),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.Token == "" {
		return nil, ErrMissingToken
	}

	return &LLM{
		Client: newClient(options),
		model:  values.StringsCoalesce(options.Model, DefaultModel),
	}, nil
}

func newClient(options *Options) *anthropic.Client {
	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		// failures are reported to the user, not retried
		option.WithMaxRetries(0),
	}
	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}
	if options.HttpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HttpClient))
	}

	client := anthropic.NewClient(sdkOpts...)
	return &client
}

// GetName returns the model name
func (o *LLM) GetName() string {
	return o.model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderAnthropic
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if len(messages) == 0 {
		return nil, llms.ErrEmptyConversation
	}
	opts := llms.NewCallOptions(options...)

	sdkMessages, systemPrompt, err := ProcessMessages(messages)
	if err != nil {
		return nil, errors.Mark(err, llms.ErrProvider)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(values.StringsCoalesce(opts.Model, o.model)),
		Messages:  sdkMessages,
		MaxTokens: values.NumbersCoalesce(int64(opts.MaxTokens), DefaultMaxTokens),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if tools := ToTools(opts.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	result, err := o.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, markError(err)
	}

	resp := &llms.ContentResponse{
		StopReason: string(result.StopReason),
		Usage: llms.Usage{
			InputTokens:  int(result.Usage.InputTokens),
			OutputTokens: int(result.Usage.OutputTokens),
		},
	}
	for _, contentBlock := range result.Content {
		switch content := contentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			if resp.Content != "" {
				resp.Content += "\n"
			}
			resp.Content += content.Text
		case anthropic.ToolUseBlock:
			args := string(content.Input)
			if args == "" || args == "null" {
				args = "{}"
			}
			resp.ToolCalls = append(resp.ToolCalls, llms.ToolCall{
				ID:   content.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      content.Name,
					Arguments: args,
				},
			})
		default:
			logger.ContextKV(ctx, xlog.DEBUG, "status", "skipped_block", "type", contentBlock.Type)
		}
	}
	if resp.IsFinal() && resp.Content == "" {
		return nil, errors.Mark(errors.Newf("anthropic: empty response, stop reason: %s", result.StopReason), llms.ErrProvider)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", params.Model,
		"stop_reason", result.StopReason,
		"tool_calls", len(resp.ToolCalls),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp, nil
}

// ToTools converts the tool declarations to the
// anthropic.ToolUnionParam format required by the Anthropic SDK.
func ToTools(tools []llms.Tool) []anthropic.ToolUnionParam {
	var sdkTools []anthropic.ToolUnionParam
	for _, tool := range tools {
		if tool.Function == nil {
			continue
		}
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: "object",
		}
		if params := tool.Function.Parameters; params != nil {
			properties := make(map[string]any)
			if params.Properties != nil {
				for pair := params.Properties.Oldest(); pair != nil; pair = pair.Next() {
					properties[pair.Key] = pair.Value
				}
			}
			inputSchema.Properties = properties
			if len(params.Required) > 0 {
				inputSchema.Required = params.Required
			}
		}

		sdkTools = append(sdkTools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Function.Name,
				Description: anthropic.String(tool.Function.Description),
				InputSchema: inputSchema,
			},
		})
	}
	return sdkTools
}

// ProcessMessages converts the conversation to Anthropic SDK message parameters.
// System messages are returned as a separate system prompt,
// and consecutive tool results are grouped in one user message,
// as the API expects all results of a turn together.
func ProcessMessages(messages []llms.Message) ([]anthropic.MessageParam, string, error) {
	chatMessages := make([]anthropic.MessageParam, 0, len(messages))
	systemPrompt := ""
	var toolResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(toolResults) > 0 {
			chatMessages = append(chatMessages, anthropic.NewUserMessage(toolResults...))
			toolResults = nil
		}
	}

	for _, msg := range messages {
		if msg.Role != llms.RoleToolResult {
			flushResults()
		}
		switch msg.Role {
		case llms.RoleSystem:
			if systemPrompt != "" {
				systemPrompt += "\n" + msg.Content
			} else {
				systemPrompt = msg.Content
			}
		case llms.RoleUser:
			chatMessages = append(chatMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case llms.RoleAssistant:
			var contents []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				contents = append(contents, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				if tc.FunctionCall == nil {
					continue
				}
				var inputJSON json.RawMessage
				if err := json.Unmarshal([]byte(values.StringsCoalesce(tc.FunctionCall.Arguments, "{}")), &inputJSON); err != nil {
					return nil, "", errors.Wrap(err, "anthropic: failed to unmarshal tool call arguments")
				}
				contents = append(contents, anthropic.NewToolUseBlock(tc.ID, inputJSON, tc.FunctionCall.Name))
			}
			if len(contents) == 0 {
				return nil, "", errors.New("anthropic: no valid content in assistant message")
			}
			chatMessages = append(chatMessages, anthropic.NewAssistantMessage(contents...))
		case llms.RoleToolResult:
			toolResults = append(toolResults, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
		default:
			return nil, "", errors.WithMessagef(ErrUnsupportedMessageType, "anthropic: %v", msg.Role)
		}
	}
	flushResults()

	return chatMessages, systemPrompt, nil
}

func markError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llms.MarkStatus(errors.Wrapf(err, "anthropic: status %d", apiErr.StatusCode), apiErr.StatusCode)
	}
	return llms.MarkTransport(errors.Wrap(err, "anthropic: failed to create message"))
}
