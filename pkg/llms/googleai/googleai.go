package googleai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"google.golang.org/genai"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent/pkg/llms", "googleai")

const (
	RoleModel = "model"
	RoleUser  = "user"
)

var (
	ErrMissingToken          = errors.New("missing the Gemini API key, set it in the GEMINI_API_KEY environment variable")
	ErrNoContentInResponse   = errors.New("no content in response")
	ErrUnknownPartInResponse = errors.New("unknown part type in response")
)

// GoogleAI is a type that represents a Google AI API client.
type GoogleAI struct {
	client *genai.Client
	opts   Options
}

var _ llms.Model = (*GoogleAI)(nil)

// New creates a new GoogleAI client.
func New(ctx context.Context, opts ...Option) (*GoogleAI, error) {
	clientOptions := DefaultOptions()
	for _, opt := range opts {
		opt(&clientOptions)
	}
	clientOptions.EnsureAuthPresent()
	if clientOptions.APIKey == "" {
		return nil, ErrMissingToken
	}

	cfg := &genai.ClientConfig{
		APIKey:     clientOptions.APIKey,
		HTTPClient: clientOptions.HTTPClient,
		Backend:    genai.BackendGeminiAPI,
	}
	if clientOptions.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: clientOptions.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to create client")
	}

	return &GoogleAI{
		client: client,
		opts:   clientOptions,
	}, nil
}

// GetName returns the model name
func (g *GoogleAI) GetName() string {
	return g.opts.DefaultModel
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the Model interface.
func (g *GoogleAI) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if len(messages) == 0 {
		return nil, llms.ErrEmptyConversation
	}
	opts := llms.NewCallOptions(options...)
	model := values.StringsCoalesce(opts.Model, g.opts.DefaultModel)

	callCfg := &genai.GenerateContentConfig{
		Tools: ConvertTools(opts.Tools),
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryDangerousContent, Threshold: g.opts.HarmThreshold},
			{Category: genai.HarmCategoryHarassment, Threshold: g.opts.HarmThreshold},
			{Category: genai.HarmCategoryHateSpeech, Threshold: g.opts.HarmThreshold},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: g.opts.HarmThreshold},
		},
	}
	if maxTokens := values.NumbersCoalesce(opts.MaxTokens, g.opts.DefaultMaxTokens); maxTokens > 0 {
		callCfg.MaxOutputTokens = int32(maxTokens)
	}
	if opts.Temperature > 0 {
		callCfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}

	history, system, err := ConvertMessages(messages)
	if err != nil {
		return nil, errors.Mark(err, llms.ErrProvider)
	}
	if system != "" {
		callCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, history, callCfg)
	if err != nil {
		return nil, markError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.Mark(ErrNoContentInResponse, llms.ErrProvider)
	}

	res, err := convertCandidate(resp.Candidates[0], resp.UsageMetadata)
	if err != nil {
		return nil, errors.Mark(err, llms.ErrProvider)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", model,
		"finish_reason", res.StopReason,
		"tool_calls", len(res.ToolCalls),
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
	)
	return res, nil
}

// convertCandidate converts genai.Candidate to a response.
func convertCandidate(candidate *genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) (*llms.ContentResponse, error) {
	res := &llms.ContentResponse{
		StopReason: string(candidate.FinishReason),
	}

	var buf strings.Builder
	for _, part := range candidate.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			b, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, errors.Wrap(err, "googleai: failed to marshal function call arguments")
			}
			args := string(b)
			if args == "null" {
				args = "{}"
			}
			res.ToolCalls = append(res.ToolCalls, llms.ToolCall{
				ID:   values.StringsCoalesce(part.FunctionCall.ID, uuid.NewString()),
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: args,
				},
			})
		case part.Thought:
			// reasoning summary is not a part of the answer
		case part.Text != "":
			buf.WriteString(part.Text)
		default:
			return nil, errors.Wrapf(ErrUnknownPartInResponse, "not text or tool")
		}
	}
	res.Content = buf.String()

	if usage != nil {
		res.Usage.InputTokens = int(usage.PromptTokenCount)
		res.Usage.OutputTokens = int(usage.CandidatesTokenCount + usage.ToolUsePromptTokenCount + usage.ThoughtsTokenCount)
	}
	if res.IsFinal() && res.Content == "" {
		return nil, errors.Wrapf(ErrNoContentInResponse, "finish reason: %s", candidate.FinishReason)
	}
	return res, nil
}

// ConvertMessages converts the conversation to genai contents.
// The system messages are returned separately,
// consecutive tool results are grouped in one user content.
func ConvertMessages(messages []llms.Message) ([]*genai.Content, string, error) {
	history := make([]*genai.Content, 0, len(messages))
	var system []string
	var results *genai.Content

	flushResults := func() {
		if results != nil {
			history = append(history, results)
			results = nil
		}
	}

	for _, msg := range messages {
		if msg.Role != llms.RoleToolResult {
			flushResults()
		}
		switch msg.Role {
		case llms.RoleSystem:
			system = append(system, msg.Content)
		case llms.RoleUser:
			history = append(history, &genai.Content{
				Role:  RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case llms.RoleAssistant:
			c := &genai.Content{Role: RoleModel}
			if msg.Content != "" {
				c.Parts = append(c.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				if tc.FunctionCall == nil {
					continue
				}
				var argsMap map[string]any
				if err := json.Unmarshal([]byte(values.StringsCoalesce(tc.FunctionCall.Arguments, "{}")), &argsMap); err != nil {
					return nil, "", errors.Wrap(err, "googleai: failed to unmarshal tool call arguments")
				}
				c.Parts = append(c.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.FunctionCall.Name,
						Args: argsMap,
					},
				})
			}
			history = append(history, c)
		case llms.RoleToolResult:
			if results == nil {
				results = &genai.Content{Role: RoleUser}
			}
			results.Parts = append(results.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:   msg.ToolCallID,
					Name: msg.Name,
					Response: map[string]any{
						"response": msg.Content,
					},
				},
			})
		default:
			return nil, "", errors.Errorf("googleai: role %v not supported", msg.Role)
		}
	}
	flushResults()

	return history, strings.Join(system, "\n"), nil
}

// ConvertTools converts the tool declarations to genai function declarations,
// all in one genai tool.
func ConvertTools(tools []llms.Tool) []*genai.Tool {
	var decls []*genai.FunctionDeclaration
	for _, tool := range tools {
		if tool.Function == nil {
			continue
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  ConvertSchema(tool.Function.Parameters),
		})
	}
	if len(decls) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ConvertSchema converts a JSON schema of function parameters to genai.Schema
func ConvertSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        ConvertSchemaType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	for _, e := range s.Enum {
		if str, ok := e.(string); ok {
			out.Enum = append(out.Enum, str)
		}
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		out.Properties = make(map[string]*genai.Schema, s.Properties.Len())
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			out.Properties[pair.Key] = ConvertSchema(pair.Value)
			out.PropertyOrdering = append(out.PropertyOrdering, pair.Key)
		}
	}
	if s.Items != nil {
		out.Items = ConvertSchema(s.Items)
	}
	return out
}

// ConvertSchemaType converts a JSON schema type to genai.Type
func ConvertSchemaType(typ string) genai.Type {
	switch typ {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	}
	return genai.TypeUnspecified
}

func markError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		wrapped := errors.Wrapf(err, "googleai: status %d", apiErr.Code)
		// an invalid key is reported as a bad request
		if strings.Contains(strings.ToLower(apiErr.Message), "api key") {
			return errors.Mark(wrapped, llms.ErrAuthentication)
		}
		return llms.MarkStatus(wrapped, apiErr.Code)
	}
	return llms.MarkTransport(errors.Wrap(err, "googleai"))
}
