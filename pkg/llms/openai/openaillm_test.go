package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llms/openai"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const toolCallResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1,
	"model": "gpt-4o",
	"choices": [{
		"index": 0,
		"message": {
			"role": "assistant",
			"content": null,
			"tool_calls": [{
				"id": "call_1",
				"type": "function",
				"function": {"name": "calculate", "arguments": "{\"expression\":\"25*17\"}"}
			}]
		},
		"finish_reason": "tool_calls"
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

const finalResponse = `{
	"id": "chatcmpl-2",
	"object": "chat.completion",
	"created": 1,
	"model": "gpt-4o",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "425"},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 20, "completion_tokens": 1, "total_tokens": 21}
}`

var calcTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        "calculate",
		Description: "Perform mathematical calculations safely.",
		Parameters: schema.Object(schema.Property{
			Name: "expression", Type: schema.TypeString, Required: true,
		}),
	},
}

func newServer(t *testing.T, status int, body string, check func(req gjson.Result)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer testkey", r.Header.Get("Authorization"))

		var raw json.RawMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		if check != nil {
			check(gjson.ParseBytes(raw))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newLLM(t *testing.T, server *httptest.Server) *openai.LLM {
	llm, err := openai.New(
		openai.WithToken("testkey"),
		openai.WithBaseURL(server.URL),
		openai.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return llm
}

func TestNew(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	_, err := openai.New()
	assert.True(t, errors.Is(err, openai.ErrMissingToken))

	llm, err := openai.New(openai.WithToken("key"))
	require.NoError(t, err)
	assert.Equal(t, openai.DefaultModel, llm.GetName())
	assert.Equal(t, llms.ProviderOpenAI, llm.GetProviderType())

	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	llm, err = openai.New(openai.WithToken("key"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", llm.GetName())
}

func TestGenerateContent_ToolCall(t *testing.T) {
	server := newServer(t, http.StatusOK, toolCallResponse, func(req gjson.Result) {
		assert.Equal(t, "gpt-4o", req.Get("model").String())
		assert.Equal(t, "auto", req.Get("tool_choice").String())
		assert.Equal(t, "system", req.Get("messages.0.role").String())
		assert.Equal(t, "user", req.Get("messages.1.role").String())
		assert.Equal(t, "calculate", req.Get("tools.0.function.name").String())
		assert.Equal(t, "object", req.Get("tools.0.function.parameters.type").String())
		assert.Equal(t, "expression", req.Get("tools.0.function.parameters.required.0").String())
	})
	defer server.Close()

	resp, err := newLLM(t, server).GenerateContent(context.Background(),
		[]llms.Message{
			llms.SystemMessage("You are a helpful assistant"),
			llms.UserMessage("what is 25*17?"),
		},
		llms.WithTools([]llms.Tool{calcTool}),
	)
	require.NoError(t, err)
	assert.False(t, resp.IsFinal())
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "calculate", resp.ToolCalls[0].FunctionCall.Name)
	assert.Equal(t, `{"expression":"25*17"}`, resp.ToolCalls[0].FunctionCall.Arguments)
	assert.Equal(t, "tool_calls", resp.StopReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens())
}

func TestGenerateContent_Final(t *testing.T) {
	call := llms.ToolCall{ID: "call_1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "calculate", Arguments: `{"expression":"25*17"}`}}

	server := newServer(t, http.StatusOK, finalResponse, func(req gjson.Result) {
		assert.Equal(t, "gpt-4o-mini", req.Get("model").String())
		assert.Equal(t, "assistant", req.Get("messages.1.role").String())
		assert.Equal(t, "call_1", req.Get("messages.1.tool_calls.0.id").String())
		assert.Equal(t, "calculate", req.Get("messages.1.tool_calls.0.function.name").String())
		assert.Equal(t, "tool", req.Get("messages.2.role").String())
		assert.Equal(t, "call_1", req.Get("messages.2.tool_call_id").String())
		assert.Equal(t, "The result of 25*17 is 425", req.Get("messages.2.content").String())
		assert.False(t, req.Get("tool_choice").Exists())
	})
	defer server.Close()

	resp, err := newLLM(t, server).GenerateContent(context.Background(),
		[]llms.Message{
			llms.UserMessage("what is 25*17?"),
			llms.AssistantMessage("", call),
			llms.ToolResultMessage(call, "The result of 25*17 is 425"),
		},
		llms.WithModel("gpt-4o-mini"),
	)
	require.NoError(t, err)
	assert.True(t, resp.IsFinal())
	assert.Equal(t, "425", resp.Content)
}

func TestGenerateContent_Errors(t *testing.T) {
	ctx := context.Background()
	msgs := []llms.Message{llms.UserMessage("hi")}

	_, err := (&openai.LLM{}).GenerateContent(ctx, nil)
	assert.True(t, errors.Is(err, llms.ErrEmptyConversation))

	tcases := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"auth", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`, llms.ErrAuthentication},
		{"throttled", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`, llms.ErrNetwork},
		{"server", http.StatusInternalServerError, `oops`, llms.ErrNetwork},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"Invalid schema","type":"invalid_request_error"}}`, llms.ErrProvider},
		{"malformed", http.StatusOK, `not json`, llms.ErrProvider},
		{"no choices", http.StatusOK, `{"id":"x","choices":[]}`, llms.ErrProvider},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			server := newServer(t, tc.status, tc.body, nil)
			defer server.Close()

			_, err := newLLM(t, server).GenerateContent(ctx, msgs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "unexpected kind %s: %v", llms.ErrorKind(err), err)
		})
	}

	t.Run("network", func(t *testing.T) {
		server := newServer(t, http.StatusOK, finalResponse, nil)
		llm := newLLM(t, server)
		server.Close()

		_, err := llm.GenerateContent(ctx, msgs)
		require.Error(t, err)
		assert.True(t, errors.Is(err, llms.ErrNetwork), "unexpected kind %s: %v", llms.ErrorKind(err), err)
	})
}
