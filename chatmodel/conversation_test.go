package chatmodel_test

import (
	"testing"

	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestConversation(t *testing.T) {
	t.Parallel()

	conv := chatmodel.NewConversation()
	assert.Equal(t, 0, conv.Len())
	_, ok := conv.Last()
	assert.False(t, ok)

	call := llms.ToolCall{ID: "1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "get_weather", Arguments: `{"location":"Paris"}`}}
	conv.Append(llms.UserMessage("weather in Paris?"))
	conv.Append(llms.AssistantMessage("", call), llms.ToolResultMessage(call, "sunny"))

	exp := []llms.Message{
		{Role: llms.RoleUser, Content: "weather in Paris?"},
		{Role: llms.RoleAssistant, ToolCalls: []llms.ToolCall{call}},
		{Role: llms.RoleToolResult, Content: "sunny", ToolCallID: "1", Name: "get_weather"},
	}
	if diff := cmp.Diff(exp, conv.Messages()); diff != "" {
		t.Errorf("unexpected messages (-want +got):\n%s", diff)
	}

	// returned slice is a copy
	msgs := conv.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "weather in Paris?", conv.Messages()[0].Content)

	last, ok := conv.Last()
	assert.True(t, ok)
	assert.Equal(t, llms.RoleToolResult, last.Role)

	conv.Truncate(10)
	assert.Equal(t, 3, conv.Len())

	conv.Truncate(1)
	assert.Equal(t, 1, conv.Len())
	if diff := cmp.Diff(exp[:1], conv.Messages()); diff != "" {
		t.Errorf("unexpected messages (-want +got):\n%s", diff)
	}

	conv.Reset()
	assert.Equal(t, 0, conv.Len())
}
