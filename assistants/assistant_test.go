package assistants_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/mocks/mockllms"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/prompts"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/toolagent/tools/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/mock/gomock"
)

type recorder struct {
	events []string
}

func (r *recorder) OnLLMCallStart(_ context.Context, _ llms.Model, payload []llms.Message) {
	r.events = append(r.events, "llm_start")
}

func (r *recorder) OnLLMCallEnd(_ context.Context, _ llms.Model, resp *llms.ContentResponse) {
	r.events = append(r.events, "llm_end")
}

func (r *recorder) OnLLMCallError(_ context.Context, _ llms.Model, err error) {
	r.events = append(r.events, "llm_error:"+llms.ErrorKind(err))
}

func (r *recorder) OnToolStart(_ context.Context, tool *tools.Descriptor, input string) {
	r.events = append(r.events, "tool_start:"+tool.Name)
}

func (r *recorder) OnToolEnd(_ context.Context, tool *tools.Descriptor, input string, output string) {
	r.events = append(r.events, "tool_end:"+tool.Name)
}

func (r *recorder) OnToolError(_ context.Context, tool *tools.Descriptor, input string, err error) {
	r.events = append(r.events, "tool_error:"+tool.Name)
}

func (r *recorder) OnToolNotFound(_ context.Context, tool string) {
	r.events = append(r.events, "tool_not_found:"+tool)
}

func toolCall(id, name, args string) llms.ToolCall {
	return llms.ToolCall{ID: id, Type: "function", FunctionCall: &llms.FunctionCall{Name: name, Arguments: args}}
}

func newAssistant(t *testing.T, ctrl *gomock.Controller, opts ...assistants.Option) (*assistants.Assistant, *mockllms.MockModel, *tools.Registry) {
	reg := tools.NewRegistry()
	_, err := builtin.Register(reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	llm := mockllms.NewMockModel(ctrl)
	llm.EXPECT().GetName().Return("mock-model").AnyTimes()

	a, err := assistants.NewAssistant(llm, reg, opts...)
	require.NoError(t, err)
	return a, llm, reg
}

func TestRun_ToolCallThenFinal(t *testing.T) {
	ctrl := gomock.NewController(t)
	cb := &recorder{}
	a, llm, _ := newAssistant(t, ctrl, assistants.WithCallback(cb), assistants.WithMaxTokens(256))

	gomock.InOrder(
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, msgs []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
				require.Len(t, msgs, 2)
				assert.Equal(t, llms.RoleSystem, msgs[0].Role)
				assert.Equal(t, prompts.DefaultSystemPrompt, msgs[0].Content)
				assert.Equal(t, "what is 25*17?", msgs[1].Content)

				o := llms.NewCallOptions(opts...)
				assert.Equal(t, 256, o.MaxTokens)
				require.Len(t, o.Tools, 6)
				assert.Equal(t, builtin.ToolGetWeather, o.Tools[0].Function.Name)
				return &llms.ContentResponse{
					ToolCalls:  []llms.ToolCall{toolCall("c1", builtin.ToolCalculate, `{"expression":"25*17"}`)},
					StopReason: "tool_calls",
				}, nil
			}),
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				require.Len(t, msgs, 4)
				assert.Equal(t, llms.RoleToolResult, msgs[3].Role)
				assert.Equal(t, "c1", msgs[3].ToolCallID)
				assert.Equal(t, "The result of 25*17 is 425", msgs[3].Content)
				return &llms.ContentResponse{Content: "425", StopReason: "stop"}, nil
			}),
	)

	conv := chatmodel.NewConversation()
	answer, err := a.Run(context.Background(), conv, "what is 25*17?")
	require.NoError(t, err)
	assert.Equal(t, "425", answer)

	msgs := conv.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, llms.RoleUser, msgs[0].Role)
	assert.Equal(t, llms.RoleAssistant, msgs[1].Role)
	assert.Equal(t, llms.RoleToolResult, msgs[2].Role)
	assert.Equal(t, llms.AssistantMessage("425"), msgs[3])

	assert.Equal(t, []string{
		"llm_start", "llm_end",
		"tool_start:calculate", "tool_end:calculate",
		"llm_start", "llm_end",
	}, cb.events)
}

func TestResolveToolCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	cb := &recorder{}
	a, _, reg := newAssistant(t, ctrl, assistants.WithCallback(cb))

	called := false
	reg.MustRegister(&tools.Descriptor{
		Name:        "explode",
		Description: "always fails",
		Params:      []tools.Param{{Name: "reason", Type: schema.TypeString}},
		Func: func(context.Context, tools.Args) (string, error) {
			called = true
			return "", errors.New("boom")
		},
	})

	results := a.ResolveToolCalls(context.Background(), []llms.ToolCall{
		toolCall("c1", "teleport", `{"to":"Mars"}`),
		toolCall("c2", "explode", `{}`),
		toolCall("c3", builtin.ToolGetWeather, `{"location":"Paris"}`),
	})
	require.Len(t, results, 3)

	notFound := gjson.Parse(results[0].Content)
	assert.Equal(t, "c1", results[0].ToolCallID)
	assert.Equal(t, tools.CodeToolNotFound, notFound.Get("error").String())
	assert.Contains(t, notFound.Get("message").String(), "Tool `teleport` not found")
	assert.Equal(t, builtin.ToolGetWeather, notFound.Get("available.0").String())

	failed := gjson.Parse(results[1].Content)
	assert.True(t, called)
	assert.Equal(t, tools.CodeToolExecutionFailed, failed.Get("error").String())
	assert.Contains(t, failed.Get("message").String(), "boom")

	assert.Equal(t, "c3", results[2].ToolCallID)
	assert.Contains(t, results[2].Content, "Paris")

	assert.Equal(t, []string{
		"tool_not_found:teleport",
		"tool_start:explode", "tool_error:explode",
		"tool_start:get_weather", "tool_end:get_weather",
	}, cb.events)
}

func TestResolveToolCalls_NoFunction(t *testing.T) {
	ctrl := gomock.NewController(t)
	cb := &recorder{}
	a, _, _ := newAssistant(t, ctrl, assistants.WithCallback(cb))

	var results []llms.Message
	require.NotPanics(t, func() {
		results = a.ResolveToolCalls(context.Background(), []llms.ToolCall{{ID: "x", Type: "function"}})
	})
	require.Len(t, results, 1)
	assert.Equal(t, llms.RoleToolResult, results[0].Role)
	assert.Equal(t, "x", results[0].ToolCallID)
	assert.Empty(t, results[0].Name)

	res := gjson.Parse(results[0].Content)
	assert.Equal(t, tools.CodeToolNotFound, res.Get("error").String())
	assert.Equal(t, builtin.ToolGetWeather, res.Get("available.0").String())
	assert.Equal(t, []string{"tool_not_found:"}, cb.events)
}

func TestRun_NetworkFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	cb := &recorder{}
	a, llm, _ := newAssistant(t, ctrl, assistants.WithCallback(cb))

	conv := chatmodel.NewConversation()
	conv.Append(llms.UserMessage("hi"), llms.AssistantMessage("hello"))

	gomock.InOrder(
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llms.ContentResponse{
				ToolCalls: []llms.ToolCall{toolCall("c1", builtin.ToolGetCurrentTime, `{}`)},
			}, nil),
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.Mark(errors.New("connection reset"), llms.ErrNetwork)),
	)

	_, err := a.Run(context.Background(), conv, "what time is it?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, llms.ErrNetwork))
	assert.Contains(t, err.Error(), "failed to generate content from LLM")

	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, llms.UserMessage("what time is it?"), msgs[2])
	assert.Equal(t, "llm_error:network", cb.events[len(cb.events)-1])
}

func TestRun_ToolRoundsExceeded(t *testing.T) {
	ctrl := gomock.NewController(t)
	a, llm, _ := newAssistant(t, ctrl, assistants.WithMaxToolRounds(2))

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{
			ToolCalls: []llms.ToolCall{toolCall("c1", builtin.ToolListTodos, `{}`)},
		}, nil).Times(3)

	conv := chatmodel.NewConversation()
	_, err := a.Run(context.Background(), conv, "loop forever")
	require.Error(t, err)
	assert.True(t, errors.Is(err, assistants.ErrToolRoundsExceeded))
	assert.Equal(t, 1, conv.Len())
}

func TestDispatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	a, llm, _ := newAssistant(t, ctrl,
		assistants.WithRequestTimeout(time.Second),
		assistants.WithSystemPrompt("You are {{ .Model }} with {{ len .Tools }} tools."),
	)
	assert.Equal(t, "You are mock-model with 6 tools.", a.Formatter().SystemPrompt())
	assert.Equal(t, time.Second, a.Config().RequestTimeout)
	assert.Equal(t, assistants.DefaultMaxToolRounds, a.Config().MaxToolRounds)

	_, err := a.Dispatch(context.Background(), chatmodel.NewConversation())
	assert.True(t, errors.Is(err, llms.ErrEmptyConversation))

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
			return nil, nil
		})

	conv := chatmodel.NewConversation()
	conv.Append(llms.UserMessage("hi"))
	_, err = a.Dispatch(context.Background(), conv)
	require.Error(t, err)
	assert.True(t, errors.Is(err, llms.ErrProvider))
	assert.Equal(t, 1, conv.Len())

	_, err = assistants.NewAssistant(llm, tools.NewRegistry(), assistants.WithSystemPrompt("{{ .Model"))
	assert.ErrorContains(t, err, "invalid system prompt template")
}

func TestFormatter(t *testing.T) {
	reg := tools.NewRegistry()
	f := assistants.NewFormatter(reg, "", llms.WithModel("m1"))

	_, _, err := f.Format(nil)
	assert.True(t, errors.Is(err, llms.ErrEmptyConversation))

	conv := chatmodel.NewConversation()
	conv.Append(llms.UserMessage("hi"))
	msgs, opts, err := f.Format(conv)
	require.NoError(t, err)
	assert.Equal(t, []llms.Message{llms.UserMessage("hi")}, msgs)
	o := llms.NewCallOptions(opts...)
	assert.Equal(t, "m1", o.Model)
	assert.Empty(t, o.Tools)
}

func TestTurn(t *testing.T) {
	ctrl := gomock.NewController(t)
	a, llm, _ := newAssistant(t, ctrl, assistants.WithMaxToolRounds(1))

	gomock.InOrder(
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llms.ContentResponse{
				ToolCalls: []llms.ToolCall{toolCall("c1", builtin.ToolCalculate, `{"expression":"2+2"}`)},
			}, nil),
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llms.ContentResponse{Content: "4"}, nil),
	)

	ctx := context.Background()
	conv := chatmodel.NewConversation()
	turn := a.BeginTurn(conv, "2+2?")
	assert.Equal(t, 1, conv.Len())

	answer, final, err := turn.Dispatch(ctx)
	require.NoError(t, err)
	assert.False(t, final)
	assert.Empty(t, answer)
	require.Len(t, turn.Pending(), 1)
	assert.Equal(t, "c1", turn.Pending()[0].ID)

	turn.ResolveToolCalls(ctx)
	assert.Empty(t, turn.Pending())
	assert.Equal(t, 1, turn.Rounds())
	assert.Equal(t, 3, conv.Len())

	answer, final, err = turn.Dispatch(ctx)
	require.NoError(t, err)
	assert.True(t, final)
	assert.Equal(t, "4", answer)
	assert.Equal(t, 4, conv.Len())
}

func TestTurn_RoundsExceededRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	a, llm, _ := newAssistant(t, ctrl, assistants.WithMaxToolRounds(1))

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{
			ToolCalls: []llms.ToolCall{toolCall("c1", builtin.ToolGetCurrentTime, `{}`)},
		}, nil).Times(2)

	ctx := context.Background()
	conv := chatmodel.NewConversation()
	conv.Append(llms.UserMessage("hi"), llms.AssistantMessage("hello"))
	turn := a.BeginTurn(conv, "what time is it?")

	_, final, err := turn.Dispatch(ctx)
	require.NoError(t, err)
	assert.False(t, final)
	turn.ResolveToolCalls(ctx)

	_, final, err = turn.Dispatch(ctx)
	require.Error(t, err)
	assert.False(t, final)
	assert.True(t, errors.Is(err, assistants.ErrToolRoundsExceeded))
	assert.Empty(t, turn.Pending())
	assert.Equal(t, 3, conv.Len())
	assert.Equal(t, llms.UserMessage("what time is it?"), conv.Messages()[2])
}
