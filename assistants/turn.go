package assistants

import (
	"context"
	"time"

	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/metricskey"
)

// Turn is one user turn over the conversation.
// It keeps the rollback point and counts the tool rounds,
// the caller drives it with Dispatch and ResolveToolCalls
// until Dispatch returns the final answer or an error.
type Turn struct {
	a        *Assistant
	conv     *chatmodel.Conversation
	userTurn int
	round    int
	pending  []llms.ToolCall
	started  time.Time
}

// BeginTurn appends the user input to the conversation and returns the Turn
func (a *Assistant) BeginTurn(conv *chatmodel.Conversation, input string) *Turn {
	conv.Append(llms.UserMessage(input))
	return &Turn{
		a:        a,
		conv:     conv,
		userTurn: conv.Len(),
		started:  time.Now(),
	}
}

// Dispatch sends the conversation to the model.
// It returns the answer and true for the final response,
// otherwise the requested tool calls are pending for ResolveToolCalls.
// On error the conversation is truncated back to the user input.
func (t *Turn) Dispatch(ctx context.Context) (string, bool, error) {
	resp, err := t.a.Dispatch(ctx, t.conv)
	if err == nil && !resp.IsFinal() {
		err = t.a.CheckToolRounds(ctx, t.round)
	}
	if err != nil {
		t.conv.Truncate(t.userTurn)
		t.pending = nil
		t.done()
		return "", false, err
	}
	if resp.IsFinal() {
		t.done()
		return resp.Content, true, nil
	}
	t.pending = resp.ToolCalls
	return "", false, nil
}

// ResolveToolCalls runs the pending tool calls and appends the results
// to the conversation.
func (t *Turn) ResolveToolCalls(ctx context.Context) {
	t.conv.Append(t.a.ResolveToolCalls(ctx, t.pending)...)
	t.pending = nil
	t.round++
}

// Pending returns the tool calls requested by the last response
func (t *Turn) Pending() []llms.ToolCall {
	return t.pending
}

// Rounds returns the number of resolved tool rounds
func (t *Turn) Rounds() int {
	return t.round
}

func (t *Turn) done() {
	metricskey.PerfTurn.MeasureSince(t.started, t.a.LLM.GetName())
}
