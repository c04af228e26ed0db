package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/tools"
)

var TimeNowFn = time.Now

// RunStats is the summary of one chat session
type RunStats struct {
	ChatID string
	Turns  uint64

	Duration         time.Duration
	TotalMessages    uint32
	LLMBytesOut      uint64
	LLMBytesIn       uint64
	LLMInputTokens   uint64
	LLMOutputTokens  uint64
	LLMTotalTokens   uint64
	LLMCalls         uint32
	LLMCallsFailed   uint32
	ToolsCalls       uint32
	ToolsCallsFailed uint32
	ToolNotFound     uint32
}

// Scratchpad is a callback handler that collects the trace and the stats
// of the chat sessions, keyed by the chat ID of the context.
type Scratchpad struct {
	runs map[string]*run
	mode Mode
	lock sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs: make(map[string]*run),
		mode: mode,
	}
}

// StartRun starts collecting for the chat of the context,
// it is no-op if the context has no ChatContext.
func (l *Scratchpad) StartRun(ctx context.Context) {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return
	}

	r := &run{
		stats: RunStats{
			ChatID: chatCtx.GetChatID(),
		},
		chatCtx: chatCtx,
		started: time.Now(),
	}

	l.lock.Lock()
	l.runs[chatCtx.GetChatID()] = r
	l.lock.Unlock()

	r.print("*** Run Started ***")
}

// EndRun stops collecting for the chat of the context,
// and returns the stats and the trace.
func (l *Scratchpad) EndRun(ctx context.Context) (*RunStats, []byte) {
	run := l.getRun(ctx)
	if run == nil {
		return nil, nil
	}

	stats := run.stats
	stats.Duration = time.Since(run.started)
	stats.Turns = run.chatCtx.Turn()

	run.print(fmt.Sprintf("LLM calls: %d, Failed: %d, Messages: %d, Bytes Out: %d, Bytes In: %d",
		stats.LLMCalls,
		stats.LLMCallsFailed,
		stats.TotalMessages,
		stats.LLMBytesOut,
		stats.LLMBytesIn,
	))
	run.print(fmt.Sprintf("Tokens: Input: %d, Output: %d, Total: %d",
		stats.LLMInputTokens,
		stats.LLMOutputTokens,
		stats.LLMTotalTokens,
	))
	run.print(fmt.Sprintf("Tool calls: %d, Failed: %d, Not Found: %d",
		stats.ToolsCalls,
		stats.ToolsCallsFailed,
		stats.ToolNotFound,
	))
	run.print(fmt.Sprintf("*** Run Ended. Turns: %d, Duration: %s ***", stats.Turns, stats.Duration))

	l.lock.Lock()
	delete(l.runs, run.chatCtx.GetChatID())
	l.lock.Unlock()

	return &stats, run.w.Bytes()
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[chatID]
}

func (l *Scratchpad) OnLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesOut, llmutils.CountMessagesContentSize(payload))
	atomic.AddUint32(&run.stats.LLMCalls, 1)
	count := uint32(len(payload))
	atomic.AddUint32(&run.stats.TotalMessages, count)

	run.print("*** LLM Call ***", fmt.Sprintf("%s model, %d messages", llm.GetName(), count))
	if l.mode == ModeVerbose {
		var buf bytes.Buffer
		llmutils.PrintMessages(&buf, payload, 256)
		run.print(buf.String())
	}
}

func (l *Scratchpad) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesIn, llmutils.CountResponseContentSize(resp))
	atomic.AddUint64(&run.stats.LLMInputTokens, uint64(resp.Usage.InputTokens))
	atomic.AddUint64(&run.stats.LLMOutputTokens, uint64(resp.Usage.OutputTokens))
	atomic.AddUint64(&run.stats.LLMTotalTokens, uint64(resp.Usage.TotalTokens()))

	run.print("*** LLM Call End ***", fmt.Sprintf("%s model, %d input tokens, %d output tokens, %d tool calls",
		llm.GetName(), resp.Usage.InputTokens, resp.Usage.OutputTokens, len(resp.ToolCalls)))
}

func (l *Scratchpad) OnLLMCallError(ctx context.Context, llm llms.Model, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.LLMCallsFailed, 1)
	run.print("*** LLM Call Error ***", llms.ErrorKind(err), err.Error())
}

func (l *Scratchpad) OnToolStart(ctx context.Context, tool *tools.Descriptor, input string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCalls, 1)
	run.print(tool.Name, "*** Tool Start ***")
	run.print(tool.Name, "Input:", input)
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, tool *tools.Descriptor, input string, output string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	if l.mode == ModeVerbose {
		run.print(tool.Name, "Output:", output)
	}
	run.print(tool.Name, "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, tool *tools.Descriptor, input string, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsFailed, 1)
	run.print(tool.Name, "*** Tool Error ***", err.Error())
}

func (l *Scratchpad) OnToolNotFound(ctx context.Context, tool string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolNotFound, 1)
	run.print("*** Tool Not Found ***", tool)
}

type run struct {
	chatCtx chatmodel.ChatContext
	w       bytes.Buffer
	started time.Time
	lock    sync.Mutex
	stats   RunStats
}

// print writes the entries to the run's output.
// The entries are written in the following format:
// [timestamp chatID.turn] entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	now := TimeNowFn()
	ts := now.Format(time.DateTime)

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.chatCtx.GetChatID())
	_, _ = r.w.WriteString(".")
	_, _ = r.w.WriteString(strconv.FormatUint(r.chatCtx.Turn(), 10))
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
