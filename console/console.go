package console

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dimiro1/banner"
	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/callbacks"
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "console")

const (
	// Prompt is printed before reading the user input
	Prompt = "You: "
	// Goodbye is printed when the session ends
	Goodbye = "Goodbye!"
)

var bannerTemplate = "🤖 Tool Calling LLM Agent\n" +
	strings.Repeat("=", 50) + "\n" +
	"Type 'help' for available commands, 'exit' or 'quit' to end the session\n"

// Console is the interactive chat loop.
// It owns the conversation for the duration of Run.
type Console struct {
	assistant  *assistants.Assistant
	in         *bufio.Reader
	out        io.Writer
	conv       *chatmodel.Conversation
	chatCtx    chatmodel.ChatContext
	scratchpad *callbacks.Scratchpad

	state State
	turn  *assistants.Turn

	answer string
}

// Option configures the Console
type Option func(*Console)

// WithScratchpad collects the session stats, logged when the session ends
func WithScratchpad(sp *callbacks.Scratchpad) Option {
	return func(c *Console) {
		c.scratchpad = sp
	}
}

// WithChatID sets the chat ID of the session, a new one is generated by default
func WithChatID(chatID string) Option {
	return func(c *Console) {
		c.chatCtx = chatmodel.NewChatContext(chatID)
	}
}

// New returns the Console reading the user input from in,
// and printing to out.
func New(assistant *assistants.Assistant, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		assistant: assistant,
		in:        bufio.NewReader(in),
		out:       out,
		conv:      chatmodel.NewConversation(),
		state:     AwaitingInput,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.chatCtx == nil {
		c.chatCtx = chatmodel.NewChatContext("")
	}
	return c
}

// State returns the current state of the loop
func (c *Console) State() State {
	return c.state
}

// Conversation returns the conversation of the session
func (c *Console) Conversation() *chatmodel.Conversation {
	return c.conv
}

// ChatID returns the chat ID of the session
func (c *Console) ChatID() string {
	return c.chatCtx.GetChatID()
}

// Run prints the banner and runs the loop until the session is terminated.
// It returns an error only if the input can not be read.
func (c *Console) Run(ctx context.Context) error {
	ctx = chatmodel.WithChatContext(ctx, c.chatCtx)

	c.printBanner()
	if c.scratchpad != nil {
		c.scratchpad.StartRun(ctx)
		defer c.endRun(ctx)
	}

	logger.ContextKV(ctx, xlog.INFO,
		"status", "started",
		"chat_id", c.chatCtx.GetChatID(),
		"model", c.assistant.LLM.GetName(),
		"tools", c.assistant.Registry().Len(),
	)

	for c.state != Terminated {
		if err := c.step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) step(ctx context.Context) error {
	switch c.state {
	case AwaitingInput:
		return c.readInput(ctx)
	case Dispatching:
		c.dispatch(ctx)
	case AwaitingToolResult:
		c.resolveToolCalls(ctx)
	case Printing:
		fmt.Fprintf(c.out, "Agent: %s\n", c.answer)
		c.answer = ""
		c.turn = nil
		c.state = AwaitingInput
	}
	return nil
}

func (c *Console) readInput(ctx context.Context) error {
	fmt.Fprint(c.out, "\n"+Prompt)

	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		c.state = Terminated
		return errors.Wrap(err, "failed to read input")
	}
	if err != nil && strings.TrimSpace(line) == "" {
		fmt.Fprintln(c.out, "\n"+Goodbye)
		c.state = Terminated
		return nil
	}

	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "":
		return nil
	case "exit", "quit":
		fmt.Fprintln(c.out, Goodbye)
		c.state = Terminated
		return nil
	case "help":
		c.printHelp()
		return nil
	}

	turn := c.chatCtx.NextTurn()
	logger.ContextKV(ctx, xlog.DEBUG,
		"chat_id", c.chatCtx.GetChatID(),
		"turn", turn,
		"input", slices.StringUpto(line, 64),
	)

	c.turn = c.assistant.BeginTurn(c.conv, line)
	c.state = Dispatching
	return nil
}

func (c *Console) dispatch(ctx context.Context) {
	answer, final, err := c.turn.Dispatch(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(c.out, "Error: %s\n", err.Error())
		c.turn = nil
		c.state = AwaitingInput
	case final:
		c.answer = answer
		c.state = Printing
	default:
		c.state = AwaitingToolResult
	}
}

func (c *Console) resolveToolCalls(ctx context.Context) {
	c.turn.ResolveToolCalls(ctx)
	c.state = Dispatching
}

func (c *Console) printBanner() {
	banner.Init(c.out, true, false, bytes.NewBufferString(bannerTemplate))
}

func (c *Console) printHelp() {
	var b strings.Builder
	b.WriteString("Available tools:\n")
	for d := range c.assistant.Registry().List() {
		fmt.Fprintf(&b, "  - %s: %s\n", d.Name, d.Description)
	}
	b.WriteString("\nCommands:\n")
	b.WriteString("  - help: show this message\n")
	b.WriteString("  - exit, quit: end the session\n")
	fmt.Fprint(c.out, b.String())
}

func (c *Console) endRun(ctx context.Context) {
	stats, _ := c.scratchpad.EndRun(ctx)
	if stats == nil {
		return
	}
	logger.ContextKV(ctx, xlog.INFO,
		"status", "ended",
		"chat_id", stats.ChatID,
		"turns", stats.Turns,
		"duration", stats.Duration.String(),
		"llm_calls", stats.LLMCalls,
		"llm_calls_failed", stats.LLMCallsFailed,
		"tokens", stats.LLMTotalTokens,
		"tool_calls", stats.ToolsCalls,
		"tool_calls_failed", stats.ToolsCallsFailed,
		"tool_not_found", stats.ToolNotFound,
	)
}
