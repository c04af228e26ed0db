// Command toolagent is an interactive chat agent that lets the model
// call a set of local tools.
package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/callbacks"
	"github.com/effective-security/toolagent/console"
	"github.com/effective-security/toolagent/pkg/config"
	"github.com/effective-security/toolagent/pkg/llmfactory"
	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/toolagent/tools/builtin"
	"github.com/effective-security/toolagent/tools/tavily"
	"github.com/effective-security/xlog"
	"github.com/joho/godotenv"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "main")

func main() {
	if err := run(context.Background(), os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "failed to load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	xlog.SetFormatter(xlog.NewStringFormatter(errOut))
	xlog.SetGlobalLogLevel(cfg.Level())

	llm, err := llmfactory.New(cfg.LLMConfig()).ModelByName(cfg.Model)
	if err != nil {
		return errors.WithMessage(err, "failed to create LLM")
	}

	reg, err := newRegistry()
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.KV(xlog.ERROR, "reason", "close_tools", "err", err.Error())
		}
	}()

	scratchpad := callbacks.NewScratchpad(callbacks.ModeDefault)
	handler := callbacks.NewFanout(
		callbacks.NewPackageLogger(logger),
		scratchpad,
	)
	if cfg.Verbose {
		handler.Add(callbacks.NewPrinter(errOut, callbacks.ModeDefault))
	}

	assistant, err := assistants.NewAssistant(llm, reg,
		assistants.WithMaxTokens(cfg.MaxTokens),
		assistants.WithRequestTimeout(cfg.Timeout()),
		assistants.WithMaxToolRounds(cfg.MaxToolRounds),
		assistants.WithSystemPrompt(cfg.SystemPrompt),
		assistants.WithCallback(handler),
	)
	if err != nil {
		return err
	}

	return console.New(assistant, in, out, console.WithScratchpad(scratchpad)).Run(ctx)
}

// newRegistry registers the builtin tools,
// web search uses Tavily when TAVILY_API_KEY is set.
func newRegistry() (*tools.Registry, error) {
	var opts []builtin.Option
	if os.Getenv(tavily.EnvAPIKey) != "" {
		client, err := tavily.New("")
		if err != nil {
			return nil, err
		}
		opts = append(opts, builtin.WithSearcher(client))
		logger.KV(xlog.INFO, "search", "tavily")
	}

	reg := tools.NewRegistry()
	if _, err := builtin.Register(reg, opts...); err != nil {
		return nil, err
	}
	return reg, nil
}
