package builtin

import (
	"context"
	"time"

	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "builtin")

// Tool names
const (
	ToolGetWeather     = "get_weather"
	ToolCalculate      = "calculate"
	ToolGetCurrentTime = "get_current_time"
	ToolSearchWeb      = "search_web"
	ToolCreateTodo     = "create_todo"
	ToolListTodos      = "list_todos"
)

// Searcher performs a web search and returns the result as text
type Searcher interface {
	SearchText(ctx context.Context, query string) (string, error)
}

// Option configures the builtin tools
type Option func(*options)

type options struct {
	now      func() time.Time
	searcher Searcher
}

// WithClock sets the clock used by get_current_time
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithSearcher sets the backend of search_web,
// the mock search is used when not set.
func WithSearcher(s Searcher) Option {
	return func(o *options) {
		o.searcher = s
	}
}

// Register adds the builtin tools to the registry.
// The todo list is owned by the registry and cleared on its Close.
func Register(reg *tools.Registry, opts ...Option) (*TodoList, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	todos := NewTodoList()
	list := []*tools.Descriptor{
		Weather(),
		Calculator(),
		Clock(o.now),
		Search(o.searcher),
		CreateTodo(todos),
		ListTodos(todos),
	}
	for _, d := range list {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	reg.OnClose(todos.Close)

	logger.KV(xlog.DEBUG, "status", "registered", "tools", len(list), "real_search", o.searcher != nil)
	return todos, nil
}
