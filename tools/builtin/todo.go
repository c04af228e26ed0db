package builtin

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/effective-security/toolagent/tools"
)

// Todo priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Todo is an item of the TodoList
type Todo struct {
	Task     string `json:"task"`
	Priority string `json:"priority"`
}

// TodoList is the in-memory todo list,
// it lives until the registry that owns it is closed.
type TodoList struct {
	lock  sync.Mutex
	items []Todo
}

// NewTodoList returns an empty TodoList
func NewTodoList() *TodoList {
	return &TodoList{}
}

// Add appends the item
func (l *TodoList) Add(task, priority string) Todo {
	l.lock.Lock()
	defer l.lock.Unlock()
	item := Todo{Task: task, Priority: priority}
	l.items = append(l.items, item)
	return item
}

// Items returns a copy of the items
func (l *TodoList) Items() []Todo {
	l.lock.Lock()
	defer l.lock.Unlock()
	return slices.Clone(l.items)
}

// Close clears the list
func (l *TodoList) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.items = nil
	return nil
}

// CreateTodo returns the create_todo tool
func CreateTodo(list *TodoList) *tools.Descriptor {
	return &tools.Descriptor{
		Name:        ToolCreateTodo,
		Description: "Create a new todo item.",
		Params: []tools.Param{
			{Name: "task", Type: schema.TypeString, Required: true, Description: "The task description"},
			{
				Name:        "priority",
				Type:        schema.TypeString,
				Description: "Priority level (low, medium, high). Defaults to medium.",
				Enum:        []string{PriorityLow, PriorityMedium, PriorityHigh},
				Default:     PriorityMedium,
			},
		},
		Func: func(_ context.Context, args tools.Args) (string, error) {
			task := strings.TrimSpace(args.String(0))
			if task == "" {
				return "", errors.New("task must not be empty")
			}
			item := list.Add(task, args.String(1))
			return fmt.Sprintf("Created todo: '%s' with priority '%s'", item.Task, item.Priority), nil
		},
	}
}

// ListTodos returns the list_todos tool
func ListTodos(list *TodoList) *tools.Descriptor {
	return &tools.Descriptor{
		Name:        ToolListTodos,
		Description: "List all todo items.",
		Func: func(context.Context, tools.Args) (string, error) {
			items := list.Items()
			if len(items) == 0 {
				return "No todos found.", nil
			}
			var sb strings.Builder
			sb.WriteString("Todo List:\n")
			for i, item := range items {
				fmt.Fprintf(&sb, "%d. %s (Priority: %s)\n", i+1, item.Task, item.Priority)
			}
			return strings.TrimSpace(sb.String()), nil
		},
	}
}
