package builtin

import (
	"context"

	"time"

	"github.com/effective-security/toolagent/tools"
)

// Clock returns the get_current_time tool
func Clock(now func() time.Time) *tools.Descriptor {
	if now == nil {
		now = time.Now
	}
	return &tools.Descriptor{
		Name:        ToolGetCurrentTime,
		Description: "Get the current date and time.",
		Func: func(context.Context, tools.Args) (string, error) {
			return "Current date and time: " + now().Format(time.DateTime), nil
		},
	}
}
