package tools

import (
	"fmt"
	"strings"

	"github.com/tidwall/sjson"
)

// Error codes of the tool_result payloads
const (
	CodeToolNotFound        = "tool_not_found"
	CodeToolExecutionFailed = "tool_execution_failed"
)

// NotFoundResult returns the tool_result content for a call to unknown tool.
func NotFoundResult(name string, available []string) string {
	js := `{}`
	js, _ = sjson.Set(js, "error", CodeToolNotFound)
	js, _ = sjson.Set(js, "message",
		fmt.Sprintf("Tool `%s` not found. Available tools: %s", name, strings.Join(available, ", ")))
	js, _ = sjson.Set(js, "available", available)
	return js
}

// ErrorResult returns the tool_result content for a failed call.
func ErrorResult(name string, err error) string {
	js := `{}`
	js, _ = sjson.Set(js, "error", CodeToolExecutionFailed)
	js, _ = sjson.Set(js, "tool", name)
	js, _ = sjson.Set(js, "message", fmt.Sprintf("Tool call failed: %s", err.Error()))
	return js
}
