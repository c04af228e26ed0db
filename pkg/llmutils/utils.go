package llmutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/x/slices"
)

// CleanJSON returns JSON by trimming prefixes and postfixes,
// as LLM can reply like,
// `Here you go: {json}`
func CleanJSON(bs []byte) []byte {
	return trimPostfixAfterJSON(trimPrefixBeforeJSON(bs))
}

// Removes any prefixes before the JSON (like "Sure, here you go:")
func trimPrefixBeforeJSON(bs []byte) []byte {
	startObject := bytes.IndexByte(bs, '{')
	startArray := bytes.IndexByte(bs, '[')

	var start int
	if startObject == -1 && startArray == -1 {
		return bs
	} else if startObject == -1 {
		start = startArray
	} else if startArray == -1 {
		start = startObject
	} else {
		start = min(startObject, startArray)
	}

	return bs[start:]
}

// Removes any postfixes after the JSON
func trimPostfixAfterJSON(bs []byte) []byte {
	endObject := bytes.LastIndexByte(bs, '}')
	endArray := bytes.LastIndexByte(bs, ']')

	var end int
	if endObject == -1 && endArray == -1 {
		return bs
	} else if endObject == -1 {
		end = endArray
	} else if endArray == -1 {
		end = endObject
	} else {
		end = max(endObject, endArray)
	}

	return bs[:end+1]
}

func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

// PrintMessages writes the messages in a human readable form,
// long contents are truncated to maxLen when it is positive.
func PrintMessages(w io.Writer, msgs []llms.Message, maxLen int) {
	for _, msg := range msgs {
		content := msg.Content
		if maxLen > 0 {
			content = slices.StringUpto(content, maxLen)
		}
		switch {
		case msg.Role == llms.RoleToolResult:
			fmt.Fprintf(w, "[%s] %s (%s): %s\n", msg.Role, msg.Name, msg.ToolCallID, content)
		case len(msg.ToolCalls) > 0:
			for _, tc := range msg.ToolCalls {
				fmt.Fprintf(w, "[%s] call %s(%s)\n", msg.Role, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
			}
			if content != "" {
				fmt.Fprintf(w, "[%s] %s\n", msg.Role, content)
			}
		default:
			fmt.Fprintf(w, "[%s] %s\n", msg.Role, content)
		}
	}
}

// CountMessagesContentSize returns the size of the content sent to the model
func CountMessagesContentSize(msgs []llms.Message) uint64 {
	var size uint64
	for _, msg := range msgs {
		size += uint64(len(msg.Content))
		for _, tc := range msg.ToolCalls {
			if tc.FunctionCall != nil {
				size += uint64(len(tc.FunctionCall.Name) + len(tc.FunctionCall.Arguments))
			}
		}
	}
	return size
}

// CountResponseContentSize returns the size of the content received from the model
func CountResponseContentSize(resp *llms.ContentResponse) uint64 {
	if resp == nil {
		return 0
	}
	size := uint64(len(resp.Content))
	for _, tc := range resp.ToolCalls {
		if tc.FunctionCall != nil {
			size += uint64(len(tc.FunctionCall.Name) + len(tc.FunctionCall.Arguments))
		}
	}
	return size
}
