package assistants

import (
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/tools"
)

// Formatter builds the model request from the conversation
type Formatter struct {
	registry     *tools.Registry
	systemPrompt string
	callOptions  []llms.CallOption
}

// NewFormatter returns the Formatter with the rendered system prompt
func NewFormatter(registry *tools.Registry, systemPrompt string, callOptions ...llms.CallOption) *Formatter {
	return &Formatter{
		registry:     registry,
		systemPrompt: systemPrompt,
		callOptions:  callOptions,
	}
}

// SystemPrompt returns the system prompt sent ahead of the conversation
func (f *Formatter) SystemPrompt() string {
	return f.systemPrompt
}

// Tools returns the declarations of the registered tools
func (f *Formatter) Tools() []llms.Tool {
	var list []llms.Tool
	for d := range f.registry.List() {
		list = append(list, d.Tool())
	}
	return list
}

// Format returns the messages and the call options for the model request.
func (f *Formatter) Format(conv *chatmodel.Conversation) ([]llms.Message, []llms.CallOption, error) {
	if conv == nil || conv.Len() == 0 {
		return nil, nil, llms.ErrEmptyConversation
	}

	turns := conv.Messages()
	messages := make([]llms.Message, 0, len(turns)+1)
	if f.systemPrompt != "" {
		messages = append(messages, llms.SystemMessage(f.systemPrompt))
	}
	messages = append(messages, turns...)

	opts := make([]llms.CallOption, 0, len(f.callOptions)+1)
	opts = append(opts, f.callOptions...)
	if list := f.Tools(); len(list) > 0 {
		opts = append(opts, llms.WithTools(list))
	}
	return messages, opts, nil
}
