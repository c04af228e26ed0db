package prompts

import (
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

// DefaultSystemPrompt is used when no system prompt is configured
const DefaultSystemPrompt = "You are a helpful assistant that can call various tools to help users. " +
	"Use the available tools when appropriate to provide accurate and helpful responses."

// ToolInfo describes a tool available to the model
type ToolInfo struct {
	Name        string
	Description string
}

// SystemPromptData is the data available to the system prompt template:
//
//	{{ .Model }}, {{ .Now }}, {{ range .Tools }}{{ .Name }}{{ end }}
//
// and the sprig functions.
type SystemPromptData struct {
	Model string
	Now   time.Time
	Tools []ToolInfo
}

// SystemPromptTemplate renders the system prompt
type SystemPromptTemplate struct {
	tmpl *template.Template
}

// NewSystemPromptTemplate parses the template text,
// empty text means DefaultSystemPrompt.
func NewSystemPromptTemplate(text string) (*SystemPromptTemplate, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultSystemPrompt
	}
	tmpl, err := template.New("system").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "invalid system prompt template")
	}
	return &SystemPromptTemplate{tmpl: tmpl}, nil
}

// Format returns the rendered prompt
func (t *SystemPromptTemplate) Format(data SystemPromptData) (string, error) {
	var buf strings.Builder
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "failed to render system prompt")
	}
	return strings.TrimSpace(buf.String()), nil
}
