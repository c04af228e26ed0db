package tools

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/invopop/jsonschema"
)

// Param describes one positional parameter of a tool
type Param = schema.Property

// Func is the tool callback, args are ordered as the descriptor Params.
type Func func(ctx context.Context, args Args) (string, error)

// Descriptor is the static declaration of a tool.
// It must not be modified after registration.
type Descriptor struct {
	// Name is the unique name of the tool, as seen by the model.
	Name string
	// Description is used in the prompt, should not exceed the model limit.
	Description string
	// Params is the ordered list of parameters.
	Params []Param
	// Func is invoked with the decoded arguments.
	Func Func
}

// Validate returns error if the descriptor can not be registered
func (d *Descriptor) Validate() error {
	if d == nil {
		return errors.Mark(errors.New("descriptor is nil"), ErrInvalidDescriptor)
	}
	if d.Name == "" {
		return errors.Mark(errors.New("tool name is required"), ErrInvalidDescriptor)
	}
	if d.Func == nil {
		return errors.Mark(errors.Newf("tool %s: callback is required", d.Name), ErrInvalidDescriptor)
	}
	if err := schema.Validate(d.Params); err != nil {
		return errors.Mark(errors.Wrapf(err, "tool %s", d.Name), ErrInvalidDescriptor)
	}
	return nil
}

// Schema returns the JSON schema of the parameters.
func (d *Descriptor) Schema() *jsonschema.Schema {
	return schema.Object(d.Params...)
}

// Tool returns the function declaration sent to the model.
func (d *Descriptor) Tool() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Schema(),
		},
	}
}

// Invoke decodes the raw JSON arguments and calls the tool.
// Both decoding and callback failures are marked with ErrToolExecution.
func (d *Descriptor) Invoke(ctx context.Context, raw string) (string, error) {
	args, err := d.DecodeArgs(raw)
	if err != nil {
		return "", errors.Mark(err, ErrToolExecution)
	}
	out, err := d.Func(ctx, args)
	if err != nil {
		return "", errors.Mark(err, ErrToolExecution)
	}
	return out, nil
}
