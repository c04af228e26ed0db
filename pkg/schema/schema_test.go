package schema_test

import (
	"testing"

	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var todoParams = []schema.Property{
	{Name: "task", Type: schema.TypeString, Required: true, Description: "The task to add"},
	{Name: "priority", Type: schema.TypeString, Description: "Priority of the task", Enum: []string{"low", "medium", "high"}, Default: "medium"},
}

func TestObject(t *testing.T) {
	t.Parallel()

	s := schema.Object(todoParams...)
	require.NotNil(t, s)

	exp := `{
	"properties": {
		"task": {
			"type": "string",
			"description": "The task to add"
		},
		"priority": {
			"type": "string",
			"enum": [
				"low",
				"medium",
				"high"
			],
			"description": "Priority of the task",
			"default": "medium"
		}
	},
	"type": "object",
	"required": [
		"task"
	]
}`
	assert.Equal(t, exp, schema.String(s))

	// cached
	assert.Same(t, s, schema.Object(todoParams...))
}

func TestObject_NoParams(t *testing.T) {
	t.Parallel()

	s := schema.Object()
	exp := `{
	"properties": {},
	"type": "object"
}`
	assert.Equal(t, exp, schema.String(s))
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, schema.Fingerprint(todoParams), schema.Fingerprint(todoParams))

	other := []schema.Property{todoParams[0]}
	assert.NotEqual(t, schema.Fingerprint(todoParams), schema.Fingerprint(other))

	reordered := []schema.Property{todoParams[1], todoParams[0]}
	assert.NotEqual(t, schema.Fingerprint(todoParams), schema.Fingerprint(reordered))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, schema.Validate(todoParams))
	assert.NoError(t, schema.Validate(nil))

	tcases := []struct {
		props []schema.Property
		err   string
	}{
		{[]schema.Property{{Type: schema.TypeString}}, "parameter name is required"},
		{[]schema.Property{{Name: "a", Type: schema.TypeString}, {Name: "a", Type: schema.TypeNumber}}, "duplicate parameter: a"},
		{[]schema.Property{{Name: "a", Type: "object"}}, `unsupported type "object" for parameter: a`},
		{[]schema.Property{{Name: "a", Type: schema.TypeInteger, Enum: []string{"1"}}}, "enum is supported only for string parameter: a"},
		{[]schema.Property{{Name: "a", Type: schema.TypeString, Enum: []string{"x"}, Default: "y"}}, `default "y" is not in enum for parameter: a`},
	}
	for _, tc := range tcases {
		assert.EqualError(t, schema.Validate(tc.props), tc.err)
	}
}
