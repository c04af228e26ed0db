package tools

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/tidwall/gjson"
)

// Args is the ordered list of argument values, aligned with Descriptor.Params.
// Values are string, int64, float64 or bool, according to the parameter type,
// or the parameter Default when an optional argument was omitted.
type Args []any

// String returns the string argument at i
func (a Args) String(i int) string {
	s, _ := a.get(i).(string)
	return s
}

// Int returns the integer argument at i
func (a Args) Int(i int) int64 {
	switch v := a.get(i).(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Float returns the number argument at i
func (a Args) Float(i int) float64 {
	switch v := a.get(i).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Bool returns the boolean argument at i
func (a Args) Bool(i int) bool {
	b, _ := a.get(i).(bool)
	return b
}

func (a Args) get(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// DecodeArgs decodes the JSON object provided by the model into ordered Args.
// Unknown fields are ignored.
func (d *Descriptor) DecodeArgs(raw string) (Args, error) {
	bs := llmutils.CleanJSON([]byte(strings.TrimSpace(raw)))
	if len(bs) == 0 {
		bs = []byte("{}")
	}
	if !gjson.ValidBytes(bs) {
		return nil, errors.WithMessagef(chatmodel.ErrFailedUnmarshalInput, "invalid JSON arguments for %s", d.Name)
	}
	root := gjson.ParseBytes(bs)
	if !root.IsObject() {
		return nil, errors.WithMessagef(chatmodel.ErrFailedUnmarshalInput, "arguments for %s must be an object", d.Name)
	}

	fields := make(map[string]gjson.Result)
	root.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = value
		return true
	})

	args := make(Args, len(d.Params))
	for i, p := range d.Params {
		v, ok := fields[p.Name]
		if !ok || v.Type == gjson.Null {
			if p.Required {
				return nil, errors.WithMessagef(chatmodel.ErrFailedUnmarshalInput, "missing required parameter %q", p.Name)
			}
			args[i] = p.Default
			continue
		}
		val, err := convert(p, v)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}
	return args, nil
}

func convert(p Param, v gjson.Result) (any, error) {
	switch p.Type {
	case schema.TypeString:
		if v.Type != gjson.String {
			break
		}
		if len(p.Enum) > 0 && !slices.Contains(p.Enum, v.Str) {
			return nil, errors.WithMessagef(chatmodel.ErrFailedUnmarshalInput,
				"parameter %q must be one of [%s]", p.Name, strings.Join(p.Enum, ", "))
		}
		return v.Str, nil
	case schema.TypeInteger:
		switch v.Type {
		case gjson.Number:
			if v.Num == math.Trunc(v.Num) {
				return int64(v.Num), nil
			}
		case gjson.String:
			if n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64); err == nil {
				return n, nil
			}
		}
	case schema.TypeNumber:
		switch v.Type {
		case gjson.Number:
			return v.Num, nil
		case gjson.String:
			if n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
				return n, nil
			}
		}
	case schema.TypeBoolean:
		switch v.Type {
		case gjson.True, gjson.False:
			return v.Bool(), nil
		case gjson.String:
			if b, err := strconv.ParseBool(strings.TrimSpace(v.Str)); err == nil {
				return b, nil
			}
		}
	}
	return nil, errors.WithMessagef(chatmodel.ErrFailedUnmarshalInput, "parameter %q must be %s", p.Name, p.Type)
}
