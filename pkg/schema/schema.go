package schema

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Type is the JSON type of a parameter
type Type string

// Supported parameter types
const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
)

// IsValid returns true for the supported types
func (t Type) IsValid() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean:
		return true
	}
	return false
}

// Property describes one named parameter of a function
type Property struct {
	Name        string
	Type        Type
	Required    bool
	Description string
	// Enum restricts string values, optional
	Enum []string
	// Default is used when an optional parameter is omitted
	Default any
}

var (
	cache   = make(map[uint64]*jsonschema.Schema)
	cacheMu sync.RWMutex
)

// Validate checks the property list:
// names must be unique and not empty, types must be supported,
// and a string default must be one of Enum values when Enum is set.
func Validate(props []Property) error {
	seen := make(map[string]struct{}, len(props))
	for _, p := range props {
		if p.Name == "" {
			return errors.New("parameter name is required")
		}
		if _, ok := seen[p.Name]; ok {
			return errors.Newf("duplicate parameter: %s", p.Name)
		}
		seen[p.Name] = struct{}{}

		if !p.Type.IsValid() {
			return errors.Newf("unsupported type %q for parameter: %s", p.Type, p.Name)
		}
		if len(p.Enum) > 0 {
			if p.Type != TypeString {
				return errors.Newf("enum is supported only for string parameter: %s", p.Name)
			}
			if d, ok := p.Default.(string); ok && !slices.Contains(p.Enum, d) {
				return errors.Newf("default %q is not in enum for parameter: %s", d, p.Name)
			}
		}
	}
	return nil
}

// Fingerprint returns a hash of the property list,
// two lists with the same fingerprint produce the same schema.
func Fingerprint(props []Property) uint64 {
	var sb strings.Builder
	for _, p := range props {
		sb.WriteString(p.Name)
		sb.WriteByte('|')
		sb.WriteString(string(p.Type))
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatBool(p.Required))
		sb.WriteByte('|')
		sb.WriteString(p.Description)
		sb.WriteByte('|')
		sb.WriteString(strings.Join(p.Enum, ","))
		sb.WriteByte('|')
		if p.Default != nil {
			js, _ := json.Marshal(p.Default)
			sb.Write(js)
		}
		sb.WriteByte('\n')
	}
	return xxhash.Sum64String(sb.String())
}

// Object returns the JSON schema of an object with the given properties,
// in the given order. The returned schema is shared and must not be modified.
func Object(props ...Property) *jsonschema.Schema {
	key := Fingerprint(props)

	cacheMu.RLock()
	s, ok := cache[key]
	cacheMu.RUnlock()
	if ok {
		return s
	}

	s = buildObject(props)

	cacheMu.Lock()
	cache[key] = s
	cacheMu.Unlock()
	return s
}

func buildObject(props []Property) *jsonschema.Schema {
	properties := orderedmap.New[string, *jsonschema.Schema]()
	var required []string

	for _, p := range props {
		ps := &jsonschema.Schema{
			Type:        string(p.Type),
			Description: p.Description,
			Default:     p.Default,
		}
		for _, e := range p.Enum {
			ps.Enum = append(ps.Enum, e)
		}
		properties.Set(p.Name, ps)
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// String returns indented JSON of the schema
func String(s *jsonschema.Schema) string {
	js, _ := json.MarshalIndent(s, "", "\t")
	return string(js)
}
