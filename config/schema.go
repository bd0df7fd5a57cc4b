// Package config implements boot-time configuration: an explicit schema
// merged once from user, internal, and plugin field definitions, a layered
// loader (JSON and YAML files, environment, explicit overrides), and the
// immutable resolved snapshot exposed to requests under the "config."
// namespace.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guyskk/weirb-hrpc/errors"
)

// Source identifies where a field definition came from. Higher values take
// precedence during the merge; two definitions of the same field from the
// same source are a configuration error.
type Source int

const (
	// SourcePlugin is a field declared by a plugin.
	SourcePlugin Source = iota
	// SourceInternal is a framework-defined field.
	SourceInternal
	// SourceUser is a field declared by the application author.
	SourceUser
)

// String returns the string representation of Source.
func (s Source) String() string {
	switch s {
	case SourcePlugin:
		return "plugin"
	case SourceInternal:
		return "internal"
	case SourceUser:
		return "user"
	default:
		return "unknown"
	}
}

// Kind is the value type a field is checked and coerced to.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindDuration
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// Field defines one configuration field.
type Field struct {
	Name        string
	Kind        Kind
	Default     any
	Required    bool
	Description string
}

type fieldEntry struct {
	field  Field
	source Source
}

// Schema is the flat field table produced by the boot-time merge. Build it
// once with Add calls, then Resolve the loaded raw values against it.
type Schema struct {
	entries map[string]fieldEntry
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{entries: make(map[string]fieldEntry)}
}

// Add merges field definitions from one source. A field already defined by
// a higher-precedence source is kept; a lower-precedence definition is
// overridden; a duplicate at the same precedence is a configuration error.
func (s *Schema) Add(source Source, fields ...Field) error {
	for _, f := range fields {
		if f.Name == "" {
			return errors.NewConfig("field with empty name from %s source", source)
		}
		existing, ok := s.entries[f.Name]
		if ok {
			if existing.source == source {
				return errors.NewConfig(
					"duplicate field %q defined twice at %s precedence", f.Name, source)
			}
			if existing.source > source {
				continue
			}
		}
		s.entries[f.Name] = fieldEntry{field: f, source: source}
	}
	return nil
}

// Fields returns the merged field definitions sorted by name.
func (s *Schema) Fields() []Field {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = s.entries[name].field
	}
	return fields
}

// Resolve validates raw values against the schema and produces the
// immutable snapshot. Unknown keys, missing required fields, and
// uncoercible values abort boot with a configuration error.
func (s *Schema) Resolve(raw map[string]any) (*Snapshot, error) {
	for name := range raw {
		if _, ok := s.entries[name]; !ok {
			return nil, errors.NewConfig("unknown configuration field %q", name)
		}
	}

	values := make(map[string]any, len(s.entries))
	for name, entry := range s.entries {
		input, ok := raw[name]
		if !ok {
			if entry.field.Required {
				return nil, errors.NewConfig("missing required configuration field %q", name)
			}
			input = entry.field.Default
		}
		if input == nil {
			continue
		}
		value, err := coerce(entry.field.Kind, input)
		if err != nil {
			return nil, errors.WrapConfig(err, "field %q", name)
		}
		values[name] = value
	}
	return &Snapshot{values: values}, nil
}

// coerce converts input to the field kind. String inputs are parsed so
// environment and CLI overrides round-trip through their text form.
func coerce(kind Kind, input any) (any, error) {
	switch kind {
	case KindString:
		if s, ok := input.(string); ok {
			return s, nil
		}
	case KindInt:
		switch v := input.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v == float64(int(v)) {
				return int(v), nil
			}
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("parse int %q: %w", v, err)
			}
			return n, nil
		}
	case KindFloat:
		switch v := input.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("parse float %q: %w", v, err)
			}
			return f, nil
		}
	case KindBool:
		switch v := input.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("parse bool %q: %w", v, err)
			}
			return b, nil
		}
	case KindDuration:
		switch v := input.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("parse duration %q: %w", v, err)
			}
			return d, nil
		case int:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", input, kind)
}

// InternalFields returns the framework-defined fields merged at
// SourceInternal precedence into every app's schema.
func InternalFields() []Field {
	return []Field{
		{Name: "debug", Kind: KindBool, Default: false,
			Description: "enable debug diagnostics"},
		{Name: "host", Kind: KindString, Default: "127.0.0.1",
			Description: "HTTP listen host"},
		{Name: "port", Kind: KindInt, Default: 8080,
			Description: "HTTP listen port"},
		{Name: "url_prefix", Kind: KindString, Default: "/api",
			Description: "RPC URL prefix"},
		{Name: "request_timeout", Kind: KindDuration, Default: 60 * time.Second,
			Description: "per-request handling timeout"},
		{Name: "print_config", Kind: KindBool, Default: false,
			Description: "print resolved configuration at boot and exit"},
		{Name: "print_plugin", Kind: KindBool, Default: false,
			Description: "print registered plugins at boot and exit"},
		{Name: "print_service", Kind: KindBool, Default: false,
			Description: "print registered services at boot and exit"},
	}
}
