// Package schema validates Action statements against per-verb argument
// schemas.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/sagerr"
)

// ArgType constrains the Value kind an argument accepts.
type ArgType string

const (
	ArgString  ArgType = "STRING"
	ArgInteger ArgType = "INTEGER"
	ArgFloat   ArgType = "FLOAT"
	ArgBoolean ArgType = "BOOLEAN"
	ArgList    ArgType = "LIST"
	ArgObject  ArgType = "OBJECT"
	ArgAny     ArgType = "ANY"
)

// ArgumentSpec describes one positional or named argument's constraints.
type ArgumentSpec struct {
	Name          string
	Type          ArgType
	Required      bool
	Description   string
	AllowedValues []ast.Value
	Pattern       string
	HasPattern    bool
	MinValue      float64
	HasMin        bool
	MaxValue      float64
	HasMax        bool
}

// ArgOption configures an ArgumentSpec, following the functional-options
// pattern used throughout this codebase's constructors.
type ArgOption func(*ArgumentSpec)

func WithAllowedValues(values ...ast.Value) ArgOption {
	return func(s *ArgumentSpec) { s.AllowedValues = values }
}

func WithPattern(pattern string) ArgOption {
	return func(s *ArgumentSpec) {
		s.Pattern = pattern
		s.HasPattern = true
	}
}

func WithMinValue(min float64) ArgOption {
	return func(s *ArgumentSpec) {
		s.MinValue = min
		s.HasMin = true
	}
}

func WithMaxValue(max float64) ArgOption {
	return func(s *ArgumentSpec) {
		s.MaxValue = max
		s.HasMax = true
	}
}

func WithDescription(desc string) ArgOption {
	return func(s *ArgumentSpec) { s.Description = desc }
}

// NewArgumentSpec builds an ArgumentSpec, rejecting constraint/type
// combinations that can never be satisfied (pattern on a non-STRING type,
// range on a non-numeric type).
func NewArgumentSpec(name string, typ ArgType, required bool, opts ...ArgOption) (ArgumentSpec, error) {
	spec := ArgumentSpec{Name: name, Type: typ, Required: required}
	for _, opt := range opts {
		opt(&spec)
	}
	if spec.HasPattern && typ != ArgString {
		return ArgumentSpec{}, fmt.Errorf("pattern constraint only applies to STRING arguments, got %s", typ)
	}
	if (spec.HasMin || spec.HasMax) && typ != ArgInteger && typ != ArgFloat {
		return ArgumentSpec{}, fmt.Errorf("range constraints only apply to INTEGER or FLOAT arguments, got %s", typ)
	}
	return spec, nil
}

// VerbSchema describes the full argument contract for one verb.
type VerbSchema struct {
	VerbName       string
	PositionalArgs []ArgumentSpec
	NamedArgs      map[string]ArgumentSpec
	AllowExtraArgs bool
}

// VerbSchemaBuilder incrementally assembles a VerbSchema.
type VerbSchemaBuilder struct {
	verbName       string
	positionalArgs []ArgumentSpec
	namedArgs      map[string]ArgumentSpec
	allowExtra     bool
	err            error
}

func NewVerbSchemaBuilder(verbName string) *VerbSchemaBuilder {
	return &VerbSchemaBuilder{verbName: verbName, namedArgs: map[string]ArgumentSpec{}}
}

func (b *VerbSchemaBuilder) AddPositionalArg(name string, typ ArgType, required bool, opts ...ArgOption) *VerbSchemaBuilder {
	spec, err := NewArgumentSpec(name, typ, required, opts...)
	if err != nil {
		b.err = err
		return b
	}
	b.positionalArgs = append(b.positionalArgs, spec)
	return b
}

func (b *VerbSchemaBuilder) AddNamedArg(name string, typ ArgType, required bool, opts ...ArgOption) *VerbSchemaBuilder {
	spec, err := NewArgumentSpec(name, typ, required, opts...)
	if err != nil {
		b.err = err
		return b
	}
	b.namedArgs[name] = spec
	return b
}

func (b *VerbSchemaBuilder) AllowExtraArgs(allow bool) *VerbSchemaBuilder {
	b.allowExtra = allow
	return b
}

func (b *VerbSchemaBuilder) Build() (VerbSchema, error) {
	if b.err != nil {
		return VerbSchema{}, b.err
	}
	return VerbSchema{
		VerbName:       b.verbName,
		PositionalArgs: b.positionalArgs,
		NamedArgs:      b.namedArgs,
		AllowExtraArgs: b.allowExtra,
	}, nil
}

// Registry holds VerbSchemas by name. Not safe for concurrent mutation
// without external locking, matching a single engine's ownership model.
type Registry struct {
	schemas map[string]VerbSchema
}

func NewRegistry() *Registry {
	return &Registry{schemas: map[string]VerbSchema{}}
}

func (r *Registry) Register(schema VerbSchema) {
	r.schemas[schema.VerbName] = schema
}

func (r *Registry) GetSchema(verb string) (VerbSchema, bool) {
	s, ok := r.schemas[verb]
	return s, ok
}

func (r *Registry) HasSchema(verb string) bool {
	_, ok := r.schemas[verb]
	return ok
}

func (r *Registry) Unregister(verb string) {
	delete(r.schemas, verb)
}

func (r *Registry) RegisteredVerbs() []string {
	verbs := make([]string, 0, len(r.schemas))
	for v := range r.schemas {
		verbs = append(verbs, v)
	}
	return verbs
}

func (r *Registry) Clear() {
	r.schemas = map[string]VerbSchema{}
}

func (r *Registry) Size() int {
	return len(r.schemas)
}

// Validator checks Action statements against a Registry's schemas.
type Validator struct {
	registry *Registry
}

func NewValidator(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate returns nil if action satisfies its verb's schema (or no schema
// is registered for it — unknown verbs pass through, since no schema means
// no constraint), or a *sagerr.Error describing the first violation found,
// checked in this order: positional args, extra positional args, named arg
// keys, then named arg presence/type/constraints.
func (v *Validator) Validate(action ast.Action) *sagerr.Error {
	schema, ok := v.registry.GetSchema(action.Verb)
	if !ok {
		return nil
	}

	for i, spec := range schema.PositionalArgs {
		if i >= len(action.Args) {
			if spec.Required {
				return sagerr.New(sagerr.MissingArg, fmt.Sprintf("missing required positional argument '%s' at position %d", spec.Name, i))
			}
			continue
		}
		value := action.Args[i]
		if !isTypeCompatible(value, spec.Type) {
			return sagerr.New(sagerr.TypeMismatch, fmt.Sprintf("argument '%s' at position %d expected type %s but got %s", spec.Name, i, spec.Type, typeName(value)))
		}
		if err := validateConstraints(value, spec, fmt.Sprintf("'%s' at position %d", spec.Name, i)); err != nil {
			return err
		}
	}

	if len(action.Args) > len(schema.PositionalArgs) && !schema.AllowExtraArgs {
		return sagerr.New(sagerr.TooManyArgs, fmt.Sprintf("too many positional arguments: expected %d but got %d", len(schema.PositionalArgs), len(action.Args)))
	}

	for _, na := range action.NamedArgs {
		if _, known := schema.NamedArgs[na.Name]; !known && !schema.AllowExtraArgs {
			expected := make([]string, 0, len(schema.NamedArgs))
			for k := range schema.NamedArgs {
				expected = append(expected, k)
			}
			return sagerr.New(sagerr.InvalidArgs, fmt.Sprintf("expected '%s', got '%s'", strings.Join(expected, "', '"), na.Name))
		}
	}

	for key, spec := range schema.NamedArgs {
		value, present := lookupNamedArg(action.NamedArgs, key)
		if !present {
			if spec.Required {
				return sagerr.New(sagerr.MissingArg, fmt.Sprintf("missing required named argument '%s'", key))
			}
			continue
		}
		if !isTypeCompatible(value, spec.Type) {
			return sagerr.New(sagerr.TypeMismatch, fmt.Sprintf("argument '%s' expected type %s but got %s", key, spec.Type, typeName(value)))
		}
		if err := validateConstraints(value, spec, fmt.Sprintf("'%s'", key)); err != nil {
			return err
		}
	}

	return nil
}

func lookupNamedArg(args []ast.NamedArg, name string) (ast.Value, bool) {
	for _, a := range args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return ast.Value{}, false
}

func validateConstraints(value ast.Value, spec ArgumentSpec, label string) *sagerr.Error {
	if value.Kind == ast.KindNull {
		return nil
	}

	if spec.AllowedValues != nil {
		allowed := false
		for _, av := range spec.AllowedValues {
			if value.Equal(av) {
				allowed = true
				break
			}
		}
		if !allowed {
			return sagerr.New(sagerr.ValueNotAllowed, fmt.Sprintf("argument %s value %s is not in allowed values", label, describeValue(value)))
		}
	}

	if spec.HasPattern && value.Kind == ast.KindString {
		re, err := regexp.Compile("^(?:" + spec.Pattern + ")$")
		if err != nil || !re.MatchString(value.Str) {
			return sagerr.New(sagerr.PatternMismatch, fmt.Sprintf("argument %s value %q does not match pattern '%s'", label, value.Str, spec.Pattern))
		}
	}

	if spec.HasMin || spec.HasMax {
		if n, ok := toNumber(value); ok {
			if spec.HasMin && n < spec.MinValue {
				return sagerr.New(sagerr.ValueOutOfRange, fmt.Sprintf("argument %s value %s is less than minimum %v", label, describeValue(value), spec.MinValue))
			}
			if spec.HasMax && n > spec.MaxValue {
				return sagerr.New(sagerr.ValueOutOfRange, fmt.Sprintf("argument %s value %s is greater than maximum %v", label, describeValue(value), spec.MaxValue))
			}
		}
	}

	return nil
}

func toNumber(v ast.Value) (float64, bool) {
	switch v.Kind {
	case ast.KindInt:
		return float64(v.Int), true
	case ast.KindFloat:
		return v.Flt, true
	}
	return 0, false
}

func isTypeCompatible(value ast.Value, expected ArgType) bool {
	if value.Kind == ast.KindNull {
		return true
	}
	switch expected {
	case ArgAny:
		return true
	case ArgString:
		return value.Kind == ast.KindString
	case ArgInteger:
		return value.Kind == ast.KindInt
	case ArgFloat:
		return value.Kind == ast.KindFloat
	case ArgBoolean:
		return value.Kind == ast.KindBool
	case ArgList:
		return value.Kind == ast.KindList
	case ArgObject:
		return value.Kind == ast.KindObject
	}
	return false
}

func typeName(v ast.Value) string {
	switch v.Kind {
	case ast.KindNull:
		return "null"
	case ast.KindBool:
		return "Boolean"
	case ast.KindInt:
		return "Integer"
	case ast.KindFloat:
		return "Float"
	case ast.KindString:
		return "String"
	case ast.KindPath:
		return "Path"
	case ast.KindList:
		return "List"
	case ast.KindObject:
		return "Object"
	}
	return "Unknown"
}

func describeValue(v ast.Value) string {
	switch v.Kind {
	case ast.KindString:
		return fmt.Sprintf("%q", v.Str)
	case ast.KindInt:
		return fmt.Sprintf("%d", v.Int)
	case ast.KindFloat:
		return fmt.Sprintf("%g", v.Flt)
	case ast.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	}
	return "null"
}
