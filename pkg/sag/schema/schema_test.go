package schema

import (
	"testing"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/sagerr"
)

func buildDeploySchema(t *testing.T) *Registry {
	t.Helper()
	deploy, err := NewVerbSchemaBuilder("deploy").
		AddPositionalArg("app", ArgString, true).
		AddNamedArg("env", ArgString, false, WithAllowedValues(ast.Str("dev"), ast.Str("staging"), ast.Str("production"))).
		AddNamedArg("replicas", ArgInteger, false, WithMinValue(1), WithMaxValue(100)).
		Build()
	if err != nil {
		t.Fatalf("building schema: %v", err)
	}
	registry := NewRegistry()
	registry.Register(deploy)
	return registry
}

func TestValidateAcceptsWellFormedAction(t *testing.T) {
	registry := buildDeploySchema(t)
	v := NewValidator(registry)
	action := ast.Action{
		Verb: "deploy",
		Args: []ast.Value{ast.Str("myapp")},
		NamedArgs: []ast.NamedArg{
			{Name: "env", Value: ast.Str("production")},
			{Name: "replicas", Value: ast.Int(3)},
		},
	}
	if err := v.Validate(action); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateUnknownVerbPassesThrough(t *testing.T) {
	v := NewValidator(NewRegistry())
	action := ast.Action{Verb: "unregistered", Args: []ast.Value{ast.Str("x")}}
	if err := v.Validate(action); err != nil {
		t.Fatalf("expected unknown verbs to pass through, got %v", err)
	}
}

func TestValidateMissingRequiredPositionalArg(t *testing.T) {
	registry := buildDeploySchema(t)
	v := NewValidator(registry)
	err := v.Validate(ast.Action{Verb: "deploy"})
	if err == nil || err.Code != sagerr.MissingArg {
		t.Fatalf("expected MISSING_ARG, got %v", err)
	}
}

func TestValidateTypeMismatch(t *testing.T) {
	registry := buildDeploySchema(t)
	v := NewValidator(registry)
	err := v.Validate(ast.Action{Verb: "deploy", Args: []ast.Value{ast.Int(5)}})
	if err == nil || err.Code != sagerr.TypeMismatch {
		t.Fatalf("expected TYPE_MISMATCH, got %v", err)
	}
}

func TestValidateTooManyPositionalArgs(t *testing.T) {
	registry := buildDeploySchema(t)
	v := NewValidator(registry)
	err := v.Validate(ast.Action{Verb: "deploy", Args: []ast.Value{ast.Str("a"), ast.Str("b")}})
	if err == nil || err.Code != sagerr.TooManyArgs {
		t.Fatalf("expected TOO_MANY_ARGS, got %v", err)
	}
}

func TestValidateUnknownNamedArg(t *testing.T) {
	registry := buildDeploySchema(t)
	v := NewValidator(registry)
	action := ast.Action{
		Verb: "deploy", Args: []ast.Value{ast.Str("myapp")},
		NamedArgs: []ast.NamedArg{{Name: "bogus", Value: ast.Str("x")}},
	}
	err := v.Validate(action)
	if err == nil || err.Code != sagerr.InvalidArgs {
		t.Fatalf("expected INVALID_ARGS, got %v", err)
	}
}

func TestValidateAllowedValuesViolation(t *testing.T) {
	registry := buildDeploySchema(t)
	v := NewValidator(registry)
	action := ast.Action{
		Verb: "deploy", Args: []ast.Value{ast.Str("myapp")},
		NamedArgs: []ast.NamedArg{{Name: "env", Value: ast.Str("qa")}},
	}
	err := v.Validate(action)
	if err == nil || err.Code != sagerr.ValueNotAllowed {
		t.Fatalf("expected VALUE_NOT_ALLOWED, got %v", err)
	}
}

func TestValidateRangeViolation(t *testing.T) {
	registry := buildDeploySchema(t)
	v := NewValidator(registry)
	action := ast.Action{
		Verb: "deploy", Args: []ast.Value{ast.Str("myapp")},
		NamedArgs: []ast.NamedArg{{Name: "replicas", Value: ast.Int(500)}},
	}
	err := v.Validate(action)
	if err == nil || err.Code != sagerr.ValueOutOfRange {
		t.Fatalf("expected VALUE_OUT_OF_RANGE, got %v", err)
	}
}

func TestNewArgumentSpecRejectsInapplicableConstraints(t *testing.T) {
	if _, err := NewArgumentSpec("x", ArgInteger, false, WithPattern(`\d+`)); err == nil {
		t.Fatalf("expected error for pattern constraint on an INTEGER argument")
	}
	if _, err := NewArgumentSpec("x", ArgString, false, WithMinValue(0)); err == nil {
		t.Fatalf("expected error for range constraint on a STRING argument")
	}
}

func TestValidatePatternConstraint(t *testing.T) {
	release, err := NewVerbSchemaBuilder("release").
		AddPositionalArg("version", ArgString, true, WithPattern(`\d+\.\d+\.\d+`)).
		Build()
	if err != nil {
		t.Fatalf("building schema: %v", err)
	}
	registry := NewRegistry()
	registry.Register(release)
	v := NewValidator(registry)

	if err := v.Validate(ast.Action{Verb: "release", Args: []ast.Value{ast.Str("1.2.3")}}); err != nil {
		t.Fatalf("expected valid semver to pass, got %v", err)
	}
	err2 := v.Validate(ast.Action{Verb: "release", Args: []ast.Value{ast.Str("not-a-version")}})
	if err2 == nil || err2.Code != sagerr.PatternMismatch {
		t.Fatalf("expected PATTERN_MISMATCH, got %v", err2)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()
	if registry.Size() != 0 {
		t.Fatalf("expected empty registry")
	}
	s, _ := NewVerbSchemaBuilder("build").AddPositionalArg("target", ArgString, true).Build()
	registry.Register(s)
	if !registry.HasSchema("build") || registry.Size() != 1 {
		t.Fatalf("expected build to be registered")
	}
	registry.Unregister("build")
	if registry.HasSchema("build") {
		t.Fatalf("expected build to be unregistered")
	}
}
