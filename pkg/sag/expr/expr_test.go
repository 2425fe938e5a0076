package expr

import (
	"testing"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/context"
	"github.com/sentrius/sag/pkg/sag/sagerr"
)

func TestEvaluateEmptyExpressionIsNull(t *testing.T) {
	v, err := Evaluate("  ", context.NewMapContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != ast.KindNull {
		t.Fatalf("expected Null, got %+v", v)
	}
}

func TestEvaluateArithmeticAlwaysYieldsFloat(t *testing.T) {
	v, err := Evaluate("2 + 3 * 4", context.NewMapContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != ast.KindFloat || v.Flt != 14 {
		t.Fatalf("expected Float(14), got %+v", v)
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	_, err := Evaluate("1 / 0", context.NewMapContext())
	if err == nil {
		t.Fatalf("expected division-by-zero error")
	}
}

func TestEvaluateRelationalAndLogical(t *testing.T) {
	ctx := context.NewMapContext()
	ctx.Set("system.cpu", ast.Int(92))

	v, err := Evaluate("system.cpu > 90 && system.cpu < 100", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != ast.KindBool || !v.Bool {
		t.Fatalf("expected true, got %+v", v)
	}
}

func TestEvaluateUnknownPathResolvesToNull(t *testing.T) {
	v, err := Evaluate("missing.path == null", context.NewMapContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != ast.KindBool || !v.Bool {
		t.Fatalf("expected true (null == null), got %+v", v)
	}
}

func TestEvaluateParenthesesAndUnaryMinus(t *testing.T) {
	v, err := Evaluate("-(2 + 3)", context.NewMapContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != ast.KindFloat || v.Flt != -5 {
		t.Fatalf("expected Float(-5), got %+v", v)
	}
}

func TestEvaluateNonNumericOrderingReturnsInvalidExpression(t *testing.T) {
	ctx := context.NewMapContext()
	ctx.Set("name", ast.Str("app"))
	_, err := Evaluate("name > 5", ctx)
	if err == nil {
		t.Fatalf("expected an error comparing a string to a number")
	}
	sagErr, ok := err.(*sagerr.Error)
	if !ok {
		t.Fatalf("expected a *sagerr.Error, got %T", err)
	}
	if sagErr.Code != sagerr.InvalidExpression {
		t.Fatalf("expected code %s, got %s", sagerr.InvalidExpression, sagErr.Code)
	}
}

func TestEvaluateNonNumericArithmeticReturnsInvalidExpression(t *testing.T) {
	ctx := context.NewMapContext()
	ctx.Set("name", ast.Str("app"))
	_, err := Evaluate("name + 1", ctx)
	if err == nil {
		t.Fatalf("expected an error adding a string to a number")
	}
	sagErr, ok := err.(*sagerr.Error)
	if !ok {
		t.Fatalf("expected a *sagerr.Error, got %T", err)
	}
	if sagErr.Code != sagerr.InvalidExpression {
		t.Fatalf("expected code %s, got %s", sagerr.InvalidExpression, sagErr.Code)
	}
}

func TestEvaluateTrailingInputRejected(t *testing.T) {
	_, err := Evaluate("1 + 1 2", context.NewMapContext())
	if err == nil {
		t.Fatalf("expected an error for trailing input")
	}
}
