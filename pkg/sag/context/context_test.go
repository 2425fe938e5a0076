package context

import (
	"testing"

	"github.com/sentrius/sag/pkg/sag/ast"
)

func TestMapContextSetGetNestedPath(t *testing.T) {
	ctx := NewMapContext()
	ctx.Set("budget.remaining", ast.Int(500))

	v, ok := ctx.Get("budget.remaining")
	if !ok || v.Int != 500 {
		t.Fatalf("expected budget.remaining=500, got %+v ok=%v", v, ok)
	}
	if !ctx.Has("budget.remaining") {
		t.Fatalf("expected Has to report true")
	}
	if ctx.Has("budget.unknown") {
		t.Fatalf("expected Has to report false for an unset path")
	}
}

func TestMapContextGetMissingPath(t *testing.T) {
	ctx := NewMapContext()
	_, ok := ctx.Get("does.not.exist")
	if ok {
		t.Fatalf("expected missing path to report false")
	}
	_, ok = ctx.Get("")
	if ok {
		t.Fatalf("expected empty path to report false")
	}
}

func TestMapContextFromObjectRoundTrip(t *testing.T) {
	obj := ast.Object([]ast.ObjectMember{
		{Key: "count", Value: ast.Int(3)},
		{Key: "name", Value: ast.Str("release")},
	})
	ctx := NewMapContextFromObject(obj)

	v, ok := ctx.Get("count")
	if !ok || v.Int != 3 {
		t.Fatalf("expected count=3, got %+v", v)
	}

	rendered := ctx.AsObject()
	if rendered.Kind != ast.KindObject || len(rendered.Obj) != 2 {
		t.Fatalf("expected a 2-member object, got %+v", rendered)
	}
}

func TestMapContextOverwritesScalarWithNestedScope(t *testing.T) {
	ctx := NewMapContext()
	ctx.Set("a", ast.Int(1))
	ctx.Set("a.b", ast.Int(2))

	v, ok := ctx.Get("a.b")
	if !ok || v.Int != 2 {
		t.Fatalf("expected a.b=2 after overwrite, got %+v ok=%v", v, ok)
	}
}
