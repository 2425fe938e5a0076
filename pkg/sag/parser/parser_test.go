package parser

import (
	"testing"

	"github.com/sentrius/sag/pkg/sag/ast"
)

func mustParse(t *testing.T, text string) ast.Message {
	t.Helper()
	msg, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return msg
}

func TestParseHeader(t *testing.T) {
	msg := mustParse(t, "H v 1 id=m1 src=agent dst=server ts=1700000000 corr=c1 ttl=60\nDO build(\"app\")")
	h := msg.Header
	if h.Version != 1 || h.MessageID != "m1" || h.Source != "agent" || h.Destination != "server" || h.Timestamp != 1700000000 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if !h.HasCorr || h.Correlation != "c1" {
		t.Fatalf("expected correlation c1, got %+v", h)
	}
	if !h.HasTTL || h.TTL != 60 {
		t.Fatalf("expected ttl 60, got %+v", h)
	}
}

func TestParseHeaderWithoutOptionalFields(t *testing.T) {
	msg := mustParse(t, "H v 1 id=m1 src=a dst=b ts=1\nEVT ping()")
	if msg.Header.HasCorr || msg.Header.HasTTL {
		t.Fatalf("expected no optional fields, got %+v", msg.Header)
	}
}

func TestParseAction(t *testing.T) {
	msg := mustParse(t, `H v 1 id=m1 src=a dst=b ts=1
DO deploy("myapp",env=production,replicas=3) P:require_approval PRIO=HIGH BECAUSE "scheduled release"`)
	if len(msg.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(msg.Statements))
	}
	action, ok := msg.Statements[0].(ast.Action)
	if !ok {
		t.Fatalf("expected Action, got %T", msg.Statements[0])
	}
	if action.Verb != "deploy" {
		t.Fatalf("expected verb deploy, got %s", action.Verb)
	}
	if len(action.Args) != 1 || action.Args[0].Str != "myapp" {
		t.Fatalf("unexpected positional args: %+v", action.Args)
	}
	if len(action.NamedArgs) != 2 {
		t.Fatalf("expected 2 named args, got %+v", action.NamedArgs)
	}
	if !action.HasPolicy || action.Policy != "require_approval" {
		t.Fatalf("expected policy require_approval, got %+v", action)
	}
	if !action.HasPriority || action.Priority != ast.PriorityHigh {
		t.Fatalf("expected priority HIGH, got %+v", action)
	}
	if !action.HasReason || action.ReasonIsExpr {
		t.Fatalf("expected plain-text reason, got %+v", action)
	}
	if action.Reason != "scheduled release" {
		t.Fatalf("unexpected reason %q", action.Reason)
	}
}

func TestParseActionReasonExpression(t *testing.T) {
	msg := mustParse(t, `H v 1 id=m1 src=a dst=b ts=1
DO rollback("myapp") BECAUSE error_rate > 0.05`)
	action := msg.Statements[0].(ast.Action)
	if !action.HasReason || !action.ReasonIsExpr {
		t.Fatalf("expected expression reason, got %+v", action)
	}
	if action.Reason != "error_rate > 0.05" {
		t.Fatalf("unexpected reason text %q", action.Reason)
	}
}

func TestParseAssertAndQuery(t *testing.T) {
	msg := mustParse(t, `H v 1 id=m1 src=a dst=b ts=1
A system.cpu = 85;Q system.cpu WHERE system.cpu > 80`)
	if len(msg.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(msg.Statements))
	}
	assertStmt, ok := msg.Statements[0].(ast.Assert)
	if !ok || assertStmt.Path != "system.cpu" || assertStmt.Value.Int != 85 {
		t.Fatalf("unexpected assert: %+v", msg.Statements[0])
	}
	query, ok := msg.Statements[1].(ast.Query)
	if !ok || !query.HasConstraint {
		t.Fatalf("unexpected query: %+v", msg.Statements[1])
	}
}

func TestParseControlWithElse(t *testing.T) {
	msg := mustParse(t, `H v 1 id=m1 src=a dst=b ts=1
IF system.cpu > 90 THEN EVT alert() ELSE EVT ok()`)
	ctrl, ok := msg.Statements[0].(ast.Control)
	if !ok {
		t.Fatalf("expected Control, got %T", msg.Statements[0])
	}
	if !ctrl.HasElse {
		t.Fatalf("expected else branch")
	}
	if _, ok := ctrl.Then.(ast.Event); !ok {
		t.Fatalf("expected then branch to be an Event, got %T", ctrl.Then)
	}
}

func TestParseFoldAndRecall(t *testing.T) {
	msg := mustParse(t, `H v 1 id=m1 src=a dst=b ts=1
FOLD f1 "archived" STATE {"count":3};RECALL f1`)
	fold, ok := msg.Statements[0].(ast.Fold)
	if !ok || fold.FoldID != "f1" || fold.Summary != "archived" || !fold.HasState {
		t.Fatalf("unexpected fold: %+v", msg.Statements[0])
	}
	recall, ok := msg.Statements[1].(ast.Recall)
	if !ok || recall.FoldID != "f1" {
		t.Fatalf("unexpected recall: %+v", msg.Statements[1])
	}
}

func TestParseSubUnsubKnow(t *testing.T) {
	msg := mustParse(t, `H v 1 id=m1 src=a dst=b ts=1
SUB system.** WHERE true;UNSUB system.cpu;KNOW system.cpu = 85 v 2`)
	sub, ok := msg.Statements[0].(ast.Subscribe)
	if !ok || sub.Pattern != "system.**" || !sub.HasFilter {
		t.Fatalf("unexpected subscribe: %+v", msg.Statements[0])
	}
	unsub, ok := msg.Statements[1].(ast.Unsubscribe)
	if !ok || unsub.Pattern != "system.cpu" {
		t.Fatalf("unexpected unsubscribe: %+v", msg.Statements[1])
	}
	know, ok := msg.Statements[2].(ast.Knowledge)
	if !ok || know.Topic != "system.cpu" || know.Version != 2 || know.Value.Int != 85 {
		t.Fatalf("unexpected knowledge: %+v", msg.Statements[2])
	}
}

func TestParseErrorStatement(t *testing.T) {
	msg := mustParse(t, `H v 1 id=m1 src=a dst=b ts=1
ERR SCHEMA_ERROR "missing required argument"`)
	errStmt, ok := msg.Statements[0].(ast.Error)
	if !ok || errStmt.Code != "SCHEMA_ERROR" || !errStmt.HasMessage {
		t.Fatalf("unexpected error statement: %+v", msg.Statements[0])
	}
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse("H v 1 id=m1 src=a dst=b ts=1\nEVT ok() extra")
	if err == nil {
		t.Fatalf("expected a parse error for trailing input")
	}
}

func TestParseRejectsMalformedHeader(t *testing.T) {
	_, err := Parse("H v 1 id=m1 src=a ts=1\nEVT ok()")
	if err == nil {
		t.Fatalf("expected a parse error for a header missing dst")
	}
}
