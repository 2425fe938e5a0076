package main

import "testing"

const sampleMessage = `H v 1 id=m1 src=agent dst=server ts=1000
DO build("app")`

func TestParseCmdAcceptsWellFormedMessage(t *testing.T) {
	cmd := parseCmd()
	if err := cmd.RunE(cmd, []string{sampleMessage}); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestParseCmdRejectsMalformedMessage(t *testing.T) {
	cmd := parseCmd()
	if err := cmd.RunE(cmd, []string{"not sag at all"}); err == nil {
		t.Fatalf("expected an error for malformed input")
	}
}

func TestMinifyCmdAcceptsWellFormedMessage(t *testing.T) {
	cmd := minifyCmd()
	if err := cmd.RunE(cmd, []string{sampleMessage}); err != nil {
		t.Fatalf("minify: %v", err)
	}
}

func TestSanitizeCmdRejectsUnknownDestination(t *testing.T) {
	cmd := sanitizeCmd()
	unknown := `H v 1 id=m1 src=agent dst=ghost ts=1000
DO build("app")`
	if err := cmd.RunE(cmd, []string{unknown}); err == nil {
		t.Fatalf("expected an error for an unknown destination agent")
	}
}

func TestSanitizeCmdAcceptsKnownRoute(t *testing.T) {
	cmd := sanitizeCmd()
	if err := cmd.RunE(cmd, []string{sampleMessage}); err != nil {
		t.Fatalf("sanitize: %v", err)
	}
}

func TestFoldCmdArchivesSingleMessage(t *testing.T) {
	cmd := foldCmd()
	if err := cmd.RunE(cmd, []string{sampleMessage}); err != nil {
		t.Fatalf("fold: %v", err)
	}
}

func TestTokensCmdComparesWireSize(t *testing.T) {
	cmd := tokensCmd()
	if err := cmd.RunE(cmd, []string{sampleMessage}); err != nil {
		t.Fatalf("tokens: %v", err)
	}
}

func TestReadInputPrefersArgsOverStdin(t *testing.T) {
	got, err := readInput([]string{"from-args"})
	if err != nil {
		t.Fatalf("readInput: %v", err)
	}
	if got != "from-args" {
		t.Fatalf("expected 'from-args', got %q", got)
	}
}
