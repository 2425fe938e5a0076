package lexer

import "testing"

func TestNextTokenizesPunctuationAndOperators(t *testing.T) {
	l := New(`( ) [ ] { } , ; : . + - * / = == != > < >= <= && ||`)
	want := []TokenKind{
		LPAREN, RPAREN, LBRACK, RBRACK, LBRACE, RBRACE, COMMA, SEMI, COLON, DOT,
		PLUS, MINUS, STAR, SLASH, EQ, EQEQ, NEQ, GT, LT, GE, LE, AND, OR, EOF,
	}
	for i, k := range want {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("token %d: %v", i, err)
		}
		if tok.Kind != k {
			t.Fatalf("token %d: got kind %v, want %v (text %q)", i, tok.Kind, k, tok.Text)
		}
	}
}

func TestNextTokenizesLiterals(t *testing.T) {
	l := New(`42 3.14 "hello" true false LOW myIdent`)
	kinds := []TokenKind{INT, FLOAT, STRING, BOOL, BOOL, PRIORITY, IDENT}
	for i, k := range kinds {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("token %d: %v", i, err)
		}
		if tok.Kind != k {
			t.Fatalf("token %d: got kind %v, want %v (text %q)", i, tok.Kind, k, tok.Text)
		}
	}
}

func TestNextReportsLineAndColumn(t *testing.T) {
	l := New("a\nb")
	first, _ := l.Next()
	if first.Line != 1 || first.Column != 1 {
		t.Fatalf("expected line 1 col 1, got %d:%d", first.Line, first.Column)
	}
	_, _ = l.Next() // NEWLINE
	third, _ := l.Next()
	if third.Line != 2 || third.Column != 1 {
		t.Fatalf("expected line 2 col 1, got %d:%d", third.Line, third.Column)
	}
}

func TestUnterminatedStringIsAnError(t *testing.T) {
	l := New(`"unterminated`)
	_, err := l.Next()
	if err == nil {
		t.Fatalf("expected an error for an unterminated string literal")
	}
}

func TestLexTopicPatternWithWildcards(t *testing.T) {
	l := New("system.**")
	tok, err := l.LexTopicPattern()
	if err != nil {
		t.Fatalf("LexTopicPattern: %v", err)
	}
	if tok.Kind != TOPICPATTERN || tok.Text != "system.**" {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestRewindReturnsLexerToTokenStart(t *testing.T) {
	l := New("system.cpu extra")
	tok, err := l.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	l.Rewind(tok)
	reread, err := l.LexTopicPattern()
	if err != nil {
		t.Fatalf("LexTopicPattern after rewind: %v", err)
	}
	if reread.Text != "system.cpu" {
		t.Fatalf("expected system.cpu after rewind, got %q", reread.Text)
	}
}

func TestUnquoteAndEscapeRoundTrip(t *testing.T) {
	raw := "line1\nline2\ttabbed \"quoted\""
	escaped := Escape(raw)
	quoted := `"` + escaped + `"`
	unescaped := Unquote(quoted)
	if unescaped != raw {
		t.Fatalf("round trip mismatch: got %q, want %q", unescaped, raw)
	}
}
