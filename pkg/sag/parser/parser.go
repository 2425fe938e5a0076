// Package parser turns SAG wire text into a typed ast.Message via a
// hand-written recursive-descent parser; see DESIGN.md.
package parser

import (
	"strconv"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/lexer"
	"github.com/sentrius/sag/pkg/sag/sagerr"
)

// Parser consumes tokens from a Lexer with one token of lookahead.
type Parser struct {
	lex     *lexer.Lexer
	tok     lexer.Token
	prevEnd int
	err     error
}

// Parse parses a complete SAG message: header line, newline, semicolon-
// separated statement body. Syntax errors return a *sagerr.Error with code
// PARSE_ERROR carrying line/column.
func Parse(text string) (ast.Message, error) {
	p := &Parser{lex: lexer.New(text)}
	p.advance()

	header, err := p.parseHeader()
	if err != nil {
		return ast.Message{}, err
	}

	if err := p.expect(lexer.NEWLINE); err != nil {
		return ast.Message{}, err
	}
	// allow blank lines between header and body
	for p.tok.Kind == lexer.NEWLINE {
		p.advance()
	}

	var statements []ast.Statement
	for p.tok.Kind != lexer.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return ast.Message{}, err
		}
		statements = append(statements, stmt)
		if p.tok.Kind == lexer.SEMI {
			p.advance()
			continue
		}
		break
	}

	if p.tok.Kind != lexer.EOF {
		return ast.Message{}, p.syntaxError("unexpected trailing input")
	}

	return ast.Message{Header: header, Statements: statements}, nil
}

func (p *Parser) advance() {
	p.prevEnd = p.tok.EndOffset
	tok, err := p.lex.Next()
	if err != nil {
		p.err = &sagerr.Error{Code: sagerr.ParseError, Message: err.Error()}
		if le, ok := err.(*lexer.LexError); ok {
			p.err.(*sagerr.Error).Line = le.Line
			p.err.(*sagerr.Error).Column = le.Column
		}
		p.tok = lexer.Token{Kind: lexer.EOF}
		return
	}
	p.tok = tok
}

func (p *Parser) syntaxError(msg string) error {
	return &sagerr.Error{Code: sagerr.ParseError, Message: msg, Line: p.tok.Line, Column: p.tok.Column}
}

func (p *Parser) expect(kind lexer.TokenKind) error {
	if p.err != nil {
		return p.err
	}
	if p.tok.Kind != kind {
		return p.syntaxError("unexpected token " + p.tok.Text)
	}
	p.advance()
	return p.err
}

// expectKeyword expects an IDENT token whose text matches kw exactly.
func (p *Parser) expectKeyword(kw string) error {
	if p.err != nil {
		return p.err
	}
	if p.tok.Kind != lexer.IDENT || p.tok.Text != kw {
		return p.syntaxError("expected '" + kw + "'")
	}
	p.advance()
	return p.err
}

func (p *Parser) atKeyword(kw string) bool {
	return p.tok.Kind == lexer.IDENT && p.tok.Text == kw
}

func (p *Parser) parseHeader() (ast.Header, error) {
	var h ast.Header
	if err := p.expectKeyword("H"); err != nil {
		return h, err
	}
	if err := p.expectKeyword("v"); err != nil {
		return h, err
	}
	if p.tok.Kind != lexer.INT {
		return h, p.syntaxError("expected header version")
	}
	ver, _ := strconv.ParseUint(p.tok.Text, 10, 32)
	h.Version = uint32(ver)
	p.advance()

	field, err := p.parseKVField("id")
	if err != nil {
		return h, err
	}
	h.MessageID = field

	field, err = p.parseKVField("src")
	if err != nil {
		return h, err
	}
	h.Source = field

	field, err = p.parseKVField("dst")
	if err != nil {
		return h, err
	}
	h.Destination = field

	tsField, err := p.parseKVFieldRaw("ts")
	if err != nil {
		return h, err
	}
	ts, _ := strconv.ParseInt(tsField, 10, 64)
	h.Timestamp = ts

	if p.tok.Kind == lexer.IDENT && p.tok.Text == "corr" {
		corrVal, err := p.parseKVFieldAllowDash("corr")
		if err != nil {
			return h, err
		}
		if corrVal != "-" {
			h.Correlation = corrVal
			h.HasCorr = true
		}
	}

	if p.tok.Kind == lexer.IDENT && p.tok.Text == "ttl" {
		ttlField, err := p.parseKVFieldRaw("ttl")
		if err != nil {
			return h, err
		}
		ttl, _ := strconv.ParseUint(ttlField, 10, 32)
		h.TTL = uint32(ttl)
		h.HasTTL = true
	}

	return h, nil
}

// parseKVField parses `name=IDENT` and returns the identifier text.
func (p *Parser) parseKVField(name string) (string, error) {
	if err := p.expectKeyword(name); err != nil {
		return "", err
	}
	if err := p.expect(lexer.EQ); err != nil {
		return "", err
	}
	if p.tok.Kind != lexer.IDENT {
		return "", p.syntaxError("expected identifier after " + name + "=")
	}
	val := p.tok.Text
	p.advance()
	return val, nil
}

// parseKVFieldRaw parses `name=INT`.
func (p *Parser) parseKVFieldRaw(name string) (string, error) {
	if err := p.expectKeyword(name); err != nil {
		return "", err
	}
	if err := p.expect(lexer.EQ); err != nil {
		return "", err
	}
	if p.tok.Kind != lexer.INT {
		return "", p.syntaxError("expected integer after " + name + "=")
	}
	val := p.tok.Text
	p.advance()
	return val, nil
}

// parseKVFieldAllowDash parses `name=IDENT` or `name=-`.
func (p *Parser) parseKVFieldAllowDash(name string) (string, error) {
	if err := p.expectKeyword(name); err != nil {
		return "", err
	}
	if err := p.expect(lexer.EQ); err != nil {
		return "", err
	}
	if p.tok.Kind == lexer.MINUS {
		p.advance()
		return "-", nil
	}
	if p.tok.Kind != lexer.IDENT {
		return "", p.syntaxError("expected identifier or '-' after " + name + "=")
	}
	val := p.tok.Text
	p.advance()
	return val, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.atKeyword("DO"):
		return p.parseAction()
	case p.atKeyword("Q"):
		return p.parseQuery()
	case p.atKeyword("A"):
		return p.parseAssert()
	case p.atKeyword("IF"):
		return p.parseControl()
	case p.atKeyword("EVT"):
		return p.parseEvent()
	case p.atKeyword("ERR"):
		return p.parseError()
	case p.atKeyword("FOLD"):
		return p.parseFold()
	case p.atKeyword("RECALL"):
		return p.parseRecall()
	case p.atKeyword("SUB"):
		return p.parseSubscribe()
	case p.atKeyword("UNSUB"):
		return p.parseUnsubscribe()
	case p.atKeyword("KNOW"):
		return p.parseKnowledge()
	}
	return nil, p.syntaxError("unknown statement keyword")
}
