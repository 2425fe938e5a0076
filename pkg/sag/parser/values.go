package parser

import (
	"strconv"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/lexer"
)

// parseValue parses one value literal: STRING, INT, FLOAT, BOOL, null,
// dotted path, list, or object.
func (p *Parser) parseValue() (ast.Value, error) {
	if p.err != nil {
		return ast.Value{}, p.err
	}
	switch p.tok.Kind {
	case lexer.STRING:
		s := lexer.Unquote(p.tok.Text)
		p.advance()
		return ast.Str(s), p.err
	case lexer.INT:
		n, err := strconv.ParseInt(p.tok.Text, 10, 64)
		if err != nil {
			return ast.Value{}, p.syntaxError("invalid integer literal " + p.tok.Text)
		}
		p.advance()
		return ast.Int(n), p.err
	case lexer.FLOAT:
		f, err := strconv.ParseFloat(p.tok.Text, 64)
		if err != nil {
			return ast.Value{}, p.syntaxError("invalid float literal " + p.tok.Text)
		}
		p.advance()
		return ast.Float(f), p.err
	case lexer.BOOL:
		b := p.tok.Text == "true"
		p.advance()
		return ast.Bool(b), p.err
	case lexer.MINUS:
		// Negative numeric literal: MINUS is not produced for numbers by
		// the lexer (only unary), so handle it structurally here.
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return ast.Value{}, err
		}
		switch v.Kind {
		case ast.KindInt:
			return ast.Int(-v.Int), nil
		case ast.KindFloat:
			return ast.Float(-v.Flt), nil
		}
		return ast.Value{}, p.syntaxError("unary '-' requires a numeric literal")
	case lexer.IDENT:
		if p.tok.Text == "null" {
			p.advance()
			return ast.Null(), p.err
		}
		path := p.tok.Text
		p.advance()
		return ast.Path(path), p.err
	case lexer.LBRACK:
		return p.parseList()
	case lexer.LBRACE:
		return p.parseObject()
	}
	return ast.Value{}, p.syntaxError("expected value")
}

func (p *Parser) parseList() (ast.Value, error) {
	if err := p.expect(lexer.LBRACK); err != nil {
		return ast.Value{}, err
	}
	var items []ast.Value
	if p.tok.Kind != lexer.RBRACK {
		for {
			v, err := p.parseValue()
			if err != nil {
				return ast.Value{}, err
			}
			items = append(items, v)
			if p.tok.Kind == lexer.COMMA {
				p.advance()
				continue
			}
			break
		}
	}
	if err := p.expect(lexer.RBRACK); err != nil {
		return ast.Value{}, err
	}
	return ast.List(items), nil
}

func (p *Parser) parseObject() (ast.Value, error) {
	if err := p.expect(lexer.LBRACE); err != nil {
		return ast.Value{}, err
	}
	members, err := p.parseObjectMembers()
	if err != nil {
		return ast.Value{}, err
	}
	if err := p.expect(lexer.RBRACE); err != nil {
		return ast.Value{}, err
	}
	return ast.Object(members), nil
}

// parseObjectMembers parses zero or more `"key": value` pairs up to (but
// not consuming) the closing brace.
func (p *Parser) parseObjectMembers() ([]ast.ObjectMember, error) {
	var members []ast.ObjectMember
	if p.tok.Kind == lexer.RBRACE {
		return members, nil
	}
	for {
		if p.tok.Kind != lexer.STRING {
			return nil, p.syntaxError("expected string object key")
		}
		key := lexer.Unquote(p.tok.Text)
		p.advance()
		if err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		members = append(members, ast.ObjectMember{Key: key, Value: val})
		if p.tok.Kind == lexer.COMMA {
			p.advance()
			continue
		}
		break
	}
	return members, nil
}

// parseArgList parses a verb/event call's argument list: positional values
// followed by named args, each `name=value`, comma-separated.
func (p *Parser) parseArgList() ([]ast.Value, []ast.NamedArg, error) {
	var positional []ast.Value
	var named []ast.NamedArg
	if p.tok.Kind == lexer.RPAREN {
		return positional, named, nil
	}
	seenNamed := false
	for {
		if p.tok.Kind == lexer.IDENT && p.peekIsNamedArg() {
			name := p.tok.Text
			p.advance()
			if err := p.expect(lexer.EQ); err != nil {
				return nil, nil, err
			}
			val, err := p.parseValue()
			if err != nil {
				return nil, nil, err
			}
			named = append(named, ast.NamedArg{Name: name, Value: val})
			seenNamed = true
		} else {
			if seenNamed {
				return nil, nil, p.syntaxError("positional argument after named argument")
			}
			val, err := p.parseValue()
			if err != nil {
				return nil, nil, err
			}
			positional = append(positional, val)
		}
		if p.tok.Kind == lexer.COMMA {
			p.advance()
			continue
		}
		break
	}
	return positional, named, nil
}

// peekIsNamedArg reports whether the current IDENT token is immediately
// followed by '=' (not '=='), meaning it's a named-arg key rather than a
// bare path value.
func (p *Parser) peekIsNamedArg() bool {
	tok, err := p.lex.PeekNext()
	if err != nil {
		return false
	}
	return tok.Kind == lexer.EQ
}
