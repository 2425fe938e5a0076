package parser

import "github.com/sentrius/sag/pkg/sag/lexer"

// parseExprText parses one expression (the precedence ladder: ||, &&,
// relational, additive, multiplicative, primary) and returns its verbatim
// source text, without evaluating it. The AST stores expression text raw
// so the evaluator can be a thin, re-entrant wrapper over the same
// grammar.
func (p *Parser) parseExprText() (string, error) {
	start := p.tok.Offset
	if err := p.skipOr(); err != nil {
		return "", err
	}
	end := p.prevEnd
	return p.lex.Slice(start, end), nil
}

func (p *Parser) skipOr() error {
	if err := p.skipAnd(); err != nil {
		return err
	}
	for p.tok.Kind == lexer.OR {
		p.advance()
		if err := p.skipAnd(); err != nil {
			return err
		}
	}
	return p.err
}

func (p *Parser) skipAnd() error {
	if err := p.skipRel(); err != nil {
		return err
	}
	for p.tok.Kind == lexer.AND {
		p.advance()
		if err := p.skipRel(); err != nil {
			return err
		}
	}
	return p.err
}

func (p *Parser) skipRel() error {
	if err := p.skipAdd(); err != nil {
		return err
	}
	for isRelOp(p.tok.Kind) {
		p.advance()
		if err := p.skipAdd(); err != nil {
			return err
		}
	}
	return p.err
}

func isRelOp(k lexer.TokenKind) bool {
	switch k {
	case lexer.EQEQ, lexer.NEQ, lexer.GT, lexer.LT, lexer.GE, lexer.LE:
		return true
	}
	return false
}

func (p *Parser) skipAdd() error {
	if err := p.skipMul(); err != nil {
		return err
	}
	for p.tok.Kind == lexer.PLUS || p.tok.Kind == lexer.MINUS {
		p.advance()
		if err := p.skipMul(); err != nil {
			return err
		}
	}
	return p.err
}

func (p *Parser) skipMul() error {
	if err := p.skipPrimary(); err != nil {
		return err
	}
	for p.tok.Kind == lexer.STAR || p.tok.Kind == lexer.SLASH {
		p.advance()
		if err := p.skipPrimary(); err != nil {
			return err
		}
	}
	return p.err
}

func (p *Parser) skipPrimary() error {
	if p.tok.Kind == lexer.LPAREN {
		p.advance()
		if err := p.skipOr(); err != nil {
			return err
		}
		return p.expect(lexer.RPAREN)
	}
	_, err := p.parseValue()
	return err
}
