package parser

import (
	"strconv"
	"strings"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/lexer"
)

// reasonOperators are the operators whose presence in a reason string
// marks it as an expression rather than free text.
var reasonOperators = []string{">=", "<=", "==", "!=", ">", "<", "&&", "||"}

func looksLikeExpression(s string) bool {
	for _, op := range reasonOperators {
		if strings.Contains(s, op) {
			return true
		}
	}
	return false
}

func (p *Parser) parseAction() (ast.Statement, error) {
	if err := p.expectKeyword("DO"); err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.IDENT {
		return nil, p.syntaxError("expected verb identifier")
	}
	verb := p.tok.Text
	p.advance()
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	args, namedArgs, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}

	action := ast.Action{Verb: verb, Args: args, NamedArgs: namedArgs}

	if p.tok.Kind == lexer.IDENT && p.tok.Text == "P" {
		// Lexed as IDENT "P" followed by COLON, per `P:policy(:expr)?`.
		p.advance()
		if err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		if p.tok.Kind != lexer.IDENT {
			return nil, p.syntaxError("expected policy name after 'P:'")
		}
		action.Policy = p.tok.Text
		action.HasPolicy = true
		p.advance()
		if p.tok.Kind == lexer.COLON {
			p.advance()
			expr, err := p.parseExprText()
			if err != nil {
				return nil, err
			}
			action.PolicyExpr = expr
			action.HasPolicyExpr = true
		}
	}

	if p.tok.Kind == lexer.IDENT && p.tok.Text == "PRIO" {
		p.advance()
		if err := p.expect(lexer.EQ); err != nil {
			return nil, err
		}
		if p.tok.Kind != lexer.PRIORITY {
			return nil, p.syntaxError("expected priority level after 'PRIO='")
		}
		action.Priority = ast.Priority(p.tok.Text)
		action.HasPriority = true
		p.advance()
	}

	if p.tok.Kind == lexer.IDENT && p.tok.Text == "BECAUSE" {
		p.advance()
		if p.tok.Kind == lexer.STRING {
			reasonText := lexer.Unquote(p.tok.Text)
			p.advance()
			action.Reason = reasonText
			action.HasReason = true
			action.ReasonIsExpr = looksLikeExpression(reasonText)
		} else {
			expr, err := p.parseExprText()
			if err != nil {
				return nil, err
			}
			action.Reason = expr
			action.HasReason = true
			action.ReasonIsExpr = true
		}
	}

	return action, nil
}

func (p *Parser) parseQuery() (ast.Statement, error) {
	if err := p.expectKeyword("Q"); err != nil {
		return nil, err
	}
	expr, err := p.parseExprText()
	if err != nil {
		return nil, err
	}
	q := ast.Query{Expression: expr}
	if p.tok.Kind == lexer.IDENT && p.tok.Text == "WHERE" {
		p.advance()
		constraint, err := p.parseExprText()
		if err != nil {
			return nil, err
		}
		q.Constraint = constraint
		q.HasConstraint = true
	}
	return q, nil
}

func (p *Parser) parseAssert() (ast.Statement, error) {
	if err := p.expectKeyword("A"); err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.IDENT {
		return nil, p.syntaxError("expected path in assert statement")
	}
	path := p.tok.Text
	p.advance()
	if err := p.expect(lexer.EQ); err != nil {
		return nil, err
	}
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return ast.Assert{Path: path, Value: val}, nil
}

func (p *Parser) parseControl() (ast.Statement, error) {
	if err := p.expectKeyword("IF"); err != nil {
		return nil, err
	}
	cond, err := p.parseExprText()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("THEN"); err != nil {
		return nil, err
	}
	thenStmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	ctrl := ast.Control{Condition: cond, Then: thenStmt}
	if p.tok.Kind == lexer.IDENT && p.tok.Text == "ELSE" {
		p.advance()
		elseStmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		ctrl.Else = elseStmt
		ctrl.HasElse = true
	}
	return ctrl, nil
}

func (p *Parser) parseEvent() (ast.Statement, error) {
	if err := p.expectKeyword("EVT"); err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.IDENT {
		return nil, p.syntaxError("expected event name")
	}
	name := p.tok.Text
	p.advance()
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	args, namedArgs, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return ast.Event{Name: name, Args: args, NamedArgs: namedArgs}, nil
}

func (p *Parser) parseError() (ast.Statement, error) {
	if err := p.expectKeyword("ERR"); err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.IDENT {
		return nil, p.syntaxError("expected error code")
	}
	code := p.tok.Text
	p.advance()
	errStmt := ast.Error{Code: code}
	if p.tok.Kind == lexer.STRING {
		errStmt.Message = lexer.Unquote(p.tok.Text)
		errStmt.HasMessage = true
		p.advance()
	}
	return errStmt, nil
}

func (p *Parser) parseFold() (ast.Statement, error) {
	if err := p.expectKeyword("FOLD"); err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.IDENT {
		return nil, p.syntaxError("expected fold id")
	}
	id := p.tok.Text
	p.advance()
	if p.tok.Kind != lexer.STRING {
		return nil, p.syntaxError("expected fold summary string")
	}
	summary := lexer.Unquote(p.tok.Text)
	p.advance()
	fold := ast.Fold{FoldID: id, Summary: summary}
	if p.tok.Kind == lexer.IDENT && p.tok.Text == "STATE" {
		p.advance()
		obj, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		fold.State = obj.Obj
		fold.HasState = true
	}
	return fold, nil
}

func (p *Parser) parseRecall() (ast.Statement, error) {
	if err := p.expectKeyword("RECALL"); err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.IDENT {
		return nil, p.syntaxError("expected fold id")
	}
	id := p.tok.Text
	p.advance()
	return ast.Recall{FoldID: id}, nil
}

// parseTopicPattern scans a topic pattern (SUB/UNSUB/KNOW's operand). The
// one-token lookahead in p.tok has already lexed generically past the
// pattern's start, so the lexer is rewound to that token's offset before
// the dedicated pattern scan runs; p.advance() then refills lookahead past
// the pattern's true end.
func (p *Parser) parseTopicPattern() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.lex.Rewind(p.tok)
	tok, err := p.lex.LexTopicPattern()
	if err != nil {
		return "", p.syntaxError(err.Error())
	}
	p.advance()
	return tok.Text, nil
}

func (p *Parser) parseSubscribe() (ast.Statement, error) {
	if err := p.expectKeyword("SUB"); err != nil {
		return nil, err
	}
	pattern, err := p.parseTopicPattern()
	if err != nil {
		return nil, err
	}
	sub := ast.Subscribe{Pattern: pattern}
	if p.tok.Kind == lexer.IDENT && p.tok.Text == "WHERE" {
		p.advance()
		filter, err := p.parseExprText()
		if err != nil {
			return nil, err
		}
		sub.Filter = filter
		sub.HasFilter = true
	}
	return sub, nil
}

func (p *Parser) parseUnsubscribe() (ast.Statement, error) {
	if err := p.expectKeyword("UNSUB"); err != nil {
		return nil, err
	}
	pattern, err := p.parseTopicPattern()
	if err != nil {
		return nil, err
	}
	return ast.Unsubscribe{Pattern: pattern}, nil
}

func (p *Parser) parseKnowledge() (ast.Statement, error) {
	if err := p.expectKeyword("KNOW"); err != nil {
		return nil, err
	}
	topic, err := p.parseTopicPattern()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.EQ); err != nil {
		return nil, err
	}
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("v"); err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.INT {
		return nil, p.syntaxError("expected version integer")
	}
	version, perr := strconv.ParseUint(p.tok.Text, 10, 64)
	if perr != nil {
		return nil, p.syntaxError("invalid version integer " + p.tok.Text)
	}
	p.advance()
	return ast.Knowledge{Topic: topic, Value: val, Version: version}, nil
}
