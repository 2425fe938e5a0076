// Package expr evaluates the verbatim expression text the parser captures
// on Query/Control/Subscribe/Action.PolicyExpr against a pluggable Context.
// It re-lexes that text with its own small recursive-descent evaluator
// (mirroring the parser package's precedence ladder) rather than
// re-parsing through pkg/sag/parser, since here tokens are reduced to
// values immediately instead of spans.
package expr

import (
	"strconv"
	"strings"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/context"
	"github.com/sentrius/sag/pkg/sag/lexer"
	"github.com/sentrius/sag/pkg/sag/sagerr"
)

type evaluator struct {
	lex *lexer.Lexer
	tok lexer.Token
	ctx context.Context
	err error
}

// Evaluate parses and evaluates expression against ctx. An empty or
// whitespace-only expression evaluates to Null, treating an absent
// constraint as a no-op.
func Evaluate(expression string, ctx context.Context) (ast.Value, error) {
	if strings.TrimSpace(expression) == "" {
		return ast.Null(), nil
	}
	e := &evaluator{lex: lexer.New(expression), ctx: ctx}
	e.advance()
	v, err := e.parseOr()
	if err != nil {
		return ast.Value{}, err
	}
	if e.tok.Kind != lexer.EOF {
		return ast.Value{}, sagerr.New(sagerr.InvalidExpression, "unexpected trailing input in expression: "+expression)
	}
	return v, nil
}

func (e *evaluator) advance() {
	tok, err := e.lex.Next()
	if err != nil {
		e.err = sagerr.New(sagerr.InvalidExpression, err.Error())
		e.tok = lexer.Token{Kind: lexer.EOF}
		return
	}
	e.tok = tok
}

func (e *evaluator) parseOr() (ast.Value, error) {
	left, err := e.parseAnd()
	if err != nil {
		return ast.Value{}, err
	}
	for e.tok.Kind == lexer.OR {
		e.advance()
		right, err := e.parseAnd()
		if err != nil {
			return ast.Value{}, err
		}
		left = ast.Bool(toBoolean(left) || toBoolean(right))
	}
	return left, e.err
}

func (e *evaluator) parseAnd() (ast.Value, error) {
	left, err := e.parseRel()
	if err != nil {
		return ast.Value{}, err
	}
	for e.tok.Kind == lexer.AND {
		e.advance()
		right, err := e.parseRel()
		if err != nil {
			return ast.Value{}, err
		}
		left = ast.Bool(toBoolean(left) && toBoolean(right))
	}
	return left, e.err
}

func (e *evaluator) parseRel() (ast.Value, error) {
	left, err := e.parseAdd()
	if err != nil {
		return ast.Value{}, err
	}
	for isRelOp(e.tok.Kind) {
		op := e.tok.Kind
		e.advance()
		right, err := e.parseAdd()
		if err != nil {
			return ast.Value{}, err
		}
		result, err := evaluateRelational(left, right, op)
		if err != nil {
			return ast.Value{}, err
		}
		left = ast.Bool(result)
	}
	return left, e.err
}

func isRelOp(k lexer.TokenKind) bool {
	switch k {
	case lexer.EQEQ, lexer.NEQ, lexer.GT, lexer.LT, lexer.GE, lexer.LE:
		return true
	}
	return false
}

func (e *evaluator) parseAdd() (ast.Value, error) {
	left, err := e.parseMul()
	if err != nil {
		return ast.Value{}, err
	}
	for e.tok.Kind == lexer.PLUS || e.tok.Kind == lexer.MINUS {
		op := e.tok.Kind
		e.advance()
		right, err := e.parseMul()
		if err != nil {
			return ast.Value{}, err
		}
		left, err = evaluateArithmetic(left, right, op)
		if err != nil {
			return ast.Value{}, err
		}
	}
	return left, e.err
}

func (e *evaluator) parseMul() (ast.Value, error) {
	left, err := e.parsePrimary()
	if err != nil {
		return ast.Value{}, err
	}
	for e.tok.Kind == lexer.STAR || e.tok.Kind == lexer.SLASH {
		op := e.tok.Kind
		e.advance()
		right, err := e.parsePrimary()
		if err != nil {
			return ast.Value{}, err
		}
		left, err = evaluateArithmetic(left, right, op)
		if err != nil {
			return ast.Value{}, err
		}
	}
	return left, e.err
}

func (e *evaluator) parsePrimary() (ast.Value, error) {
	if e.err != nil {
		return ast.Value{}, e.err
	}
	switch e.tok.Kind {
	case lexer.LPAREN:
		e.advance()
		v, err := e.parseOr()
		if err != nil {
			return ast.Value{}, err
		}
		if e.tok.Kind != lexer.RPAREN {
			return ast.Value{}, sagerr.New(sagerr.InvalidExpression, "expected ')'")
		}
		e.advance()
		return v, nil
	case lexer.MINUS:
		e.advance()
		v, err := e.parsePrimary()
		if err != nil {
			return ast.Value{}, err
		}
		switch v.Kind {
		case ast.KindInt:
			return ast.Int(-v.Int), nil
		case ast.KindFloat:
			return ast.Float(-v.Flt), nil
		}
		return ast.Value{}, sagerr.New(sagerr.InvalidExpression, "unary '-' requires a numeric value")
	case lexer.STRING:
		s := lexer.Unquote(e.tok.Text)
		e.advance()
		return ast.Str(s), nil
	case lexer.INT:
		n, err := strconv.ParseInt(e.tok.Text, 10, 64)
		if err != nil {
			return ast.Value{}, sagerr.New(sagerr.InvalidExpression, "invalid integer literal "+e.tok.Text)
		}
		e.advance()
		return ast.Int(n), nil
	case lexer.FLOAT:
		f, err := strconv.ParseFloat(e.tok.Text, 64)
		if err != nil {
			return ast.Value{}, sagerr.New(sagerr.InvalidExpression, "invalid float literal "+e.tok.Text)
		}
		e.advance()
		return ast.Float(f), nil
	case lexer.BOOL:
		b := e.tok.Text == "true"
		e.advance()
		return ast.Bool(b), nil
	case lexer.IDENT:
		if e.tok.Text == "null" {
			e.advance()
			return ast.Null(), nil
		}
		path := e.tok.Text
		e.advance()
		v, ok := e.ctx.Get(path)
		if !ok {
			return ast.Null(), nil
		}
		return v, nil
	}
	return ast.Value{}, sagerr.New(sagerr.InvalidExpression, "unexpected token in expression: "+e.tok.Text)
}

func evaluateRelational(left, right ast.Value, op lexer.TokenKind) (bool, error) {
	if left.Kind == ast.KindNull || right.Kind == ast.KindNull {
		switch op {
		case lexer.EQEQ:
			return left.Kind == ast.KindNull && right.Kind == ast.KindNull, nil
		case lexer.NEQ:
			return !(left.Kind == ast.KindNull && right.Kind == ast.KindNull), nil
		default:
			return false, nil
		}
	}

	switch op {
	case lexer.EQEQ:
		return compareEquals(left, right), nil
	case lexer.NEQ:
		return !compareEquals(left, right), nil
	case lexer.GT, lexer.LT, lexer.GE, lexer.LE:
		ln, lok := toNumber(left)
		rn, rok := toNumber(right)
		if !lok || !rok {
			return false, sagerr.New(sagerr.InvalidExpression, "ordering comparison requires both operands numeric")
		}
		switch op {
		case lexer.GT:
			return ln > rn, nil
		case lexer.LT:
			return ln < rn, nil
		case lexer.GE:
			return ln >= rn, nil
		case lexer.LE:
			return ln <= rn, nil
		}
	}
	return false, nil
}

func compareEquals(left, right ast.Value) bool {
	ln, lok := toNumber(left)
	rn, rok := toNumber(right)
	if lok && rok {
		return ln == rn
	}
	return left.Equal(right)
}

func evaluateArithmetic(left, right ast.Value, op lexer.TokenKind) (ast.Value, error) {
	ln, lok := toNumber(left)
	rn, rok := toNumber(right)
	if !lok || !rok {
		return ast.Value{}, sagerr.New(sagerr.InvalidExpression, "arithmetic requires numeric operands")
	}
	switch op {
	case lexer.PLUS:
		return ast.Float(ln + rn), nil
	case lexer.MINUS:
		return ast.Float(ln - rn), nil
	case lexer.STAR:
		return ast.Float(ln * rn), nil
	case lexer.SLASH:
		if rn == 0 {
			return ast.Value{}, sagerr.New(sagerr.DivisionByZero, "division by zero")
		}
		return ast.Float(ln / rn), nil
	}
	return ast.Value{}, sagerr.New(sagerr.InvalidExpression, "unknown arithmetic operator")
}

func toNumber(v ast.Value) (float64, bool) {
	switch v.Kind {
	case ast.KindInt:
		return float64(v.Int), true
	case ast.KindFloat:
		return v.Flt, true
	}
	return 0, false
}

func toBoolean(v ast.Value) bool {
	switch v.Kind {
	case ast.KindBool:
		return v.Bool
	case ast.KindInt:
		return v.Int != 0
	case ast.KindFloat:
		return v.Flt != 0
	case ast.KindString:
		return len(v.Str) > 0
	case ast.KindNull:
		return false
	}
	return true
}
