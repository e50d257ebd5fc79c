// Package parser builds a λ-lang AST from a token stream using
// precedence climbing. It performs two parse-time desugarings —
// short-circuit && / || and named let — so every later stage only
// ever sees the smaller core node set in package ast.
package parser

import (
	"fmt"
	"strconv"

	"github.com/lambda-lang/lambdac/ast"
	"github.com/lambda-lang/lambdac/gensym"
	"github.com/lambda-lang/lambdac/lexer"
)

// ParseError is a fatal parse error carrying the offending token's
// source position. Parsing does not recover past the first one.
type ParseError struct {
	Line, Col int
	Msg       string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[%d:%d] %s", e.Line, e.Col, e.Msg)
}

// precedence is the binary operator table. Every entry not
// present is not an operator and stops expression parsing.
var precedence = map[string]int{
	"=":  1,
	"||": 2,
	"&&": 3,
	"<":  7, ">": 7, "<=": 7, ">=": 7, "==": 7, "!=": 7,
	"+": 10, "-": 10,
	"*": 20, "/": 20, "%": 20,
}

// Parser consumes a Lexer's token stream and produces an ast.Node.
type Parser struct {
	lx  *lexer.Lexer
	cur lexer.Token
	gs  *gensym.Gensym
}

// New creates a parser over src with its own private gensym counter.
// Use NewWithGensym when the parser is one stage of a larger pipeline
// that must share freshness with the CPS transform.
func New(src string) (*Parser, error) {
	return NewWithGensym(src, gensym.New())
}

// NewWithGensym creates a parser over src whose parse-time gensyms
// (the || rewrite's throwaway temporary) are drawn from gs.
func NewWithGensym(src string, gs *gensym.Gensym) (*Parser, error) {
	p := &Parser{lx: lexer.New(src), gs: gs}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	tok, err := p.lx.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Line: p.cur.Line, Col: p.cur.Col, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) atPunc(ch string) bool {
	return p.cur.Kind == lexer.Punc && p.cur.Value == ch
}

func (p *Parser) expectPunc(ch string) error {
	if !p.atPunc(ch) {
		return p.errorf("expected %q, got %q", ch, p.cur.Value)
	}
	return p.advance()
}

// Parse parses the entire token stream as a top-level Prog: zero or
// more ;-separated expressions with an optional trailing ;.
func (p *Parser) Parse() (ast.Node, error) {
	prog, err := p.parseSequence(func(t lexer.Token) bool { return t.IsNull() })
	if err != nil {
		return nil, err
	}
	if !p.cur.IsNull() {
		return nil, p.errorf("unexpected trailing token %q", p.cur.Value)
	}
	return prog, nil
}

// parseSequence implements "expression (;expression)* ;?" up to the
// point stop reports true, used for both the top-level program and
// { ... } blocks.
func (p *Parser) parseSequence(stop func(lexer.Token) bool) (*ast.Prog, error) {
	var stmts []ast.Node
	for !stop(p.cur) {
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, e)
		if p.atPunc(";") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return &ast.Prog{Stmts: stmts}, nil
}

// parseExpression is the precedence-climbing core. Every table entry,
// including "=", is left associative: "a = b = c" parses as
// "(a = b) = c". combine builds that Assign as is; the interpreter's
// evalAssign rejects it, since the left side of the outer "=" is
// itself an Assign, not a Var.
func (p *Parser) parseExpression(minPrec int) (ast.Node, error) {
	left, err := p.parseCallChain()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == lexer.Op {
		op := p.cur.Value
		prec, ok := precedence[op]
		if !ok || prec < minPrec {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseExpression(prec + 1)
		if err != nil {
			return nil, err
		}
		left = p.combine(op, left, right)
	}
	return left, nil
}

// combine builds the node for a binary operator, applying the
// parse-time short-circuit rewrite for && and ||.
func (p *Parser) combine(op string, left, right ast.Node) ast.Node {
	switch op {
	case "=":
		return &ast.Assign{Left: left, Right: right}
	case "||":
		t := p.gs.Fresh("t")
		tv := &ast.Var{Name: t}
		return &ast.Call{
			Func: &ast.Lambda{Params: []string{t}, Body: &ast.If{Cond: tv, Then: tv, Else: right}},
			Args: []ast.Node{left},
		}
	case "&&":
		return &ast.If{Cond: left, Then: right, Else: ast.False()}
	default:
		return &ast.Binary{Op: op, Left: left, Right: right}
	}
}

// parseCallChain parses one atom, then any number of trailing "(...)"
// call suffixes, so curried application like f(x)(y) chains correctly.
func (p *Parser) parseCallChain() (ast.Node, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.atPunc("(") {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		atom = &ast.Call{Func: atom, Args: args}
	}
	return atom, nil
}

func (p *Parser) parseArgs() ([]ast.Node, error) {
	if err := p.expectPunc("("); err != nil {
		return nil, err
	}
	var args []ast.Node
	for !p.atPunc(")") {
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.atPunc(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectPunc(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseAtom() (ast.Node, error) {
	tok := p.cur
	switch {
	case p.atPunc("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if err := p.expectPunc(")"); err != nil {
			return nil, err
		}
		return e, nil

	case p.atPunc("{"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		prog, err := p.parseSequence(func(t lexer.Token) bool { return t.Kind == lexer.Punc && t.Value == "}" })
		if err != nil {
			return nil, err
		}
		if err := p.expectPunc("}"); err != nil {
			return nil, err
		}
		return prog, nil

	case tok.Kind == lexer.Num:
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf("malformed number literal %q", tok.Value)
		}
		return &ast.Literal{Value: v}, nil

	case tok.Kind == lexer.Str:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Value: tok.Value}, nil

	case tok.IsKw("true"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Value: true}, nil

	case tok.IsKw("false"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.False(), nil

	case tok.IsKw("if"):
		return p.parseIf()

	case tok.IsKw("let"):
		return p.parseLet()

	case tok.IsKw("lambda") || tok.IsKw("λ"):
		return p.parseLambda()

	case tok.IsKw("js"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Kind != lexer.Str {
			return nil, p.errorf("expected string literal after js, got %q", p.cur.Value)
		}
		text := p.cur.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Raw{Text: text}, nil

	case tok.Kind == lexer.Var:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Var{Name: tok.Value}, nil

	default:
		return nil, p.errorf("unexpected token %q", tok.Value)
	}
}

func (p *Parser) parseIf() (ast.Node, error) {
	if err := p.advance(); err != nil { // consume 'if'
		return nil, err
	}
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.cur.IsKw("then") {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	then, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	elseBranch := ast.Node(ast.False())
	if p.cur.IsKw("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseBranch, err = p.parseExpression(0)
		if err != nil {
			return nil, err
		}
	}
	return &ast.If{Cond: cond, Then: then, Else: elseBranch}, nil
}

func (p *Parser) parseLambda() (ast.Node, error) {
	if err := p.advance(); err != nil { // consume 'lambda'/'λ'
		return nil, err
	}
	name := ""
	if p.cur.Kind == lexer.Var {
		name = p.cur.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	return &ast.Lambda{Name: name, Params: params, Body: body}, nil
}

func (p *Parser) parseParamList() ([]string, error) {
	if err := p.expectPunc("("); err != nil {
		return nil, err
	}
	var params []string
	for !p.atPunc(")") {
		if p.cur.Kind != lexer.Var {
			return nil, p.errorf("expected parameter name, got %q", p.cur.Value)
		}
		params = append(params, p.cur.Value)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.atPunc(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectPunc(")"); err != nil {
		return nil, err
	}
	return params, nil
}

// rawVarDef is the parser's intermediate form for one let binding,
// before named vs. unnamed let decides how it gets desugared.
type rawVarDef struct {
	name string
	init ast.Node // nil when no initializer was given
}

func (p *Parser) parseLet() (ast.Node, error) {
	if err := p.advance(); err != nil { // consume 'let'
		return nil, err
	}
	name := ""
	if p.cur.Kind == lexer.Var {
		name = p.cur.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expectPunc("("); err != nil {
		return nil, err
	}
	var defs []rawVarDef
	for !p.atPunc(")") {
		if p.cur.Kind != lexer.Var {
			return nil, p.errorf("expected binding name, got %q", p.cur.Value)
		}
		dname := p.cur.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		var init ast.Node
		if p.cur.Kind == lexer.Op && p.cur.Value == "=" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			init = e
		}
		defs = append(defs, rawVarDef{name: dname, init: init})
		if p.atPunc(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectPunc(")"); err != nil {
		return nil, err
	}
	body, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	if name != "" {
		// Named let foo(x=e,...) body ~> Call(Lambda(foo,[x,...],body),[e,...]).
		params := make([]string, len(defs))
		args := make([]ast.Node, len(defs))
		for i, d := range defs {
			params[i] = d.name
			if d.init != nil {
				args[i] = d.init
			} else {
				args[i] = ast.False()
			}
		}
		return &ast.Call{
			Func: &ast.Lambda{Name: name, Params: params, Body: body},
			Args: args,
		}, nil
	}

	vardefs := make([]*ast.VarDef, len(defs))
	for i, d := range defs {
		vardefs[i] = &ast.VarDef{Name: d.name, Define: d.init}
	}
	return &ast.Let{Vardefs: vardefs, Body: body}, nil
}
