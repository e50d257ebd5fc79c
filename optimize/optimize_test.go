package optimize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/lambda-lang/lambdac/ast"
	"github.com/lambda-lang/lambdac/gensym"
	"github.com/lambda-lang/lambdac/scope"
)

func diff(want, got ast.Node) string {
	opts := cmp.Options{
		cmpopts.IgnoreUnexported(
			ast.Literal{}, ast.Var{}, ast.Assign{}, ast.Binary{}, ast.If{},
			ast.Lambda{}, ast.VarDef{}, ast.Let{}, ast.Call{}, ast.Prog{}, ast.Raw{},
		),
		// Run leaves fresh analysis metadata on the tree it returns;
		// hand-built expectations carry none of it. Bindings also point
		// back at their referencing Vars, so comparing them would drag
		// a cyclic graph into the diff.
		cmpopts.IgnoreFields(ast.Var{}, "Define"),
		// A lambda whose iife_params were all pruned carries an empty
		// slice; hand-built expectations leave the field nil.
		cmpopts.EquateEmpty(),
	}
	return cmp.Diff(want, got, opts)
}

func analyzed(n ast.Node) ast.Node {
	scope.Analyze(n)
	return n
}

func TestRun_BinaryConstantFolding(t *testing.T) {
	src := analyzed(&ast.Binary{Op: "+", Left: &ast.Literal{Value: 2.0}, Right: &ast.Literal{Value: 3.0}})
	got := Run(src, gensym.New())
	assert.Empty(t, diff(&ast.Literal{Value: 5.0}, got))
}

func TestRun_IfOnFalseLiteralPicksElse(t *testing.T) {
	src := analyzed(&ast.If{
		Cond: &ast.Literal{Value: false},
		Then: &ast.Literal{Value: 1.0},
		Else: &ast.Literal{Value: 2.0},
	})
	got := Run(src, gensym.New())
	assert.Empty(t, diff(&ast.Literal{Value: 2.0}, got))
}

func TestRun_IfOnTrueLiteralPicksThen(t *testing.T) {
	src := analyzed(&ast.If{
		Cond: &ast.Literal{Value: true},
		Then: &ast.Literal{Value: 1.0},
		Else: &ast.Literal{Value: 2.0},
	})
	got := Run(src, gensym.New())
	assert.Empty(t, diff(&ast.Literal{Value: 1.0}, got))
}

func TestRun_ProgDropsPureLeadingStatements(t *testing.T) {
	src := analyzed(&ast.Prog{Stmts: []ast.Node{&ast.Literal{Value: 1.0}, &ast.Literal{Value: 2.0}}})
	got := Run(src, gensym.New())
	assert.Empty(t, diff(&ast.Literal{Value: 2.0}, got))
}

func TestRun_ProgKeepsImpureLeadingStatement(t *testing.T) {
	src := analyzed(&ast.Prog{Stmts: []ast.Node{
		&ast.Call{Func: &ast.Var{Name: "print"}, Args: []ast.Node{&ast.Literal{Value: 1.0}}},
		&ast.Literal{Value: 2.0},
	}})
	got := Run(src, gensym.New())

	want := &ast.Prog{Stmts: []ast.Node{
		&ast.Call{Func: &ast.Var{Name: "print"}, Args: []ast.Node{&ast.Literal{Value: 1.0}}},
		&ast.Literal{Value: 2.0},
	}}
	assert.Empty(t, diff(want, got))
}

// An IIFE inside a lambda whose parameter is only ever written unwinds
// completely: the unwrap turns the param into an iife-local, the dead
// store collapses, and the pruned local disappears from iife_params.
func TestRun_DeadAssignmentIsEliminated(t *testing.T) {
	iife := &ast.Call{
		Func: &ast.Lambda{Params: []string{"x"}, Body: &ast.Prog{Stmts: []ast.Node{
			&ast.Assign{Left: &ast.Var{Name: "x"}, Right: &ast.Literal{Value: 1.0}},
			&ast.Literal{Value: 9.0},
		}}},
		Args: []ast.Node{&ast.Literal{Value: 0.0}},
	}
	src := analyzed(&ast.Lambda{Params: []string{"k"}, Body: iife})

	got := Run(src, gensym.New())
	want := &ast.Lambda{Params: []string{"k"}, Body: &ast.Literal{Value: 9.0}}
	assert.Empty(t, diff(want, got))
}

// A global assigned once and never read disappears when the right-hand
// side is pure.
func TestRun_DeadGlobalAssignmentDisappears(t *testing.T) {
	src := analyzed(&ast.Prog{Stmts: []ast.Node{
		&ast.Assign{Left: &ast.Var{Name: "a"}, Right: &ast.Literal{Value: 1.0}},
		&ast.Literal{Value: 2.0},
	}})
	got := Run(src, gensym.New())
	assert.Empty(t, diff(&ast.Literal{Value: 2.0}, got))
}

// IIFE unwrapping needs an enclosing lambda to hoist into; at the top
// level the call is preserved as-is.
func TestRun_TopLevelIIFEIsNotUnwrapped(t *testing.T) {
	src := analyzed(&ast.Call{
		Func: &ast.Lambda{Params: []string{"x"}, Body: &ast.Var{Name: "x"}},
		Args: []ast.Node{&ast.Literal{Value: 1.0}},
	})
	got := Run(src, gensym.New())
	want := &ast.Call{
		Func: &ast.Lambda{Params: []string{"x"}, Body: &ast.Var{Name: "x"}},
		Args: []ast.Node{&ast.Literal{Value: 1.0}},
	}
	assert.Empty(t, diff(want, got))
}

// A never-assigned lambda parameter is "constant" but has no recorded
// value, so a conditional on it must not be folded — this is exactly
// the shape the parser's || rewrite produces.
func TestRun_IfOnParamWithUnknownValueIsKept(t *testing.T) {
	src := analyzed(&ast.Lambda{Params: []string{"t"}, Body: &ast.If{
		Cond: &ast.Var{Name: "t"},
		Then: &ast.Var{Name: "t"},
		Else: &ast.Literal{Value: "b"},
	}})
	got := Run(src, gensym.New())
	want := &ast.Lambda{Params: []string{"t"}, Body: &ast.If{
		Cond: &ast.Var{Name: "t"},
		Then: &ast.Var{Name: "t"},
		Else: &ast.Literal{Value: "b"},
	}}
	assert.Empty(t, diff(want, got))
}

func TestRun_IsIdempotentOnAlreadyOptimizedTree(t *testing.T) {
	src := analyzed(&ast.Literal{Value: 42.0})
	first := Run(src, gensym.New())
	second := Run(analyzed(first), gensym.New())
	assert.Empty(t, diff(first, second))
}
