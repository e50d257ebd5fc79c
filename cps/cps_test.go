package cps

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/lambda-lang/lambdac/ast"
	"github.com/lambda-lang/lambdac/gensym"
)

func diff(want, got ast.Node) string {
	opt := cmpopts.IgnoreUnexported(
		ast.Literal{}, ast.Var{}, ast.Assign{}, ast.Binary{}, ast.If{},
		ast.Lambda{}, ast.VarDef{}, ast.Let{}, ast.Call{}, ast.Prog{}, ast.Raw{},
	)
	return cmp.Diff(want, got, opt)
}

func topLevel(result ast.Node) ast.Node {
	return &ast.Call{Func: &ast.Var{Name: "β_TOPLEVEL"}, Args: []ast.Node{result}}
}

func TestTransform_AtomIsUnchangedUnderTopLevelWrap(t *testing.T) {
	got := Transform(&ast.Literal{Value: 1.0}, gensym.New())
	want := topLevel(&ast.Literal{Value: 1.0})
	assert.Empty(t, diff(want, got))
}

func TestTransform_BinaryOfAtomsNeedsNoIntermediateCall(t *testing.T) {
	src := &ast.Binary{Op: "+", Left: &ast.Literal{Value: 1.0}, Right: &ast.Literal{Value: 2.0}}
	got := Transform(src, gensym.New())
	want := topLevel(&ast.Binary{Op: "+", Left: &ast.Literal{Value: 1.0}, Right: &ast.Literal{Value: 2.0}})
	assert.Empty(t, diff(want, got))
}

func TestTransform_EmptyProgBecomesFalse(t *testing.T) {
	got := Transform(&ast.Prog{}, gensym.New())
	want := topLevel(&ast.Literal{Value: false})
	assert.Empty(t, diff(want, got))
}

func TestTransform_IfAllocatesFreshContinuationVariable(t *testing.T) {
	src := &ast.If{Cond: &ast.Literal{Value: true}, Then: &ast.Literal{Value: 1.0}, Else: &ast.Literal{Value: 2.0}}
	got := Transform(src, gensym.New())

	// The continuation lambda handed to the If IIFE is where the
	// program's value is delivered, so the β_TOPLEVEL call lands inside
	// it rather than around the whole tree.
	want := &ast.Call{
		Func: &ast.Lambda{Params: []string{"β_I1"}, Body: &ast.If{
			Cond: &ast.Literal{Value: true},
			Then: &ast.Call{Func: &ast.Var{Name: "β_I1"}, Args: []ast.Node{&ast.Literal{Value: 1.0}}},
			Else: &ast.Call{Func: &ast.Var{Name: "β_I1"}, Args: []ast.Node{&ast.Literal{Value: 2.0}}},
		}},
		Args: []ast.Node{&ast.Lambda{Params: []string{"β_R2"}, Body: topLevel(&ast.Var{Name: "β_R2"})}},
	}
	assert.Empty(t, diff(want, got))
}

func TestTransform_LambdaGainsLeadingContinuationParam(t *testing.T) {
	src := &ast.Lambda{Params: []string{"x"}, Body: &ast.Var{Name: "x"}}
	got := Transform(src, gensym.New())

	want := topLevel(&ast.Lambda{
		Params: []string{"β_K1", "x"},
		Body:   &ast.Call{Func: &ast.Var{Name: "β_K1"}, Args: []ast.Node{&ast.Var{Name: "x"}}},
	})
	assert.Empty(t, diff(want, got))
}

func TestTransform_CallPrependsReifiedContinuation(t *testing.T) {
	src := &ast.Call{Func: &ast.Var{Name: "f"}, Args: []ast.Node{&ast.Literal{Value: 1.0}}}
	got := Transform(src, gensym.New())

	// f's value never "returns" — it flows through the prepended
	// continuation, which is what forwards it to β_TOPLEVEL.
	want := &ast.Call{
		Func: &ast.Var{Name: "f"},
		Args: []ast.Node{
			&ast.Lambda{Params: []string{"β_R1"}, Body: topLevel(&ast.Var{Name: "β_R1"})},
			&ast.Literal{Value: 1.0},
		},
	}
	assert.Empty(t, diff(want, got))
}

func TestTransform_LetDesugarsAwayBeforeScopeSeesIt(t *testing.T) {
	src := &ast.Let{
		Vardefs: []*ast.VarDef{{Name: "x", Define: &ast.Literal{Value: 1.0}}},
		Body:    &ast.Var{Name: "x"},
	}
	got := Transform(src, gensym.New())

	var hasLet func(ast.Node) bool
	hasLet = func(n ast.Node) bool {
		switch v := n.(type) {
		case nil:
			return false
		case *ast.Let:
			return true
		case *ast.Call:
			if hasLet(v.Func) {
				return true
			}
			for _, a := range v.Args {
				if hasLet(a) {
					return true
				}
			}
		case *ast.Lambda:
			return hasLet(v.Body)
		case *ast.If:
			return hasLet(v.Cond) || hasLet(v.Then) || hasLet(v.Else)
		case *ast.Prog:
			for _, s := range v.Stmts {
				if hasLet(s) {
					return true
				}
			}
		}
		return false
	}
	assert.False(t, hasLet(got))
}

func TestTransform_ProgSequencesValuesPreservingLastAsResult(t *testing.T) {
	src := &ast.Prog{Stmts: []ast.Node{&ast.Literal{Value: 1.0}, &ast.Literal{Value: 2.0}}}
	got := Transform(src, gensym.New())

	// "Sequence value is the last element": the continuation lands on
	// the final statement, not around the whole sequence.
	want := &ast.Prog{Stmts: []ast.Node{
		&ast.Literal{Value: 1.0},
		topLevel(&ast.Literal{Value: 2.0}),
	}}
	assert.Empty(t, diff(want, got))
}
