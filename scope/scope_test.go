package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambda-lang/lambdac/ast"
)

func TestAnalyze_FreeVariableHoistedToGlobal(t *testing.T) {
	v := &ast.Var{Name: "x"}
	root := Analyze(v)
	require.NotNil(t, v.Define)
	assert.Equal(t, ast.GlobalBinding, v.Define.Kind)
	assert.Same(t, root, v.Env())
}

func TestAnalyze_LambdaParamsShadowGlobal(t *testing.T) {
	// lambda(x) x, referenced from a sibling global Var(x) too.
	param := &ast.Var{Name: "x"}
	lam := &ast.Lambda{Params: []string{"x"}, Body: param}
	outer := &ast.Var{Name: "x"}
	prog := &ast.Prog{Stmts: []ast.Node{lam, outer}}

	Analyze(prog)

	require.NotNil(t, param.Define)
	require.NotNil(t, outer.Define)
	assert.Equal(t, ast.LambdaParam, param.Define.Kind)
	assert.Equal(t, ast.GlobalBinding, outer.Define.Kind)
	assert.NotSame(t, param.Define, outer.Define)
}

func TestAnalyze_AssignIncrementsAssignedAndRecordsCurrentValue(t *testing.T) {
	target := &ast.Var{Name: "x"}
	rhs := &ast.Literal{Value: 42.0}
	assign := &ast.Assign{Left: target, Right: rhs}

	Analyze(assign)

	require.NotNil(t, target.Define)
	assert.Equal(t, 1, target.Define.Assigned)
	assert.Same(t, rhs, target.Define.CurrentValue)
}

func TestAnalyze_RefsAccumulateAcrossOccurrences(t *testing.T) {
	a := &ast.Var{Name: "x"}
	b := &ast.Var{Name: "x"}
	prog := &ast.Prog{Stmts: []ast.Node{a, b}}

	Analyze(prog)

	require.NotNil(t, a.Define)
	assert.Same(t, a.Define, b.Define)
	assert.Len(t, a.Define.Refs, 2)
}

func TestAnalyze_IIFEParamsGetIIFEParamKind(t *testing.T) {
	param := &ast.Var{Name: "t$1"}
	lam := &ast.Lambda{IIFEParams: []string{"t$1"}, Body: param}

	Analyze(lam)

	require.NotNil(t, param.Define)
	assert.Equal(t, ast.IIFEParam, param.Define.Kind)
}

func TestAnalyze_NestedLambdaResolvesOuterParam(t *testing.T) {
	inner := &ast.Var{Name: "x"}
	innerLam := &ast.Lambda{Params: nil, Body: inner}
	outerLam := &ast.Lambda{Params: []string{"x"}, Body: innerLam}

	Analyze(outerLam)

	require.NotNil(t, inner.Define)
	assert.Equal(t, ast.LambdaParam, inner.Define.Kind)
}
