// Package scope implements the static scope analyzer ("make_scope")
// that the optimizer re-runs at the top of every fixed-point
// iteration. It always runs on CPS-transformed AST: by the time a
// program reaches this stage, package cps has already dissolved every
// Let into a Call of an anonymous Lambda, so the Let case below is a
// defensive fallback, not a path the normal pipeline exercises.
//
// This analyzer never fails. A free variable is hoisted into the
// global frame on first sight rather than rejected — the distinction
// between a merely-unresolved static name and an actually-undefined
// one only matters at interpretation time, against the separate
// dynamic environment in package runtime.
package scope

import "github.com/lambda-lang/lambdac/ast"

// Analyze walks prog top-down once, building a fresh frame chain
// rooted at a new global frame, and returns that root. Every node in
// prog (and its non-nil children) gets its Env populated with the
// frame active at that position; every Var gets its Define populated,
// global or otherwise.
func Analyze(prog ast.Node) *ast.Frame {
	root := ast.NewFrame(nil)
	walk(prog, root)
	return root
}

func walk(node ast.Node, frame *ast.Frame) {
	if node == nil {
		return
	}
	ast.SetEnv(node, frame)

	switch n := node.(type) {
	case *ast.Literal:
		// no children

	case *ast.Var:
		_, binding := frame.Lookup(n.Name)
		if binding == nil {
			binding = frame.Root().Define(n.Name, ast.GlobalBinding)
		}
		n.Define = binding
		binding.Refs = append(binding.Refs, n)

	case *ast.Assign:
		walk(n.Left, frame)
		walk(n.Right, frame)
		if v, ok := n.Left.(*ast.Var); ok && v.Define != nil {
			v.Define.Assigned++
			v.Define.CurrentValue = n.Right
		}

	case *ast.Binary:
		walk(n.Left, frame)
		walk(n.Right, frame)

	case *ast.If:
		walk(n.Cond, frame)
		walk(n.Then, frame)
		walk(n.Else, frame)

	case *ast.Lambda:
		body := frame.Extend()
		for _, p := range n.Params {
			body.Define(p, ast.LambdaParam)
		}
		for _, p := range n.IIFEParams {
			body.Define(p, ast.IIFEParam)
		}
		walk(n.Body, body)

	case *ast.Let:
		// Unreached in the normal CPS-first pipeline; handled here only
		// so a stray Let does not panic a defensive caller.
		cur := frame
		for _, vd := range n.Vardefs {
			walk(vd.Define, cur)
			cur = cur.Extend()
			cur.Define(vd.Name, ast.LambdaParam)
		}
		walk(n.Body, cur)

	case *ast.Call:
		walk(n.Func, frame)
		for _, a := range n.Args {
			walk(a, frame)
		}

	case *ast.Prog:
		for _, s := range n.Stmts {
			walk(s, frame)
		}

	case *ast.Raw:
		// opaque, no children

	case *ast.VarDef:
		walk(n.Define, frame)
	}
}
