// Package optimize implements the whole-program fixed-point
// optimizer: repeatedly re-run the static analyzer and rewrite the
// tree until a whole pass makes no further simplification. The
// rewrites applied are:
//
//  1. Prog folding: empty sequences become false, one-element
//     sequences dissolve, pure leading statements are dropped.
//  2. If folding on conditions that are literals or provably constant
//     variables with a known literal/lambda value.
//  3. Binary constant folding when both operands are literals.
//  4. IIFE unwrapping: a call of an anonymous lambda inside another
//     lambda becomes assignments to hoisted locals plus the inlined
//     body. Never at top level — there is no enclosing frame to hoist
//     into.
//  5. Assign elimination: dead stores vanish; a constant-to-constant
//     copy propagates.
//  6. The constant-variable predicate backing 2 and 5: one-assignment
//     globals/iife-locals, or never-assigned lambda params.
//  7. η-reduction of lambdas that only forward their params to an
//     unassigned variable (tail-call elision for continuations).
//  8. Pruning of iife_params whose binding lost its last reference.
//
// It operates on CPS-transformed AST and must never fail — a rewrite
// rule that can't fire for want of metadata just leaves the node as it
// found it.
package optimize

import (
	"github.com/lambda-lang/lambdac/ast"
	"github.com/lambda-lang/lambdac/gensym"
	"github.com/lambda-lang/lambdac/scope"
	"github.com/lambda-lang/lambdac/values"
)

// ctx threads the mutable pieces a rewrite pass needs: the shared
// change counter, the gensym source for IIFE-unwrap renaming, and —
// only while inside a lambda body — that lambda's frame plus the
// slice collecting its surviving/new iife_params. Both are nil at the
// outermost level, which is what keeps IIFE unwrapping off the top
// level.
type ctx struct {
	changes     *int
	g           *gensym.Gensym
	lambdaFrame *ast.Frame
	iifeParams  *[]string
}

// Run iterates analyze + rewrite to a fixed point, then analyzes one
// final time so downstream emission sees fresh metadata.
func Run(prog ast.Node, g *gensym.Gensym) ast.Node {
	for {
		scope.Analyze(prog)
		changes := 0
		// lambdaFrame stays nil at the outermost level: IIFE unwrapping
		// needs an enclosing lambda to hoist the params into, so a
		// top-level Call(Lambda, args) is left alone.
		root := &ctx{changes: &changes, g: g}
		prog = rewrite(prog, root)
		if changes == 0 {
			break
		}
	}
	scope.Analyze(prog)
	return prog
}

func rewrite(node ast.Node, c *ctx) ast.Node {
	switch n := node.(type) {
	case *ast.Literal:
		return n
	case *ast.Var:
		return n
	case *ast.Raw:
		return n
	case *ast.Binary:
		return rewriteBinary(n, c)
	case *ast.If:
		return rewriteIf(n, c)
	case *ast.Assign:
		return rewriteAssign(n, c)
	case *ast.Call:
		return rewriteCall(n, c)
	case *ast.Lambda:
		return rewriteLambda(n, c)
	case *ast.Prog:
		return rewriteProg(n, c)
	case *ast.Let:
		return rewriteLet(n, c)
	case *ast.VarDef:
		return &ast.VarDef{Name: n.Name, Define: rewriteOrNil(n.Define, c)}
	default:
		return node
	}
}

func rewriteOrNil(n ast.Node, c *ctx) ast.Node {
	if n == nil {
		return nil
	}
	return rewrite(n, c)
}

// rewriteProg implements rule 1. The leading-pure-statement drop loop
// and the flat per-element rewrite below are deliberately iterative
// rather than a literal right-nested Prog([head, optTail]) — building
// a fresh single-element wrapper on every pass (as the nested form
// does for a two-statement tail) would count as a "change" forever and
// the fixed point would never converge. A flat Prog is an observably
// identical sequence.
func rewriteProg(n *ast.Prog, c *ctx) ast.Node {
	stmts := n.Stmts
	for len(stmts) > 1 && isPure(stmts[0]) {
		stmts = stmts[1:]
		*c.changes++
	}
	switch len(stmts) {
	case 0:
		*c.changes++
		return &ast.Literal{Value: false}
	case 1:
		// Not counted as a change: unwrapping a one-element sequence is
		// representation-only, and counting it would cost a whole extra
		// pass every time one appears.
		return rewrite(stmts[0], c)
	default:
		out := make([]ast.Node, len(stmts))
		for i, s := range stmts {
			out[i] = rewrite(s, c)
		}
		return &ast.Prog{Stmts: out}
	}
}

// rewriteIf implements rule 2.
func rewriteIf(n *ast.If, c *ctx) ast.Node {
	if _, ok := n.Cond.(*ast.Literal); ok {
		*c.changes++
		if ast.IsFalse(n.Cond) {
			return rewrite(n.Else, c)
		}
		return rewrite(n.Then, c)
	}
	if v, ok := n.Cond.(*ast.Var); ok && v.Define != nil && isConstant(v.Define) {
		// Only a known shape decides the branch. A constant variable
		// whose recorded value is a call, another variable, or nothing
		// at all (a never-assigned lambda param) proves nothing about
		// truthiness.
		switch cv := v.Define.CurrentValue.(type) {
		case *ast.Literal:
			*c.changes++
			if ast.IsFalse(cv) {
				return rewrite(n.Else, c)
			}
			return rewrite(n.Then, c)
		case *ast.Lambda:
			*c.changes++
			return rewrite(n.Then, c)
		}
	}
	return &ast.If{Cond: rewrite(n.Cond, c), Then: rewrite(n.Then, c), Else: rewrite(n.Else, c)}
}

// rewriteBinary implements rule 3.
func rewriteBinary(n *ast.Binary, c *ctx) ast.Node {
	left := rewrite(n.Left, c)
	right := rewrite(n.Right, c)
	if ll, ok := left.(*ast.Literal); ok {
		if rl, ok := right.(*ast.Literal); ok {
			if v, err := values.ApplyBinary(n.Op, ll.Value, rl.Value); err == nil {
				*c.changes++
				return &ast.Literal{Value: v}
			}
		}
	}
	return &ast.Binary{Op: n.Op, Left: left, Right: right}
}

// rewriteCall implements rule 4 (dispatching to unwrapIIFE) and the
// ordinary recursive case.
func rewriteCall(n *ast.Call, c *ctx) ast.Node {
	if lam, ok := n.Func.(*ast.Lambda); ok && lam.Name == "" && c.lambdaFrame != nil {
		*c.changes++
		return unwrapIIFE(n, lam, c)
	}
	args := make([]ast.Node, len(n.Args))
	for i, a := range n.Args {
		args[i] = rewrite(a, c)
	}
	return &ast.Call{Func: rewrite(n.Func, c), Args: args}
}

func argOrFalse(args []ast.Node, i int) ast.Node {
	if i < len(args) {
		return args[i]
	}
	return ast.False()
}

// unwrapIIFE implements rule 4's body: flatten Call(Lambda, args) into
// a sequence of assignments to (possibly renamed) locals plus the
// inlined, optimized body.
func unwrapIIFE(call *ast.Call, lam *ast.Lambda, c *ctx) ast.Node {
	frame := c.lambdaFrame
	lamFrame := lam.Body.Env()

	assigns := make([]ast.Node, 0, len(lam.Params))
	for i, param := range lam.Params {
		name := param
		if collidesIn(frame, param) {
			name = c.g.Fresh(param + "$")
		}
		if lamFrame != nil {
			if _, binding := lamFrame.Lookup(param); binding != nil {
				for _, ref := range binding.Refs {
					ref.Name = name
				}
			}
		}
		frame.Define(name, ast.IIFEParam)
		*c.iifeParams = append(*c.iifeParams, name)
		assigns = append(assigns, &ast.Assign{
			Left:  &ast.Var{Name: name},
			Right: rewrite(argOrFalse(call.Args, i), c),
		})
	}
	body := rewrite(lam.Body, c)
	return &ast.Prog{Stmts: append(assigns, body)}
}

func collidesIn(frame *ast.Frame, name string) bool {
	if frame == nil {
		return false
	}
	for _, n := range frame.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// rewriteAssign implements rule 5, consulting rule 6's constant
// predicate for copy propagation.
func rewriteAssign(n *ast.Assign, c *ctx) ast.Node {
	if v, ok := n.Left.(*ast.Var); ok && v.Define != nil {
		b := v.Define
		if b.Assigned == len(b.Refs) {
			*c.changes++
			return rewrite(n.Right, c)
		}
		if isConstant(b) {
			if w, ok := n.Right.(*ast.Var); ok && w.Define != nil && isConstant(w.Define) {
				*c.changes++
				for _, ref := range b.Refs {
					ref.Name = w.Name
					ref.Define = w.Define
				}
				return &ast.Var{Name: w.Name, Define: w.Define}
			}
		}
	}
	return &ast.Assign{Left: rewrite(n.Left, c), Right: rewrite(n.Right, c)}
}

// isConstant implements rule 6.
func isConstant(b *ast.Binding) bool {
	switch b.Kind {
	case ast.GlobalBinding, ast.IIFEParam:
		return b.Assigned == 1
	case ast.LambdaParam:
		return b.Assigned == 0
	default:
		return false
	}
}

// rewriteLambda applies rule 7 (tail-call elision) before recursing
// into the body under a fresh per-lambda context, then applies rule 8
// (iife_params cleanup) using this pass's fresh metadata.
func rewriteLambda(n *ast.Lambda, c *ctx) ast.Node {
	if f, ok := isTrivialThunk(n); ok {
		*c.changes++
		return f
	}

	bodyFrame := n.Body.Env()
	kept := make([]string, 0, len(n.IIFEParams))
	for _, name := range n.IIFEParams {
		if bodyFrame != nil {
			if _, b := bodyFrame.Lookup(name); b != nil && len(b.Refs) > 0 {
				kept = append(kept, name)
				continue
			}
		}
		*c.changes++
	}

	inner := &ctx{changes: c.changes, g: c.g, lambdaFrame: bodyFrame, iifeParams: &kept}
	newBody := rewrite(n.Body, inner)
	return &ast.Lambda{Name: n.Name, Params: n.Params, Body: newBody, IIFEParams: *inner.iifeParams}
}

// isTrivialThunk detects rule 7's shape: body is Call(f, args) where
// args positionally echo params and f is an unassigned free variable.
func isTrivialThunk(n *ast.Lambda) (*ast.Var, bool) {
	call, ok := n.Body.(*ast.Call)
	if !ok {
		return nil, false
	}
	f, ok := call.Func.(*ast.Var)
	if !ok || f.Define == nil || f.Define.Assigned != 0 {
		return nil, false
	}
	for _, p := range n.Params {
		if p == f.Name {
			return nil, false
		}
	}
	if len(call.Args) != len(n.Params) {
		return nil, false
	}
	for i, p := range n.Params {
		v, ok := call.Args[i].(*ast.Var)
		if !ok || v.Name != p {
			return nil, false
		}
	}
	return f, true
}

// rewriteLet is a defensive fallback: by the time the optimizer runs,
// package cps has already dissolved every Let, so this path only
// structurally recurses without applying any of the numbered rules.
func rewriteLet(n *ast.Let, c *ctx) ast.Node {
	vardefs := make([]*ast.VarDef, len(n.Vardefs))
	for i, vd := range n.Vardefs {
		vardefs[i] = &ast.VarDef{Name: vd.Name, Define: rewriteOrNil(vd.Define, c)}
	}
	return &ast.Let{Vardefs: vardefs, Body: rewrite(n.Body, c)}
}

// isPure reports whether a subtree is free of calls and assignments,
// the purity rule Prog folding relies on. Raw is treated
// conservatively as impure: it is a verbatim host-target escape hatch
// and may have arbitrary effects.
func isPure(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.Literal, *ast.Var, *ast.Lambda:
		return true
	case *ast.Call, *ast.Assign, *ast.Raw:
		return false
	case *ast.Binary:
		return isPure(v.Left) && isPure(v.Right)
	case *ast.If:
		return isPure(v.Cond) && isPure(v.Then) && isPure(v.Else)
	case *ast.Let:
		for _, vd := range v.Vardefs {
			if vd.Define != nil && !isPure(vd.Define) {
				return false
			}
		}
		return isPure(v.Body)
	case *ast.Prog:
		for _, s := range v.Stmts {
			if !isPure(s) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
