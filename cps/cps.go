// Package cps implements the continuation-passing-style transform:
// every value-producing AST form gains an explicit continuation
// argument. The transform itself is driven by a recursive function
// taking a *meta-level* continuation — a compile-time Go closure from
// AST to AST, never invoked at runtime — so the output is ordinary
// (if awkward-looking) λ-lang source, not anything host-specific.
// Downstream, package scope and package optimize operate on this
// output, never on pre-CPS trees.
package cps

import (
	"github.com/lambda-lang/lambdac/ast"
	"github.com/lambda-lang/lambdac/gensym"
)

// cont is the meta-level continuation: a Go function from the AST
// node representing a value to the AST node representing "the rest of
// the computation given that value". It runs once, at transform time.
type cont func(ast.Node) ast.Node

// Transform converts prog into CPS form, transforming against the
// distinguished outermost continuation: whatever value the program
// finally produces flows into Call(Var("β_TOPLEVEL"), [value]). The
// wrap is the continuation of the transform itself, not a shell
// slapped around the finished tree — that way the β_TOPLEVEL call
// lands at the program's actual value-delivery point and the output
// stays in proper CPS throughout.
func Transform(prog ast.Node, g *gensym.Gensym) ast.Node {
	return cps(prog, func(v ast.Node) ast.Node {
		return &ast.Call{
			Func: &ast.Var{Name: "β_TOPLEVEL"},
			Args: []ast.Node{v},
		}
	}, g)
}

// makeContinuation reifies k as a one-parameter lambda λR. k(Var(R)),
// the form a CPS'd callee actually invokes.
func makeContinuation(k cont, g *gensym.Gensym) ast.Node {
	r := g.Fresh("R")
	return &ast.Lambda{Params: []string{r}, Body: k(&ast.Var{Name: r})}
}

func cps(node ast.Node, k cont, g *gensym.Gensym) ast.Node {
	switch n := node.(type) {
	case *ast.Literal, *ast.Var, *ast.Raw:
		return k(node)

	case *ast.Binary:
		return cps(n.Left, func(l ast.Node) ast.Node {
			return cps(n.Right, func(r ast.Node) ast.Node {
				return k(&ast.Binary{Op: n.Op, Left: l, Right: r})
			}, g)
		}, g)

	case *ast.Assign:
		return cps(n.Left, func(l ast.Node) ast.Node {
			return cps(n.Right, func(r ast.Node) ast.Node {
				return k(&ast.Assign{Left: l, Right: r})
			}, g)
		}, g)

	case *ast.Prog:
		return cpsProg(n.Stmts, k, g)

	case *ast.Let:
		return cpsLet(n, k, g)

	case *ast.If:
		return cpsIf(n, k, g)

	case *ast.Lambda:
		kName := g.Fresh("K")
		newBody := cps(n.Body, func(v ast.Node) ast.Node {
			return &ast.Call{Func: &ast.Var{Name: kName}, Args: []ast.Node{v}}
		}, g)
		params := make([]string, 0, len(n.Params)+1)
		params = append(params, kName)
		params = append(params, n.Params...)
		return k(&ast.Lambda{Name: n.Name, Params: params, Body: newBody})

	case *ast.Call:
		return cpsCall(n, k, g)

	default:
		// VarDef and any future opaque leaf: no sub-evaluation defined.
		return k(node)
	}
}

// cpsProg handles the empty / singleton / cons cases separately,
// preserving "sequence value is the last element".
func cpsProg(stmts []ast.Node, k cont, g *gensym.Gensym) ast.Node {
	switch len(stmts) {
	case 0:
		return k(&ast.Literal{Value: false})
	case 1:
		return cps(stmts[0], k, g)
	default:
		head, rest := stmts[0], stmts[1:]
		return cps(head, func(v0 ast.Node) ast.Node {
			return &ast.Prog{Stmts: []ast.Node{v0, cpsProg(rest, k, g)}}
		}, g)
	}
}

// cpsLet desugars one binding at a time into a Call of an anonymous,
// single-parameter Lambda wrapping the remaining bindings, then
// recurses — so by the time scope analysis runs, no Let node survives.
func cpsLet(n *ast.Let, k cont, g *gensym.Gensym) ast.Node {
	if len(n.Vardefs) == 0 {
		return cps(n.Body, k, g)
	}
	head, rest := n.Vardefs[0], n.Vardefs[1:]
	init := head.Define
	if init == nil {
		init = ast.False()
	}
	desugared := &ast.Call{
		Func: &ast.Lambda{Params: []string{head.Name}, Body: &ast.Let{Vardefs: rest, Body: n.Body}},
		Args: []ast.Node{init},
	}
	return cps(desugared, k, g)
}

// cpsIf avoids duplicating k across both branches by reifying it once
// as an outer lambda parameterized on a fresh continuation variable I.
// Each branch is then transformed against "deliver your value to I",
// so a branch that is itself a call stays a proper tail call into I
// rather than pretending the callee returns a value.
func cpsIf(n *ast.If, k cont, g *gensym.Gensym) ast.Node {
	i := g.Fresh("I")
	branch := func(r ast.Node) ast.Node {
		return &ast.Call{Func: &ast.Var{Name: i}, Args: []ast.Node{r}}
	}
	elseNode := n.Else
	if elseNode == nil {
		elseNode = ast.False()
	}
	body := cps(n.Cond, func(c ast.Node) ast.Node {
		return &ast.If{
			Cond: c,
			Then: cps(n.Then, branch, g),
			Else: cps(elseNode, branch, g),
		}
	}, g)
	return &ast.Call{
		Func: &ast.Lambda{Params: []string{i}, Body: body},
		Args: []ast.Node{makeContinuation(k, g)},
	}
}

// cpsCall evaluates the callee, then each argument left to right,
// before assembling the final call with the reified continuation
// prepended as the distinguished first argument.
func cpsCall(n *ast.Call, k cont, g *gensym.Gensym) ast.Node {
	return cps(n.Func, func(f ast.Node) ast.Node {
		return cpsArgs(n.Args, nil, func(args []ast.Node) ast.Node {
			full := make([]ast.Node, 0, len(args)+1)
			full = append(full, makeContinuation(k, g))
			full = append(full, args...)
			return &ast.Call{Func: f, Args: full}
		}, g)
	}, g)
}

func cpsArgs(args []ast.Node, acc []ast.Node, k func([]ast.Node) ast.Node, g *gensym.Gensym) ast.Node {
	if len(args) == 0 {
		return k(acc)
	}
	head, rest := args[0], args[1:]
	return cps(head, func(v ast.Node) ast.Node {
		next := make([]ast.Node, len(acc)+1)
		copy(next, acc)
		next[len(acc)] = v
		return cpsArgs(rest, next, k, g)
	}, g)
}
