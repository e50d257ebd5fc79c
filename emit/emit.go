// Package emit pretty-prints an optimized, CPS-transformed AST as
// host-target source text: valid code in a mainstream scripting
// language with first-class functions, assuming two undeclared
// identifiers the surrounding host runtime supplies —
// GUARD(arguments, fn), the per-call trampoline guard every emitted
// function invokes on entry, and β_TOPLEVEL, the outermost
// continuation package cps delivers the whole program's value to.
//
// This stage never fails: every AST variant has a direct textual
// rendering, and a node package cps/optimize never produce at this
// stage (the only one is a surviving Let, see dissolveLet) degrades
// gracefully rather than panicking.
package emit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lambda-lang/lambdac/ast"
	"github.com/lambda-lang/lambdac/scope"
)

// Emit renders prog — expected to already be CPS-transformed and
// optimizer-fixed-point — as a complete host-target program: a
// "use strict" prologue, a single let declaring every assigned global,
// then the program expression itself.
func Emit(prog ast.Node) string {
	root := scope.Analyze(prog)

	var b strings.Builder
	b.WriteString(`"use strict";`)
	b.WriteString("\n")
	if globals := assignedGlobals(root); len(globals) > 0 {
		b.WriteString("let " + strings.Join(globals, ", ") + ";\n")
	}
	b.WriteString(node(prog))
	b.WriteString(";\n")
	return b.String()
}

// assignedGlobals returns every name bound in root with a global kind
// and at least one Assign, sorted for deterministic output. Globals
// that are only ever read (primitives, β_TOPLEVEL, GUARD) stay
// undeclared for the host runtime to supply.
func assignedGlobals(root *ast.Frame) []string {
	var names []string
	for _, name := range root.Names() {
		if _, b := root.Lookup(name); b != nil && b.Kind == ast.GlobalBinding && b.Assigned > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func node(n ast.Node) string {
	switch v := n.(type) {
	case *ast.Literal:
		return literal(v.Value)
	case *ast.Var:
		return v.Name
	case *ast.Binary:
		return fmt.Sprintf("(%s %s %s)", node(v.Left), v.Op, node(v.Right))
	case *ast.Assign:
		return fmt.Sprintf("(%s = %s)", node(v.Left), node(v.Right))
	case *ast.If:
		return ifExpr(v)
	case *ast.Lambda:
		return lambda(v)
	case *ast.Let:
		// The normal pipeline dissolves every Let during the CPS
		// transform, so this path only fires for a tree handed to Emit
		// directly. Rendered by desugaring one binding at a time into
		// the same Call(Lambda, [arg]) shape the CPS transform itself
		// produces, then emitting that.
		return node(dissolveLet(v))
	case *ast.Call:
		return call(v)
	case *ast.Prog:
		return prog(v)
	case *ast.Raw:
		return "(" + v.Text + ")"
	case nil:
		return literal(false)
	default:
		return fmt.Sprintf("/* unemittable node %T */", n)
	}
}

func literal(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		b, _ := json.Marshal(x)
		return string(b)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return "false"
	}
}

// ifExpr renders cond ? then : else, with a "!== false" coercion
// appended to cond unless it is already provably boolean-shaped —
// only the distinguished false may select the else branch.
func ifExpr(v *ast.If) string {
	cond := node(v.Cond)
	if !isBooleanShape(v.Cond) {
		cond = cond + " !== false"
	}
	return fmt.Sprintf("(%s ? %s : %s)", cond, node(v.Then), node(v.Else))
}

// isBooleanShape reports whether an expression provably produces a
// boolean: a comparison, or an && / || whose both subterms are
// themselves boolean-shape.
func isBooleanShape(n ast.Node) bool {
	b, ok := n.(*ast.Binary)
	if !ok {
		return false
	}
	switch b.Op {
	case "<", ">", "<=", ">=", "==", "!=":
		return true
	case "&&", "||":
		return isBooleanShape(b.Left) && isBooleanShape(b.Right)
	default:
		return false
	}
}

// lambda renders a function expression, including the GUARD
// trampoline call every emitted function body opens with.
// GUARD receives the function identifier itself, not its name as a
// string: the host trampoline re-invokes exactly that function with
// the captured arguments when the guard trips, which is why even
// anonymous lambdas get the β_CC placeholder name — a function
// expression's own name is in scope inside its body.
func lambda(v *ast.Lambda) string {
	name := v.Name
	if name == "" {
		name = "β_CC"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "(function %s(%s) {", name, strings.Join(v.Params, ", "))
	if len(v.IIFEParams) > 0 {
		fmt.Fprintf(&b, "let %s;", strings.Join(v.IIFEParams, ", "))
	}
	fmt.Fprintf(&b, "GUARD(arguments, %s);", name)
	fmt.Fprintf(&b, "return %s; })", node(v.Body))
	return b.String()
}

func call(v *ast.Call) string {
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		args[i] = node(a)
	}
	return fmt.Sprintf("%s(%s)", node(v.Func), strings.Join(args, ", "))
}

func prog(v *ast.Prog) string {
	if len(v.Stmts) == 0 {
		return "(false)"
	}
	parts := make([]string, len(v.Stmts))
	for i, s := range v.Stmts {
		parts[i] = node(s)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// dissolveLet peels off the first binding as Call(Lambda([v0], Let(rest,
// body)), [v0.def ?? false]), matching the shape package cps itself
// produces, so the recursive node() call above re-enters the Call and
// Lambda cases rather than needing its own emission rules.
func dissolveLet(v *ast.Let) ast.Node {
	if len(v.Vardefs) == 0 {
		return v.Body
	}
	head, rest := v.Vardefs[0], v.Vardefs[1:]
	init := ast.Node(ast.False())
	if head.Define != nil {
		init = head.Define
	}
	return &ast.Call{
		Func: &ast.Lambda{Params: []string{head.Name}, Body: &ast.Let{Vardefs: rest, Body: v.Body}},
		Args: []ast.Node{init},
	}
}
