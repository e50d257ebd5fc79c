// Package interp is the CPS interpreter: an alternative execution
// path for the same AST the emitter consumes, sharing every node type
// in package ast but walking the program directly instead of
// serializing it. Its algorithmic heart is continuation-passing
// evaluation with heap-allocated activation records (the *runtime.Frame
// chain) and a trampoline that bounds native Go stack growth
// independent of how deeply the λ-lang program itself recurses.
//
// Errors travel as values rather than Go error returns: a continuation
// must be able to decide whether to keep going without every signature
// growing a (Value, error) pair, so errors and the halt request are
// just two more kinds of Value that short-circuit the chain (see
// stopped).
package interp

import (
	"fmt"

	"github.com/lambda-lang/lambdac/ast"
	"github.com/lambda-lang/lambdac/primitives"
	"github.com/lambda-lang/lambdac/runtime"
	"github.com/lambda-lang/lambdac/values"
)

// Value is the dynamic value set: float64, string, bool, *Closure, a
// *primitives.Builtin, or an internal *reifiedCont. Aliased to
// primitives.Value so builtins and the interpreter trade values
// without conversion.
type Value = primitives.Value

// Cont is a runtime continuation, aliased to primitives.Cont for the
// same reason.
type Cont = primitives.Cont

// EvalError reports a non-variable assignment target, applying a
// non-function, or an unrecognized AST variant.
type EvalError struct {
	Msg string
}

func (e *EvalError) Error() string { return e.Msg }

// stopped reports whether v should short-circuit the rest of a Cont
// chain rather than flow forward as an ordinary value: a scope/eval/
// operator error, or a deliberate Halt.
func stopped(v Value) bool {
	if primitives.Stopped(v) {
		return true
	}
	switch v.(type) {
	case *EvalError, *runtime.ScopeError, *values.OperatorError:
		return true
	default:
		return false
	}
}

// guardThreshold bounds how many nested closure applications the
// trampoline allows before unwinding.
const guardThreshold = 200

// bounceSignal is the capsule a guarded application throws when the
// countdown is exhausted: "the next thing to run", captured as a
// zero-argument thunk closing over the would-be call's closure,
// continuation, and arguments.
type bounceSignal struct {
	step func() Value
}

// Interp holds the one piece of mutable state a running interpretation
// needs beyond the AST and environment: the trampoline's countdown.
// Counting at every *closure application* rather than at literally
// every eval call bounds the same thing — native Go stack depth
// tracking λ-lang call-stack depth — without forcing a bounce in the
// middle of evaluating a merely deep expression tree that performs no
// calls.
type Interp struct {
	prims     *primitives.Table
	countdown int
}

// New creates an interpreter whose builtin table is prims.
func New(prims *primitives.Table) *Interp {
	return &Interp{prims: prims}
}

// Run evaluates prog in a fresh global frame seeded with every
// primitive name, driving the trampoline to completion, and returns
// the final value (or an error/primitives.Halted request as an ordinary Value —
// callers that care should check stopped-shaped types themselves, or
// use package compiler's Run, which does this classification for
// them).
func (it *Interp) Run(prog ast.Node) Value {
	root := runtime.NewFrame(nil)
	for _, name := range it.prims.Names() {
		b, _ := it.prims.Lookup(name)
		root.Define(name, b)
	}
	done := func(v Value) Value { return v }
	return it.execute(func() Value { return it.eval(prog, root, done) })
}

// execute is the trampoline driver: reset the countdown, run step;
// if step bounced, replace step with the captured continuation and
// loop; otherwise return its result.
func (it *Interp) execute(step func() Value) Value {
	for {
		it.countdown = guardThreshold
		v, bounced, next := it.runOnce(step)
		if !bounced {
			return v
		}
		step = next
	}
}

func (it *Interp) runOnce(step func() Value) (v Value, bounced bool, next func() Value) {
	defer func() {
		if r := recover(); r != nil {
			if b, ok := r.(bounceSignal); ok {
				bounced = true
				next = b.step
				return
			}
			panic(r)
		}
	}()
	v = step()
	return v, false, nil
}

// Apply implements primitives.Runtime: applying callee to args with
// continuation k, dispatching on callee's concrete type. It is also
// how evalCall invokes ordinary closures, so a builtin calling
// rt.Apply back into a user closure behaves identically to a plain
// user-level call.
func (it *Interp) Apply(callee Value, k Cont, args []Value) Value {
	switch c := callee.(type) {
	case *Closure:
		return it.applyClosure(c, k, args)
	case *primitives.Builtin:
		return c.Fn(it, k, args)
	case *reifiedCont:
		return c.k(arg(args, 1))
	default:
		return &EvalError{Msg: fmt.Sprintf("cannot call non-function value %v", callee)}
	}
}

// Reify implements primitives.Runtime, exposing a captured Cont as a
// first-class callable Value for CallCC.
func (it *Interp) Reify(k Cont) Value {
	return &reifiedCont{k: k}
}

// applyClosure is the guarded boundary: every λ-lang function call
// decrements the countdown, and a call made after it's exhausted
// bounces to the trampoline instead of recursing natively.
func (it *Interp) applyClosure(c *Closure, k Cont, args []Value) Value {
	it.countdown--
	if it.countdown <= 0 {
		panic(bounceSignal{step: func() Value { return it.doApplyClosure(c, k, args) }})
	}
	return it.doApplyClosure(c, k, args)
}

func (it *Interp) doApplyClosure(c *Closure, k Cont, args []Value) Value {
	if len(args) > len(c.Params) {
		return &EvalError{Msg: fmt.Sprintf("%s: too many arguments (expected %d, got %d)", closureLabel(c), len(c.Params), len(args))}
	}
	env := c.Env.Extend()
	for i, p := range c.Params {
		env.Define(p, arg(args, i))
	}
	return it.eval(c.Body, env, k)
}

func closureLabel(c *Closure) string {
	if c.Name == "" {
		return "<lambda>"
	}
	return c.Name
}

func arg(args []Value, i int) Value {
	if i >= len(args) {
		return false
	}
	return args[i]
}

// eval is evaluate(node, env, k), implemented as a flat type switch
// over package ast's node set.
func (it *Interp) eval(node ast.Node, env *runtime.Frame, k Cont) Value {
	switch n := node.(type) {
	case *ast.Literal:
		return k(n.Value)

	case *ast.Var:
		v, err := env.Get(n.Name)
		if err != nil {
			return err
		}
		return k(v)

	case *ast.Assign:
		return it.evalAssign(n, env, k)

	case *ast.Binary:
		return it.evalBinary(n, env, k)

	case *ast.If:
		return it.eval(n.Cond, env, func(cv Value) Value {
			if stopped(cv) {
				return cv
			}
			if !values.IsFalse(cv) {
				return it.eval(n.Then, env, k)
			}
			return it.eval(n.Else, env, k)
		})

	case *ast.Lambda:
		return it.evalLambda(n, env, k)

	case *ast.Let:
		return it.evalLet(n.Vardefs, n.Body, env, k)

	case *ast.Call:
		return it.evalCall(n, env, k)

	case *ast.Prog:
		return it.evalProg(n.Stmts, env, k)

	case *ast.Raw:
		return &EvalError{Msg: "raw host-target text has no interpreted semantics"}

	default:
		return &EvalError{Msg: fmt.Sprintf("cannot evaluate AST node %T", node)}
	}
}

func (it *Interp) evalAssign(n *ast.Assign, env *runtime.Frame, k Cont) Value {
	v, ok := n.Left.(*ast.Var)
	if !ok {
		return &EvalError{Msg: "left-hand side of assignment must be a variable"}
	}
	return it.eval(n.Right, env, func(rv Value) Value {
		if stopped(rv) {
			return rv
		}
		if err := env.Set(v.Name, rv); err != nil {
			return err
		}
		return k(rv)
	})
}

func (it *Interp) evalBinary(n *ast.Binary, env *runtime.Frame, k Cont) Value {
	return it.eval(n.Left, env, func(lv Value) Value {
		if stopped(lv) {
			return lv
		}
		return it.eval(n.Right, env, func(rv Value) Value {
			if stopped(rv) {
				return rv
			}
			res, err := values.ApplyBinary(n.Op, lv, rv)
			if err != nil {
				return err
			}
			return k(res)
		})
	})
}

// evalLambda builds a closure capturing env, binding the lambda's own
// name to the closure itself in an extension of env first when named,
// so self-recursion resolves through ordinary lexical scoping without
// any special-casing at application time.
func (it *Interp) evalLambda(n *ast.Lambda, env *runtime.Frame, k Cont) Value {
	cloEnv := env
	if n.Name != "" {
		cloEnv = env.Extend()
	}
	c := &Closure{Name: n.Name, Params: n.Params, Body: n.Body, Env: cloEnv}
	if n.Name != "" {
		cloEnv.Define(n.Name, c)
	}
	return k(c)
}

func (it *Interp) evalLet(defs []*ast.VarDef, body ast.Node, env *runtime.Frame, k Cont) Value {
	if len(defs) == 0 {
		return it.eval(body, env, k)
	}
	head, rest := defs[0], defs[1:]
	init := ast.Node(ast.False())
	if head.Define != nil {
		init = head.Define
	}
	return it.eval(init, env, func(v Value) Value {
		if stopped(v) {
			return v
		}
		child := env.Extend()
		child.Define(head.Name, v)
		return it.evalLet(rest, body, child, k)
	})
}

func (it *Interp) evalProg(stmts []ast.Node, env *runtime.Frame, k Cont) Value {
	switch len(stmts) {
	case 0:
		return k(false)
	case 1:
		return it.eval(stmts[0], env, k)
	default:
		head, rest := stmts[0], stmts[1:]
		return it.eval(head, env, func(v Value) Value {
			if stopped(v) {
				return v
			}
			return it.evalProg(rest, env, k)
		})
	}
}

func (it *Interp) evalCall(n *ast.Call, env *runtime.Frame, k Cont) Value {
	return it.eval(n.Func, env, func(f Value) Value {
		if stopped(f) {
			return f
		}
		return it.evalArgs(n.Args, env, nil, func(args []Value) Value {
			return it.Apply(f, k, args)
		})
	})
}

func (it *Interp) evalArgs(nodes []ast.Node, env *runtime.Frame, acc []Value, k func([]Value) Value) Value {
	if len(nodes) == 0 {
		return k(acc)
	}
	head, rest := nodes[0], nodes[1:]
	return it.eval(head, env, func(v Value) Value {
		if stopped(v) {
			return v
		}
		next := make([]Value, len(acc)+1)
		copy(next, acc)
		next[len(acc)] = v
		return it.evalArgs(rest, env, next, k)
	})
}
