// Package primitives implements the fixed builtin table: print,
// println, sleep, time, halt, twice, CallCC, fibpy/fibPY. Every
// primitive takes a continuation as its first argument and follows the
// same calling convention as a user-defined closure, so the interpreter
// in package interp can dispatch to either uniformly.
//
// Primitives are expressed against a Runtime interface rather than
// importing package interp directly: interp needs this package to
// build its root environment, so a primitives -> interp import would
// cycle.
package primitives

import (
	"fmt"
	"io"
	"time"
)

// Value is whatever a λ-lang expression evaluates to at runtime:
// float64, string, bool, or an interp.Closure stored opaquely here.
type Value interface{}

// Cont is a runtime continuation: a Go closure representing "the rest
// of the computation", invoked with the value produced so far. Unlike
// package cps's meta-level cont (a compile-time AST -> AST function),
// this one runs during interpretation and may be invoked more than
// once (see Twice) or not at all (see Halt).
type Cont func(Value) Value

// Error reports a primitive called with the wrong argument shape or
// type.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

// Halted is the sentinel value Halt returns: a deliberate request to
// stop the whole computation without invoking any further
// continuation. Package interp checks for it everywhere it checks for
// *Error, and package compiler reports it as a clean stop, not a
// failure.
type Halted struct{}

// Runtime is the callback surface a primitive needs from its host
// interpreter: applying an arbitrary callee (a user closure or
// another primitive) to a continuation and argument list, and
// reifying a Cont as a first-class callable Value for CallCC.
type Runtime interface {
	Apply(callee Value, k Cont, args []Value) Value
	Reify(k Cont) Value
}

// Fn is the Go signature every builtin implements.
type Fn func(rt Runtime, k Cont, args []Value) Value

// Builtin pairs a name with its implementation.
type Builtin struct {
	Name string
	Fn   Fn
}

// Table is the fixed name -> Builtin mapping installed in the root
// environment before execution (interpreter) or assumed present by
// name in emitted host-target code (emitter).
type Table struct {
	out     io.Writer
	entries map[string]*Builtin
}

// NewTable builds the standard primitive table, writing print/println
// output to out.
func NewTable(out io.Writer) *Table {
	t := &Table{out: out, entries: make(map[string]*Builtin)}
	for _, b := range []*Builtin{
		{Name: "print", Fn: t.print},
		{Name: "println", Fn: t.println},
		{Name: "sleep", Fn: t.sleep},
		{Name: "time", Fn: t.time},
		{Name: "halt", Fn: halt},
		{Name: "twice", Fn: twice},
		{Name: "CallCC", Fn: callCC},
		{Name: "fibpy", Fn: fibpy},
		{Name: "fibPY", Fn: fibpy},
		{Name: "β_TOPLEVEL", Fn: topLevel},
	} {
		t.entries[b.Name] = b
	}
	return t
}

// Lookup returns the builtin registered under name, or (nil, false).
func (t *Table) Lookup(name string) (*Builtin, bool) {
	b, ok := t.entries[name]
	return b, ok
}

// Names returns every registered primitive name, used to seed the
// root environment.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.entries))
	for n := range t.entries {
		out = append(out, n)
	}
	return out
}

// Stopped reports whether v signals that evaluation should not
// continue past this point: either a primitive-level Error or a Halt
// request. Package interp also treats its own EvalError/ScopeError/
// OperatorError this way; Stopped only covers the cases this package
// itself can produce.
func Stopped(v Value) bool {
	switch v.(type) {
	case *Error, Halted:
		return true
	default:
		return false
	}
}

func toFloat(name string, args []Value, i int) (float64, error) {
	if i >= len(args) {
		return 0, &Error{Msg: fmt.Sprintf("%s: expected argument %d", name, i)}
	}
	f, ok := args[i].(float64)
	if !ok {
		return 0, &Error{Msg: fmt.Sprintf("%s: argument %d must be numeric", name, i)}
	}
	return f, nil
}

func arg(args []Value, i int) Value {
	if i >= len(args) {
		return false
	}
	return args[i]
}

// print writes v with a trailing space and no newline, then resumes
// with k(false).
func (t *Table) print(rt Runtime, k Cont, args []Value) Value {
	fmt.Fprintf(t.out, "%s ", Format(arg(args, 0)))
	return k(false)
}

// println writes v followed by a newline, then resumes with k(false).
func (t *Table) println(rt Runtime, k Cont, args []Value) Value {
	fmt.Fprintf(t.out, "%s\n", Format(arg(args, 0)))
	return k(false)
}

// sleep delays for s seconds, then resumes with k(false).
func (t *Table) sleep(rt Runtime, k Cont, args []Value) Value {
	s, err := toFloat("sleep", args, 0)
	if err != nil {
		return &Error{Msg: err.Error()}
	}
	time.Sleep(time.Duration(s * float64(time.Second)))
	return k(false)
}

// time measures the wall-clock duration of calling f(k'), where k'
// prints "Time: <ms>ms" before forwarding to k.
func (t *Table) time(rt Runtime, k Cont, args []Value) Value {
	f := arg(args, 0)
	start := time.Now()
	kPrime := func(v Value) Value {
		elapsed := time.Since(start)
		fmt.Fprintf(t.out, "Time: %dms\n", elapsed.Milliseconds())
		return k(v)
	}
	return rt.Apply(f, kPrime, nil)
}

// halt never invokes k: it terminates the computation outright.
func halt(rt Runtime, k Cont, args []Value) Value {
	return Halted{}
}

// twice invokes k(a) then k(b), demonstrating that a runtime
// continuation is an ordinary, reentrant Go closure rather than a
// one-shot callback.
func twice(rt Runtime, k Cont, args []Value) Value {
	a, b := arg(args, 0), arg(args, 1)
	first := k(a)
	if Stopped(first) {
		return first
	}
	return k(b)
}

// callCC calls f(k, reifiedK), where reifiedK is a first-class Value
// that, when invoked as a two-argument function (discarded, v),
// jumps directly to k(v) — bypassing whatever continuation the call
// site itself would otherwise have used.
func callCC(rt Runtime, k Cont, args []Value) Value {
	f := arg(args, 0)
	reified := rt.Reify(k)
	return rt.Apply(f, k, []Value{reified})
}

// fibpy computes Fibonacci eagerly in Go (not by recursing through
// the interpreter), then resumes with k(result). It exists to give
// programs a cheap way to do real work without exercising the
// trampoline, as a contrast to a λ-lang-level recursive fib.
func fibpy(rt Runtime, k Cont, args []Value) Value {
	n, err := toFloat("fibpy", args, 0)
	if err != nil {
		return &Error{Msg: err.Error()}
	}
	return k(fibonacci(n))
}

// topLevel implements β_TOPLEVEL: the identifier the outermost
// continuation is bound to, which the CPS transform delivers the whole
// program's value to. Registering it here as the identity lets a
// CPS-transformed tree be driven directly through the interpreter (as
// opposed to the emitted host-target text, where the surrounding
// runtime supplies it) with the same observable result as the
// untransformed program.
func topLevel(rt Runtime, k Cont, args []Value) Value {
	return k(arg(args, 0))
}

func fibonacci(n float64) float64 {
	if n < 2 {
		return n
	}
	return fibonacci(n-1) + fibonacci(n-2)
}

// Format renders v the way print/println do: numbers without a
// trailing ".0" when they're integral, strings verbatim, booleans as
// true/false.
func Format(v Value) string {
	switch x := v.(type) {
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case nil:
		return "false"
	default:
		return fmt.Sprintf("%v", x)
	}
}
