package primitives

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRuntime is a minimal primitives.Runtime for exercising builtins
// in isolation, without pulling in package interp (which would be an
// import cycle anyway, since interp imports this package).
type fakeRuntime struct{}

func (fakeRuntime) Apply(callee Value, k Cont, args []Value) Value {
	fn, ok := callee.(func(Cont, []Value) Value)
	if !ok {
		return &Error{Msg: "fakeRuntime.Apply: callee is not callable"}
	}
	return fn(k, args)
}

func (fakeRuntime) Reify(k Cont) Value {
	return func(k2 Cont, args []Value) Value { return k(arg(args, 1)) }
}

func TestTable_LookupKnownAndUnknownNames(t *testing.T) {
	tbl := NewTable(&bytes.Buffer{})

	for _, name := range []string{"print", "println", "sleep", "time", "halt", "twice", "CallCC", "fibpy", "fibPY", "β_TOPLEVEL"} {
		_, ok := tbl.Lookup(name)
		assert.True(t, ok, name)
	}

	_, ok := tbl.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestPrint_WritesValueWithTrailingSpace(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf)
	b, _ := tbl.Lookup("print")

	result := b.Fn(fakeRuntime{}, func(v Value) Value { return v }, []Value{7.0})
	assert.Equal(t, "7 ", buf.String())
	assert.Equal(t, false, result)
}

func TestPrintln_WritesValueWithNewline(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf)
	b, _ := tbl.Lookup("println")

	b.Fn(fakeRuntime{}, func(v Value) Value { return v }, []Value{"hi"})
	assert.Equal(t, "hi\n", buf.String())
}

func TestHalt_NeverInvokesContinuation(t *testing.T) {
	b, _ := NewTable(&bytes.Buffer{}).Lookup("halt")
	called := false
	result := b.Fn(fakeRuntime{}, func(v Value) Value { called = true; return v }, nil)
	assert.False(t, called)
	assert.IsType(t, Halted{}, result)
	assert.True(t, Stopped(result))
}

func TestTwice_InvokesContinuationWithBothValues(t *testing.T) {
	b, _ := NewTable(&bytes.Buffer{}).Lookup("twice")
	var seen []Value
	b.Fn(fakeRuntime{}, func(v Value) Value { seen = append(seen, v); return v }, []Value{1.0, 2.0})
	assert.Equal(t, []Value{1.0, 2.0}, seen)
}

func TestTwice_ShortCircuitsIfFirstCallStops(t *testing.T) {
	b, _ := NewTable(&bytes.Buffer{}).Lookup("twice")
	calls := 0
	result := b.Fn(fakeRuntime{}, func(v Value) Value {
		calls++
		return &Error{Msg: "stop"}
	}, []Value{1.0, 2.0})
	assert.Equal(t, 1, calls)
	assert.True(t, Stopped(result))
}

func TestTopLevel_ForwardsItsArgumentToK(t *testing.T) {
	b, _ := NewTable(&bytes.Buffer{}).Lookup("β_TOPLEVEL")
	result := b.Fn(fakeRuntime{}, func(v Value) Value { return v }, []Value{42.0})
	assert.Equal(t, 42.0, result)
}

func TestFibpy_ComputesFibonacciEagerly(t *testing.T) {
	b, _ := NewTable(&bytes.Buffer{}).Lookup("fibpy")
	result := b.Fn(fakeRuntime{}, func(v Value) Value { return v }, []Value{10.0})
	assert.Equal(t, 55.0, result)
}

func TestFibpy_RejectsNonNumericArgument(t *testing.T) {
	b, _ := NewTable(&bytes.Buffer{}).Lookup("fibpy")
	result := b.Fn(fakeRuntime{}, func(v Value) Value { return v }, []Value{"nope"})
	assert.True(t, Stopped(result))
}

func TestFormat_IntegralFloatsDropDecimalPoint(t *testing.T) {
	assert.Equal(t, "5", Format(5.0))
	assert.Equal(t, "5.5", Format(5.5))
	assert.Equal(t, "true", Format(true))
	assert.Equal(t, "false", Format(false))
	assert.Equal(t, "false", Format(nil))
	assert.Equal(t, "hi", Format("hi"))
}

func TestStopped_RecognizesErrorAndHalted(t *testing.T) {
	assert.True(t, Stopped(&Error{Msg: "x"}))
	assert.True(t, Stopped(Halted{}))
	assert.False(t, Stopped(1.0))
	assert.False(t, Stopped(false))
}

func TestCallCC_ReifiesContinuationAsCallableValue(t *testing.T) {
	b, _ := NewTable(&bytes.Buffer{}).Lookup("CallCC")
	// f ignores the outer k entirely and escapes straight through the
	// reified continuation instead.
	f := func(k Cont, args []Value) Value {
		escape := arg(args, 0)
		return fakeRuntime{}.Apply(escape, k, []Value{false, 99.0})
	}
	result := b.Fn(fakeRuntime{}, func(v Value) Value { return v }, []Value{Value(f)})
	require.NotNil(t, result)
	assert.Equal(t, 99.0, result)
}
