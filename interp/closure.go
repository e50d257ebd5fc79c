package interp

import (
	"github.com/lambda-lang/lambdac/ast"
	"github.com/lambda-lang/lambdac/runtime"
)

// Closure is a λ-lang function value: the body to evaluate plus the
// frame it closed over. A named closure's Env already has its own
// name bound to itself (see evalLambda), which is what lets a named
// lambda call itself without any special-casing at application time —
// plain lexical scoping resolves the self-reference.
type Closure struct {
	Name   string
	Params []string
	Body   ast.Node
	Env    *runtime.Frame
}

// reifiedCont wraps a captured runtime continuation as a first-class
// Value, the shape CallCC hands to its argument. It behaves as a
// two-argument function (discarded, v) that jumps straight to k(v),
// ignoring whatever continuation the call site that invokes it would
// otherwise have used.
type reifiedCont struct {
	k Cont
}
