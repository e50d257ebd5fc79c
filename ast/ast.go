// Package ast defines the tagged abstract syntax tree shared by every
// stage of the pipeline: the parser builds it, the CPS transform and
// optimizer rewrite it, the emitter serializes it, and the interpreter
// walks it directly. There is no class hierarchy here — each node
// variant is a plain struct behind the Node interface, matched with a
// type switch by whichever stage needs it, so adding a stage never
// means touching every node type.
package ast

// Node is the common tag every AST variant implements. It carries no
// behavior of its own; callers type-switch on the concrete type.
type Node interface {
	astNode()
	// Env returns the lexical frame attached to this node by the scope
	// analyzer, or nil if analysis has not yet run over this subtree.
	Env() *Frame
	setEnv(f *Frame)
}

// base is embedded in every node to provide the attached-frame slot
// without any virtual dispatch; it is plain data, not inheritance.
type base struct {
	env *Frame
}

func (b *base) astNode()        {}
func (b *base) Env() *Frame     { return b.env }
func (b *base) setEnv(f *Frame) { b.env = f }

// SetEnv records the frame active at node's position. Only the scope
// analyzer (package scope) should call this.
func SetEnv(node Node, f *Frame) {
	if node != nil {
		node.setEnv(f)
	}
}

// Literal is a constant number, string, or boolean.
type Literal struct {
	base
	Value interface{} // float64 | string | bool
}

// Var is a variable read. Define is filled in by the scope analyzer
// and points at the Binding this name resolves to.
type Var struct {
	base
	Name   string
	Define *Binding
}

// Assign stores Right into the variable named by Left, which must be
// a *Var for the node to be well-formed.
type Assign struct {
	base
	Left  Node
	Right Node
}

// Binary is a pure binary operator application (operator semantics
// live in package values).
type Binary struct {
	base
	Op    string
	Left  Node
	Right Node
}

// If is a conditional. Else defaults to Literal(false) when the source
// omitted an else clause.
type If struct {
	base
	Cond Node
	Then Node
	Else Node
}

// Lambda is a function literal. Name is empty for anonymous lambdas.
// IIFEParams accumulates locals hoisted into this lambda's frame by
// the optimizer's IIFE-unwrapping rule (see package optimize).
type Lambda struct {
	base
	Name       string
	Params     []string
	Body       Node
	IIFEParams []string
}

// VarDef is one binding within a Let: a name plus an optional
// initializer expression (nil means "no initializer given").
type VarDef struct {
	base
	Name   string
	Define Node
}

// Let sequentially binds each VarDef, each one visible to the
// initializers that follow it and to Body.
type Let struct {
	base
	Vardefs []*VarDef
	Body    Node
}

// Call applies Func to Args.
type Call struct {
	base
	Func Node
	Args []Node
}

// Prog is a sequence of expressions; its value is the value of the
// last one, or Literal(false) when empty.
type Prog struct {
	base
	Stmts []Node
}

// Raw is a verbatim host-target escape hatch: the emitter copies Text
// through unexamined.
type Raw struct {
	base
	Text string
}

// Bool, the two canonical boolean literal values, spelled out so
// callers don't have to remember the underlying Go type stored in
// Literal.Value.
func Bool(v bool) *Literal { return &Literal{Value: v} }

// False is the distinguished falsy value: every other value, including
// 0, "", and Bool(false)'s own negation-by-convention, is truthy.
func False() *Literal { return Bool(false) }

// IsFalse reports whether node is syntactically the literal false —
// used by constant-branch folding, never by the interpreter (which
// compares runtime values, see package values).
func IsFalse(n Node) bool {
	lit, ok := n.(*Literal)
	if !ok {
		return false
	}
	b, ok := lit.Value.(bool)
	return ok && !b
}
