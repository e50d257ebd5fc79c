package ast

// Kind classifies how a Binding came to exist, driving the optimizer's
// constant-variable predicate (see package optimize).
type Kind int

const (
	// GlobalBinding is a free variable hoisted to the outermost frame
	// on first sight, or an explicit top-level variable.
	GlobalBinding Kind = iota
	// LambdaParam is an ordinary lambda parameter.
	LambdaParam
	// IIFEParam is a local introduced by IIFE-unwrapping (see
	// package optimize's Call-unwrapping rule).
	IIFEParam
)

func (k Kind) String() string {
	switch k {
	case GlobalBinding:
		return "global"
	case LambdaParam:
		return "param"
	case IIFEParam:
		return "iife-param"
	default:
		return "unknown"
	}
}

// Binding is the scope metadata the analyzer attaches to one declared
// name: every Var node that refers to it, how many
// times it has been assigned, where it was declared, and — for
// constant-folding purposes only — the last right-hand side observed.
type Binding struct {
	Name         string
	Kind         Kind
	Refs         []*Var
	Assigned     int
	CurrentValue Node
}

// Frame is one lexical scope: a name→Binding map plus a parent
// pointer. Frames are rebuilt from scratch on every analyzer pass
// (see package scope), so there is no need to reclaim them explicitly
// between passes — the old chain is simply dropped.
type Frame struct {
	Parent *Frame
	names  map[string]*Binding
}

// NewFrame creates a frame whose enclosing scope is parent (nil for
// the outermost/global frame).
func NewFrame(parent *Frame) *Frame {
	return &Frame{Parent: parent, names: make(map[string]*Binding)}
}

// Extend creates a new child frame of f.
func (f *Frame) Extend() *Frame {
	return NewFrame(f)
}

// Define declares name in f's own frame (not any parent) with the
// given kind, returning the fresh Binding. A redeclaration in the same
// frame overwrites the previous Binding — the analyzer runs once per
// optimizer pass, so there is never a stale Binding to reconcile.
func (f *Frame) Define(name string, kind Kind) *Binding {
	b := &Binding{Name: name, Kind: kind}
	f.names[name] = b
	return b
}

// Lookup walks f and its ancestors for name, returning the frame that
// declares it and its Binding, or (nil, nil) if no frame in the chain
// declares it.
func (f *Frame) Lookup(name string) (*Frame, *Binding) {
	for cur := f; cur != nil; cur = cur.Parent {
		if b, ok := cur.names[name]; ok {
			return cur, b
		}
	}
	return nil, nil
}

// Root returns the outermost frame in f's chain.
func (f *Frame) Root() *Frame {
	cur := f
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// Names returns every name declared in f's own frame (not ancestors),
// used by the emitter's global declarations and the optimizer's
// IIFE-rename collision check.
func (f *Frame) Names() []string {
	out := make([]string, 0, len(f.names))
	for n := range f.names {
		out = append(out, n)
	}
	return out
}

// AllNames returns every name visible from f, walking the whole
// parent chain, innermost first.
func (f *Frame) AllNames() []string {
	var out []string
	for cur := f; cur != nil; cur = cur.Parent {
		out = append(out, cur.Names()...)
	}
	return out
}
