// Package gensym generates fresh identifiers for names the compiler
// invents on a reader's behalf: continuation parameters introduced by
// the CPS transform, the short-circuit rewrite's throwaway temporary,
// and IIFE-unwrapping's renamed locals. A Gensym is a monotonic
// counter carried explicitly through the pipeline rather than a
// package-level global, so a fresh compilation never collides with
// names left over from a previous one and tests can construct an
// isolated counter per case.
package gensym

import "strconv"

// Gensym hands out names of the form "β_<tag><n>" for a strictly
// increasing n. The zero value is ready to use.
type Gensym struct {
	n int
}

// New returns a counter starting at zero.
func New() *Gensym {
	return &Gensym{}
}

// Fresh returns the next name tagged with tag (e.g. "K", "R", "t").
func (g *Gensym) Fresh(tag string) string {
	g.n++
	return "β_" + tag + strconv.Itoa(g.n)
}
