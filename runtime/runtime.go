// Package runtime is the dynamic environment the CPS interpreter
// reads and writes while a program actually executes — distinct from
// the static compile-time frame chain in package ast/scope, which
// never fails and exists only to annotate the tree before the
// optimizer and emitter run. This is where a program can genuinely
// reference an undefined name or write somewhere it isn't allowed to:
// writing an undefined name at the root scope defines it there;
// writing an undefined name anywhere else is a ScopeError.
package runtime

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Value is whatever a λ-lang expression evaluates to: float64,
// string, bool, or a closure (owned by package interp; held here as
// an opaque interface{} so this package needn't import it back).
type Value interface{}

// ScopeError reports a read or write against an undefined name.
type ScopeError struct {
	Msg string
}

func (e *ScopeError) Error() string { return e.Msg }

// Frame is one link in the dynamic environment chain. The global
// (root) frame has a nil Parent.
type Frame struct {
	vars   map[string]Value
	Parent *Frame
}

// NewFrame returns an empty frame extending parent (nil for a new
// global frame).
func NewFrame(parent *Frame) *Frame {
	return &Frame{vars: make(map[string]Value), Parent: parent}
}

// Extend returns a new child frame of f.
func (f *Frame) Extend() *Frame { return NewFrame(f) }

// Define binds name in f itself, shadowing any outer binding of the
// same name.
func (f *Frame) Define(name string, v Value) {
	f.vars[name] = v
}

func (f *Frame) declaring(name string) *Frame {
	for fr := f; fr != nil; fr = fr.Parent {
		if _, ok := fr.vars[name]; ok {
			return fr
		}
	}
	return nil
}

// Get resolves name along the chain, or fails with a ScopeError
// (carrying a "did you mean" suggestion when one fuzzy-matches).
func (f *Frame) Get(name string) (Value, error) {
	fr := f.declaring(name)
	if fr == nil {
		return nil, f.undefined(name)
	}
	return fr.vars[name], nil
}

// Set implements the write policy: a write to a name declared
// somewhere in the chain updates it there; a write to an undefined
// name at the root frame defines it globally; a write to an undefined
// name anywhere else fails.
func (f *Frame) Set(name string, v Value) error {
	if fr := f.declaring(name); fr != nil {
		fr.vars[name] = v
		return nil
	}
	if f.Parent == nil {
		f.vars[name] = v
		return nil
	}
	return f.undefined(name)
}

func (f *Frame) undefined(name string) error {
	msg := fmt.Sprintf("undefined variable %q", name)
	if suggestion := nearestName(name, f.allNames()); suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return &ScopeError{Msg: msg}
}

// allNames collects every name visible from f, innermost frame first,
// for building a "did you mean" suggestion set.
func (f *Frame) allNames() []string {
	seen := make(map[string]bool)
	var out []string
	for fr := f; fr != nil; fr = fr.Parent {
		for name := range fr.vars {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// nearestName finds the closest fuzzy match to target among
// candidates, or "" if none are close enough to be worth suggesting.
func nearestName(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		// RankFindFold returns matches in candidate order; sorting puts
		// the smallest edit distance first.
		sort.Sort(ranks)
		return ranks[0].Target
	}
	// No candidate holds target's letters in order (a transposed or
	// mistyped name): take the smallest edit distance, if it is at most
	// half of target's length.
	best, bestDist := "", utf8.RuneCountInString(target)/2+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(target, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
