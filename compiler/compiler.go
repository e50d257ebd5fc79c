// Package compiler is the toolchain's two entry points: "source-in,
// host-target-out" (Compile) and "source-in, executed" (Run), each
// driving the shared front end (package lexer/parser) into one of the
// two back ends — the CPS/optimize/emit pipeline, or the CPS
// interpreter directly. The outer surface (CLI, REPL, file I/O)
// belongs to callers.
package compiler

import (
	"io"

	"github.com/lambda-lang/lambdac/artifact"
	"github.com/lambda-lang/lambdac/cps"
	"github.com/lambda-lang/lambdac/emit"
	"github.com/lambda-lang/lambdac/gensym"
	"github.com/lambda-lang/lambdac/interp"
	"github.com/lambda-lang/lambdac/optimize"
	"github.com/lambda-lang/lambdac/parser"
	"github.com/lambda-lang/lambdac/primitives"
)

// Compile implements the "source-in, host-target-out" entry point:
// parse, CPS-transform, optimize to a fixed point, and emit host
// source text.
func Compile(src string) (string, error) {
	g := gensym.New()
	p, err := parser.NewWithGensym(src, g)
	if err != nil {
		return "", err
	}
	prog, err := p.Parse()
	if err != nil {
		return "", err
	}
	transformed := cps.Transform(prog, g)
	optimized := optimize.Run(transformed, g)
	return emit.Emit(optimized), nil
}

// Run implements the "source-in, executed" entry point: parse and
// drive the CPS interpreter directly, with out as the target of every
// primitive that writes output (print, println). The returned error
// is non-nil exactly when the interpreter's result value is itself an
// error (a scope, evaluation, operator or primitive error). A
// primitives.Halted result is a clean stop rather than a failure, so
// it comes back with a nil error. The result is always returned too.
func Run(src string, out io.Writer) (interp.Value, error) {
	p, err := parser.New(src)
	if err != nil {
		return nil, err
	}
	prog, err := p.Parse()
	if err != nil {
		return nil, err
	}
	it := interp.New(primitives.NewTable(out))
	result := it.Run(prog)
	if err, ok := result.(error); ok {
		return result, err
	}
	return result, nil
}

// Store is the narrow persistence interface CompileCached needs: a
// place to look an artifact up by the BLAKE2b digest of the source
// text that produced it, and a place to put one after compiling it.
// MemoryStore is the one implementation this package provides;
// callers that want a file-backed or networked cache need only
// implement these two methods.
type Store interface {
	Get(digest [32]byte) (*artifact.Artifact, bool)
	Put(digest [32]byte, a *artifact.Artifact)
}

// MemoryStore is an in-process Store backed by a map, suitable for a
// single compiler invocation that compiles the same source more than
// once (e.g. a REPL re-evaluating a previous line) but not for
// sharing a cache across process restarts — a caller that wants that
// persists the bytes artifact.Write produces to disk or elsewhere and
// implements Store over that instead.
type MemoryStore struct {
	entries map[[32]byte]*artifact.Artifact
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[[32]byte]*artifact.Artifact)}
}

// Get implements Store.
func (m *MemoryStore) Get(digest [32]byte) (*artifact.Artifact, bool) {
	a, ok := m.entries[digest]
	return a, ok
}

// Put implements Store.
func (m *MemoryStore) Put(digest [32]byte, a *artifact.Artifact) {
	m.entries[digest] = a
}

// CompileCached is Compile, but consulting cache by the digest of src
// before re-running the pipeline. The pipeline is pure end to end, so
// the same source always optimizes and emits to the same output,
// making a digest-keyed cache always safe to trust.
// A hit returns the previously emitted text directly, bypassing CPS,
// optimize, and emit entirely; a miss runs the full pipeline and
// populates the cache before returning.
func CompileCached(cache Store, src string) (string, error) {
	digest := artifact.Digest(src)
	if a, ok := cache.Get(digest); ok {
		return a.Emitted, nil
	}

	g := gensym.New()
	p, err := parser.NewWithGensym(src, g)
	if err != nil {
		return "", err
	}
	prog, err := p.Parse()
	if err != nil {
		return "", err
	}
	transformed := cps.Transform(prog, g)
	optimized := optimize.Run(transformed, g)
	emitted := emit.Emit(optimized)

	cache.Put(digest, &artifact.Artifact{Optimized: optimized, Emitted: emitted})
	return emitted, nil
}

// EncodeArtifact serializes the result of a CompileCached hit or miss
// to w, for a caller that wants to persist the cache across process
// restarts (e.g. writing one file per digest under a cache directory).
func EncodeArtifact(w io.Writer, src string, a *artifact.Artifact) ([32]byte, error) {
	return artifact.Write(w, src, a.Optimized, a.Emitted)
}

// DecodeArtifact is the inverse of EncodeArtifact, reading a
// previously persisted cache entry back from r.
func DecodeArtifact(r io.Reader) (*artifact.Artifact, error) {
	return artifact.Read(r)
}
