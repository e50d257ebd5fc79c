// Package artifact is a content-addressed cache of compiled λ-lang
// programs: (optimized AST, emitted host-target text) keyed by the
// BLAKE2b-256 digest of the source text that produced them. It exists
// because the pipeline is pure and deterministic end to end — the
// same source always optimizes and emits to the same output — so a
// cache keyed on source digest is always safe to consult before
// re-running CPS/optimize/emit.
//
// The container layout is MAGIC | VERSION | FLAGS | HEADER_LEN |
// BODY_LEN | HEADER | BODY, with the body CBOR-encoded; CBOR keeps the
// node encoding at one tagged shadow struct instead of hand-rolled
// field-by-field framing, and the format carries no cross-version
// stability contract (a stale entry just misses and recompiles).
package artifact

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/lambda-lang/lambdac/ast"
)

const (
	// Magic identifies the container format (4 bytes).
	Magic = "LMBD"
	// Version is the format version (uint16, little-endian).
	Version uint16 = 1
)

// Flags is a bitmask reserved for future container options; none are
// defined yet.
type Flags uint16

// ErrBadMagic reports a container whose leading bytes aren't Magic.
var ErrBadMagic = fmt.Errorf("artifact: bad magic, not a λ-lang cache entry")

// Artifact is one cached compilation result: the optimized AST (so a
// cache hit can still feed tooling that wants the tree, not just the
// text) and the emitted host-target source.
type Artifact struct {
	Optimized ast.Node
	Emitted   string
}

// wireArtifact is Artifact's CBOR shape. Optimized can't be marshaled
// directly since cbor (like encoding/json) can't decode into an
// interface-typed field without a registered type hint, so it travels
// as a wireNode tagged union instead.
type wireArtifact struct {
	Optimized *wireNode `cbor:"optimized"`
	Emitted   string    `cbor:"emitted"`
}

type wireNode struct {
	Kind       string      `cbor:"kind"`
	Value      interface{} `cbor:"value,omitempty"`
	Name       string      `cbor:"name,omitempty"`
	Op         string      `cbor:"op,omitempty"`
	Left       *wireNode   `cbor:"left,omitempty"`
	Right      *wireNode   `cbor:"right,omitempty"`
	Cond       *wireNode   `cbor:"cond,omitempty"`
	Then       *wireNode   `cbor:"then,omitempty"`
	Else       *wireNode   `cbor:"else,omitempty"`
	Params     []string    `cbor:"params,omitempty"`
	Body       *wireNode   `cbor:"body,omitempty"`
	IIFEParams []string    `cbor:"iifeParams,omitempty"`
	Func       *wireNode   `cbor:"func,omitempty"`
	Args       []*wireNode `cbor:"args,omitempty"`
	Stmts      []*wireNode `cbor:"stmts,omitempty"`
	Text       string      `cbor:"text,omitempty"`
}

func toWire(n ast.Node) *wireNode {
	if n == nil {
		return nil
	}
	switch v := n.(type) {
	case *ast.Literal:
		return &wireNode{Kind: "literal", Value: v.Value}
	case *ast.Var:
		return &wireNode{Kind: "var", Name: v.Name}
	case *ast.Assign:
		return &wireNode{Kind: "assign", Left: toWire(v.Left), Right: toWire(v.Right)}
	case *ast.Binary:
		return &wireNode{Kind: "binary", Op: v.Op, Left: toWire(v.Left), Right: toWire(v.Right)}
	case *ast.If:
		return &wireNode{Kind: "if", Cond: toWire(v.Cond), Then: toWire(v.Then), Else: toWire(v.Else)}
	case *ast.Lambda:
		return &wireNode{Kind: "lambda", Name: v.Name, Params: v.Params, Body: toWire(v.Body), IIFEParams: v.IIFEParams}
	case *ast.Call:
		args := make([]*wireNode, len(v.Args))
		for i, a := range v.Args {
			args[i] = toWire(a)
		}
		return &wireNode{Kind: "call", Func: toWire(v.Func), Args: args}
	case *ast.Prog:
		stmts := make([]*wireNode, len(v.Stmts))
		for i, s := range v.Stmts {
			stmts[i] = toWire(s)
		}
		return &wireNode{Kind: "prog", Stmts: stmts}
	case *ast.Raw:
		return &wireNode{Kind: "raw", Text: v.Text}
	default:
		return &wireNode{Kind: "unknown"}
	}
}

func fromWire(w *wireNode) ast.Node {
	if w == nil {
		return nil
	}
	switch w.Kind {
	case "literal":
		return &ast.Literal{Value: normalizeNumber(w.Value)}
	case "var":
		return &ast.Var{Name: w.Name}
	case "assign":
		return &ast.Assign{Left: fromWire(w.Left), Right: fromWire(w.Right)}
	case "binary":
		return &ast.Binary{Op: w.Op, Left: fromWire(w.Left), Right: fromWire(w.Right)}
	case "if":
		return &ast.If{Cond: fromWire(w.Cond), Then: fromWire(w.Then), Else: fromWire(w.Else)}
	case "lambda":
		return &ast.Lambda{Name: w.Name, Params: w.Params, Body: fromWire(w.Body), IIFEParams: w.IIFEParams}
	case "call":
		args := make([]ast.Node, len(w.Args))
		for i, a := range w.Args {
			args[i] = fromWire(a)
		}
		return &ast.Call{Func: fromWire(w.Func), Args: args}
	case "prog":
		stmts := make([]ast.Node, len(w.Stmts))
		for i, s := range w.Stmts {
			stmts[i] = fromWire(s)
		}
		return &ast.Prog{Stmts: stmts}
	case "raw":
		return &ast.Raw{Text: w.Text}
	default:
		return nil
	}
}

// normalizeNumber undoes CBOR's tendency to decode a whole-valued
// float64 back as an int64/uint64 depending on the encoder's integer
// optimization, so a round-tripped Literal.Value is always exactly
// the float64 type package ast expects.
func normalizeNumber(v interface{}) interface{} {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	default:
		return v
	}
}

// Digest returns the BLAKE2b-256 digest of source, the cache key
// compiler.CompileCached looks entries up by.
func Digest(source string) [32]byte {
	return blake2b.Sum256([]byte(source))
}

// Write serializes optimized and emitted into w under a
// MAGIC | VERSION | FLAGS | HEADER_LEN | BODY_LEN | HEADER | BODY
// container (HEADER is empty, reserved for future metadata). It returns
// Digest(src), the same key compiler.CompileCached uses to look the
// entry back up — src itself is not written to the container, since
// the caller already holds it and keys the cache by its digest alone.
func Write(w io.Writer, src string, optimized ast.Node, emitted string) ([32]byte, error) {
	body, err := cbor.Marshal(&wireArtifact{Optimized: toWire(optimized), Emitted: emitted})
	if err != nil {
		return [32]byte{}, err
	}

	var preamble bytes.Buffer
	preamble.WriteString(Magic)
	if err := binary.Write(&preamble, binary.LittleEndian, Version); err != nil {
		return [32]byte{}, err
	}
	if err := binary.Write(&preamble, binary.LittleEndian, uint16(0)); err != nil { // Flags
		return [32]byte{}, err
	}
	if err := binary.Write(&preamble, binary.LittleEndian, uint32(0)); err != nil { // HEADER_LEN
		return [32]byte{}, err
	}
	if err := binary.Write(&preamble, binary.LittleEndian, uint64(len(body))); err != nil { // BODY_LEN
		return [32]byte{}, err
	}

	if _, err := w.Write(preamble.Bytes()); err != nil {
		return [32]byte{}, err
	}
	if _, err := w.Write(body); err != nil {
		return [32]byte{}, err
	}

	return Digest(src), nil
}

// Read parses a container written by Write.
func Read(r io.Reader) (*Artifact, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if string(magic[:]) != Magic {
		return nil, ErrBadMagic
	}
	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	var flags uint16
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return nil, err
	}
	var headerLen uint32
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, err
	}
	var bodyLen uint64
	if err := binary.Read(r, binary.LittleEndian, &bodyLen); err != nil {
		return nil, err
	}
	if headerLen > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(headerLen)); err != nil {
			return nil, err
		}
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	var wa wireArtifact
	if err := cbor.Unmarshal(body, &wa); err != nil {
		return nil, err
	}
	return &Artifact{Optimized: fromWire(wa.Optimized), Emitted: wa.Emitted}, nil
}
