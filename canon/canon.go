// Package canon implements the kernel's canonical hashing discipline: a
// byte-exact, order-independent SHA-256 digest over sorted aggregates.
//
// Every structure hashed through this package must already be in a totally
// ordered container (a slice sorted by the type's defined total order).
// Hashing a map or any other unordered container is a programming error.
package canon

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Hash is a 32-byte SHA-256 digest.
type Hash [32]byte

// Zero is the all-zero hash, used as a sentinel for "no predecessor."
var Zero Hash

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Zero
}

// String renders the hash as lowercase hex.
func (h Hash) String() string {
	return fmt.Sprintf("%x", h[:])
}

// SHA256 hashes a single byte slice directly. Used for content hashes of
// raw file bytes, where there is no aggregate structure to encode.
func SHA256(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// Builder accumulates a canonical byte encoding for one aggregate and
// finalizes it to a Hash. A Builder is not safe for concurrent use; each
// goroutine building a structure should use its own Builder.
type Builder struct {
	h      [32]byte
	sha    *sumWriter
	depth  int
	sealed bool
}

// NewBuilder returns a builder for a fresh canonical encoding.
func NewBuilder() *Builder {
	return &Builder{sha: newSumWriter()}
}

// BeginStruct starts a tagged aggregate. tag is a small enum discriminant
// (kind, edge type, etc.) written as a single byte ahead of the struct's
// fields, so two structurally-identical payloads of different kinds never
// collide.
func (b *Builder) BeginStruct(tag byte) *Builder {
	b.mustNotSealed()
	b.depth++
	b.sha.writeByte(tag)
	return b
}

// EndStruct closes the aggregate opened by the matching BeginStruct. The
// depth bookkeeping exists purely to catch mismatched Begin/End pairs in
// tests; it contributes nothing to the digest.
func (b *Builder) EndStruct() *Builder {
	b.mustNotSealed()
	if b.depth == 0 {
		panic("canon: EndStruct without matching BeginStruct")
	}
	b.depth--
	return b
}

// U8 writes a single byte field (typically an enum tag).
func (b *Builder) U8(v uint8) *Builder {
	b.mustNotSealed()
	b.sha.writeByte(v)
	return b
}

// U32 writes a little-endian uint32 field.
func (b *Builder) U32(v uint32) *Builder {
	b.mustNotSealed()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.sha.write(buf[:])
	return b
}

// U64 writes a little-endian uint64 field.
func (b *Builder) U64(v uint64) *Builder {
	b.mustNotSealed()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.sha.write(buf[:])
	return b
}

// I64 writes a little-endian int64 field.
func (b *Builder) I64(v int64) *Builder {
	return b.U64(uint64(v))
}

// Bytes writes a length-prefixed byte string: a little-endian uint32
// length followed by the raw bytes.
func (b *Builder) Bytes(v []byte) *Builder {
	b.mustNotSealed()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(len(v)))
	b.sha.write(buf[:])
	b.sha.write(v)
	return b
}

// Str writes a length-prefixed UTF-8 string field.
func (b *Builder) Str(v string) *Builder {
	return b.Bytes([]byte(v))
}

// SubHash writes a nested, already-finalized Hash as a fixed 32-byte
// field. Used to compose hashes of sub-structures (e.g. a per-file
// structural hash folded into an epoch hash) without re-encoding them.
func (b *Builder) SubHash(h Hash) *Builder {
	b.mustNotSealed()
	b.sha.write(h[:])
	return b
}

// Ordered hashes a sequence of items that the caller has already sorted
// into the type's total order, writing a count prefix followed by each
// item via emit. This is the only sanctioned way to fold a collection into
// a Builder: callers must never range over a map or set to call emit.
func Ordered[T any](b *Builder, items []T, emit func(*Builder, T)) *Builder {
	b.mustNotSealed()
	b.U32(uint32(len(items)))
	for _, item := range items {
		emit(b, item)
	}
	return b
}

// Sum finalizes the builder and returns the digest. Sum panics if any
// BeginStruct is missing its EndStruct, since that indicates a bug in the
// caller's encoding, not a hashable-but-malformed structure.
func (b *Builder) Sum() Hash {
	if b.depth != 0 {
		panic("canon: Sum called with unbalanced BeginStruct/EndStruct")
	}
	b.sealed = true
	return b.sha.sum()
}

func (b *Builder) mustNotSealed() {
	if b.sealed {
		panic("canon: Builder used after Sum")
	}
}

// MustOrdered panics with a descriptive message; it exists as the single
// call site a caller reaches for when it is about to hash a map or other
// unordered container directly. Call it instead of doing so.
func MustOrdered(reason string) {
	panic("canon: attempted to hash an unordered container: " + reason)
}

// OrderedChecked is Ordered plus a runtime assertion, via MustOrdered,
// that items is actually non-decreasing under less. Callers whose
// contract is "the caller must pass a pre-sorted slice" (node IDs, edge
// tuples, canonical paths) should use this instead of Ordered, so a
// caller that forgot to sort is caught at the hash boundary instead of
// silently producing a hash that depends on whatever order the slice
// happened to already be in.
func OrderedChecked[T any](b *Builder, items []T, less func(a, b T) bool, emit func(*Builder, T)) *Builder {
	for i := 1; i < len(items); i++ {
		if less(items[i], items[i-1]) {
			MustOrdered(fmt.Sprintf("item %d precedes item %d under the expected order", i, i-1))
		}
	}
	return Ordered(b, items, emit)
}

type sumWriter struct {
	h interface {
		Write(p []byte) (int, error)
		Sum(b []byte) []byte
	}
}

func newSumWriter() *sumWriter {
	return &sumWriter{h: sha256.New()}
}

func (w *sumWriter) write(p []byte) {
	_, _ = w.h.Write(p)
}

func (w *sumWriter) writeByte(b byte) {
	_, _ = w.h.Write([]byte{b})
}

func (w *sumWriter) sum() Hash {
	var out Hash
	copy(out[:], w.h.Sum(nil))
	return out
}
