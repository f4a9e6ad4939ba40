package cpg

import "vcrkernel/canon"

// structTag discriminants for canon.Builder.BeginStruct, kept distinct per
// concrete aggregate kind so structurally-identical field sequences from
// different contexts never collide.
const (
	tagNode  byte = 1
	tagEdge  byte = 2
	tagGraph byte = 3
)

// ComputeHash canonically hashes nodes, edges, and the string table, in
// that order. Callers must pass nodes sorted by ID and edges sorted by
// (from, to, kind); ComputeHash does not re-sort, since a caller that
// needs to re-sort before hashing has already broken ordering upstream.
func ComputeHash(nodes []Node, edges []Edge, stringTable []string) canon.Hash {
	b := canon.NewBuilder()
	b.BeginStruct(tagGraph)

	canon.OrderedChecked(b, nodes, func(a, c Node) bool { return a.ID < c.ID }, func(b *canon.Builder, n Node) {
		b.BeginStruct(tagNode)
		b.U64(uint64(n.ID))
		b.U8(uint8(n.Kind))
		b.U32(n.Span.Start)
		b.U32(n.Span.End)
		if n.HasParent {
			b.U8(1)
			b.U64(uint64(n.Parent))
		} else {
			b.U8(0)
		}
		if n.Extra != nil {
			n.Extra.hashInto(b)
		}
		b.EndStruct()
	})

	canon.OrderedChecked(b, edges, Edge.Less, func(b *canon.Builder, e Edge) {
		b.BeginStruct(tagEdge)
		b.U64(uint64(e.From))
		b.U64(uint64(e.To))
		b.U8(uint8(e.Kind))
		b.EndStruct()
	})

	canon.Ordered(b, stringTable, func(b *canon.Builder, s string) {
		b.Str(s)
	})

	b.EndStruct()
	return b.Sum()
}
