// Package cpg implements the unified Code Property Graph model (component
// G): the fixed node/edge variant sets, packed NodeId, and the merger that
// fuses AST, CFG, and DFG fragments into one sortable, densely-numbered
// graph.
package cpg

import (
	"sort"

	"vcrkernel/canon"
	"vcrkernel/source"
)

// NodeId packs a file identity into the upper 32 bits and a within-file
// sequential index into the lower 32 bits, so the pair is ordered
// lexicographically by plain integer comparison.
type NodeId uint64

// NewNodeId packs fileID and seq into a NodeId.
func NewNodeId(fileID source.FileId, seq uint32) NodeId {
	return NodeId(uint64(fileID)<<32 | uint64(seq))
}

// FileID unpacks the file identity half of a NodeId.
func (n NodeId) FileID() source.FileId { return source.FileId(n >> 32) }

// Seq unpacks the within-file sequence half of a NodeId.
func (n NodeId) Seq() uint32 { return uint32(n) }

// NodeKind is the fixed, frozen variant set for CPG nodes.
type NodeKind uint8

const (
	KindFile NodeKind = iota
	KindFunction
	KindBlock
	KindStatement
	KindExpression
	KindVariable
	KindParameter
	KindLiteral
	KindCall
	KindReturn
	KindBranch
	KindLoop
	KindPhi
	KindAssign
	KindEntry
	KindExit
)

var nodeKindNames = map[NodeKind]string{
	KindFile: "File", KindFunction: "Function", KindBlock: "Block",
	KindStatement: "Statement", KindExpression: "Expression", KindVariable: "Variable",
	KindParameter: "Parameter", KindLiteral: "Literal", KindCall: "Call",
	KindReturn: "Return", KindBranch: "Branch", KindLoop: "Loop",
	KindPhi: "Phi", KindAssign: "Assign", KindEntry: "Entry", KindExit: "Exit",
}

func (k NodeKind) String() string {
	if s, ok := nodeKindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// category groups a NodeKind by its origin for the merge priority order:
// AST < CFG < DFG-phi.
type category uint8

const (
	categoryAST category = iota
	categoryCFG
	categoryDFGPhi
)

func (k NodeKind) category() category {
	switch k {
	case KindPhi:
		return categoryDFGPhi
	case KindEntry, KindExit, KindBranch, KindLoop:
		return categoryCFG
	default:
		return categoryAST
	}
}

// Span is a byte range [Start, End) into the source file.
type Span struct {
	Start uint32
	End   uint32
}

// EdgeKind is the fixed, frozen variant set for CPG edges.
type EdgeKind uint8

const (
	EdgeAst EdgeKind = iota
	EdgeCfgNext
	EdgeCfgBranchTrue
	EdgeCfgBranchFalse
	EdgeCfgBack
	EdgeDef
	EdgeUse
	EdgeDfReaches
	EdgeCall
	EdgeReturn
	EdgePhi
)

var edgeKindNames = map[EdgeKind]string{
	EdgeAst: "Ast", EdgeCfgNext: "CfgNext", EdgeCfgBranchTrue: "CfgBranchTrue",
	EdgeCfgBranchFalse: "CfgBranchFalse", EdgeCfgBack: "CfgBack", EdgeDef: "Def",
	EdgeUse: "Use", EdgeDfReaches: "DfReaches", EdgeCall: "Call",
	EdgeReturn: "Return", EdgePhi: "Phi",
}

func (k EdgeKind) String() string {
	if s, ok := edgeKindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Extra is implemented by each kind-specific fixed-width payload. Payloads
// are never hash-table-backed; each concrete type is a plain struct with a
// small, bounded set of fields.
type Extra interface {
	// hashInto encodes this payload's fields into b. It must never range
	// over a map or set.
	hashInto(b *canon.Builder)
}

// NoExtra is used by node kinds that carry no kind-specific payload.
type NoExtra struct{}

func (NoExtra) hashInto(*canon.Builder) {}

// VariableExtra is the fixed-width payload for Variable and Parameter
// nodes: the interned name and SSA version.
type VariableExtra struct {
	NameID  uint32
	Version uint32
}

func (e VariableExtra) hashInto(b *canon.Builder) {
	b.U32(e.NameID).U32(e.Version)
}

// CallExtra is the fixed-width payload for Call nodes: the interned
// callee name, if statically resolvable.
type CallExtra struct {
	CalleeNameID uint32
}

func (e CallExtra) hashInto(b *canon.Builder) {
	b.U32(e.CalleeNameID)
}

// LiteralExtra is the fixed-width payload for Literal nodes: the literal
// text's own content hash (not the literal text itself, keeping the
// payload fixed-width).
type LiteralExtra struct {
	TextHash canon.Hash
}

func (e LiteralExtra) hashInto(b *canon.Builder) {
	b.SubHash(e.TextHash)
}

// PhiExtra is the fixed-width payload for Phi nodes: the interned name
// and the SSA versions it merges, already sorted ascending by the
// builder that constructed the Phi.
type PhiExtra struct {
	NameID   uint32
	Versions []uint32
}

func (e PhiExtra) hashInto(b *canon.Builder) {
	b.U32(e.NameID)
	canon.OrderedChecked(b, e.Versions, func(a, c uint32) bool { return a < c }, func(b *canon.Builder, v uint32) { b.U32(v) })
}

// Node is a single CPG node.
type Node struct {
	ID     NodeId
	Kind   NodeKind
	Span   Span
	Parent NodeId
	HasParent bool
	Extra  Extra
}

// Edge is a single CPG edge.
type Edge struct {
	From NodeId
	To   NodeId
	Kind EdgeKind
}

// Less implements the total order edges are sorted and compared by:
// (from, to, kind).
func (e Edge) Less(o Edge) bool {
	if e.From != o.From {
		return e.From < o.From
	}
	if e.To != o.To {
		return e.To < o.To
	}
	return e.Kind < o.Kind
}

// Graph is the complete, sealed Code Property Graph for one analysis run:
// nodes sorted by ID, edges sorted by (from, to, kind).
type Graph struct {
	Nodes       []Node
	Edges       []Edge
	StringTable []string // ordered by first-appearance interning, never by hash-bucket order
	Hash        canon.Hash
}

// SortNodes sorts g.Nodes in place by ID ascending.
func SortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

// SortEdges sorts edges in place by (from, to, kind).
func SortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].Less(edges[j]) })
}
