package cpg

import (
	"fmt"
	"sort"

	"vcrkernel/kernel"
	"vcrkernel/source"
)

// LocalNode is one node of a Fragment, referencing its parent (if any)
// by position within the same Fragment rather than by a final NodeId.
// Merge assigns final NodeIds once every fragment for a build is known.
type LocalNode struct {
	Kind   NodeKind
	Span   Span
	Parent int32 // index into the owning Fragment's Nodes, or -1
	Extra  Extra
}

// LocalEdge is one edge of a Fragment, referencing its endpoints by
// position within the same Fragment.
type LocalEdge struct {
	From uint32
	To   uint32
	Kind EdgeKind
}

// Fragment holds one file's AST, CFG, and DFG nodes and edges before
// they have been assigned final NodeIds. Nodes may appear in any order;
// Merge re-orders them by category (AST < CFG < DFG-phi) while
// preserving each node's relative position within its own category, so
// a Fragment builder only needs to append nodes as it discovers them.
type Fragment struct {
	FileID source.FileId
	Nodes  []LocalNode
	Edges  []LocalEdge
}

// Merge fuses every file's Fragment into one sealed Graph: it assigns
// contiguous final NodeIds per file in AST < CFG < DFG-phi priority
// order, rewrites every edge and parent reference through that
// assignment, sorts nodes and edges into their canonical order, and
// computes the graph's content hash. stringTable must already be in
// first-appearance interning order (see semantic.Interner.Strings).
func Merge(fragments []Fragment, stringTable []string) (*Graph, error) {
	var allNodes []Node
	var allEdges []Edge

	for _, frag := range fragments {
		remap := remapLocalOrder(frag)

		for localIdx, n := range frag.Nodes {
			node := Node{
				ID:    remap[uint32(localIdx)],
				Kind:  n.Kind,
				Span:  n.Span,
				Extra: n.Extra,
			}
			if n.Parent >= 0 {
				node.Parent = remap[uint32(n.Parent)]
				node.HasParent = true
			}
			allNodes = append(allNodes, node)
		}
		for _, e := range frag.Edges {
			from, ok := remap[e.From]
			if !ok {
				return nil, kernel.EdgeTargetMissing(fmt.Sprintf("%s(local %d,%d)", e.Kind, e.From, e.To), fmt.Sprintf("local %d", e.From))
			}
			to, ok := remap[e.To]
			if !ok {
				return nil, kernel.EdgeTargetMissing(fmt.Sprintf("%s(local %d,%d)", e.Kind, e.From, e.To), fmt.Sprintf("local %d", e.To))
			}
			allEdges = append(allEdges, Edge{From: from, To: to, Kind: e.Kind})
		}
	}

	SortNodes(allNodes)
	SortEdges(allEdges)

	for i := 1; i < len(allEdges); i++ {
		if allEdges[i] == allEdges[i-1] {
			return nil, kernel.DuplicateEdge(fmt.Sprintf("%d->%d:%s", allEdges[i].From, allEdges[i].To, allEdges[i].Kind))
		}
	}
	for _, e := range allEdges {
		if !nodeExists(allNodes, e.From) {
			return nil, kernel.EdgeTargetMissing(edgeLabel(e), fmt.Sprintf("%d", e.From))
		}
		if !nodeExists(allNodes, e.To) {
			return nil, kernel.EdgeTargetMissing(edgeLabel(e), fmt.Sprintf("%d", e.To))
		}
	}

	return &Graph{
		Nodes:       allNodes,
		Edges:       allEdges,
		StringTable: stringTable,
		Hash:        ComputeHash(allNodes, allEdges, stringTable),
	}, nil
}

// remapLocalOrder buckets frag's local node indices by category,
// preserving each bucket's relative order, then assigns sequential
// final NodeIds across the concatenated AST+CFG+DFG-phi order.
func remapLocalOrder(frag Fragment) map[uint32]NodeId {
	var ast, cfgb, dfg []uint32
	for i, n := range frag.Nodes {
		switch n.Kind.category() {
		case categoryCFG:
			cfgb = append(cfgb, uint32(i))
		case categoryDFGPhi:
			dfg = append(dfg, uint32(i))
		default:
			ast = append(ast, uint32(i))
		}
	}
	order := make([]uint32, 0, len(frag.Nodes))
	order = append(order, ast...)
	order = append(order, cfgb...)
	order = append(order, dfg...)

	remap := make(map[uint32]NodeId, len(order))
	for seq, localIdx := range order {
		remap[localIdx] = NewNodeId(frag.FileID, uint32(seq))
	}
	return remap
}

func nodeExists(sorted []Node, id NodeId) bool {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].ID >= id })
	return i < len(sorted) && sorted[i].ID == id
}

func edgeLabel(e Edge) string {
	return fmt.Sprintf("%s(%d,%d)", e.Kind, e.From, e.To)
}
