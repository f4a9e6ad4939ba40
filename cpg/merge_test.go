package cpg

import "testing"

func TestMergeOrdersByCategory(t *testing.T) {
	frag := Fragment{
		FileID: 0,
		Nodes: []LocalNode{
			{Kind: KindPhi, Parent: -1},      // DFG-phi, local 0
			{Kind: KindFile, Parent: -1},      // AST, local 1
			{Kind: KindEntry, Parent: -1},     // CFG, local 2
			{Kind: KindFunction, Parent: -1},  // AST, local 3
		},
	}
	g, err := Merge([]Fragment{frag}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(g.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(g.Nodes))
	}

	byKind := map[NodeKind]NodeId{}
	for _, n := range g.Nodes {
		byKind[n.Kind] = n.ID
	}
	// AST nodes (File, Function) come first, preserving their relative
	// local order, then CFG (Entry), then DFG-phi (Phi).
	if !(byKind[KindFile] < byKind[KindFunction]) {
		t.Errorf("expected File before Function within AST category")
	}
	if !(byKind[KindFunction] < byKind[KindEntry]) {
		t.Errorf("expected AST nodes before CFG nodes")
	}
	if !(byKind[KindEntry] < byKind[KindPhi]) {
		t.Errorf("expected CFG nodes before DFG-phi nodes")
	}
}

func TestMergeRewritesParentAndEdges(t *testing.T) {
	frag := Fragment{
		FileID: 0,
		Nodes: []LocalNode{
			{Kind: KindFile, Parent: -1},
			{Kind: KindFunction, Parent: 0},
		},
		Edges: []LocalEdge{
			{From: 0, To: 1, Kind: EdgeAst},
		},
	}
	g, err := Merge([]Fragment{frag}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	var fileID, fnID NodeId
	for _, n := range g.Nodes {
		if n.Kind == KindFile {
			fileID = n.ID
		}
		if n.Kind == KindFunction {
			fnID = n.ID
			if !n.HasParent || n.Parent != fileID {
				t.Errorf("expected Function's parent to be remapped to File's final ID")
			}
		}
	}
	if len(g.Edges) != 1 || g.Edges[0].From != fileID || g.Edges[0].To != fnID {
		t.Errorf("expected the AST edge to be rewritten to final ids, got %+v", g.Edges)
	}
}

func TestMergeDetectsEdgeToMissingNode(t *testing.T) {
	frag := Fragment{
		FileID: 0,
		Nodes:  []LocalNode{{Kind: KindFile, Parent: -1}},
		Edges:  []LocalEdge{{From: 0, To: 5, Kind: EdgeAst}},
	}
	if _, err := Merge([]Fragment{frag}, nil); err == nil {
		t.Fatalf("expected an error for an edge referencing a local index out of range")
	}
}

func TestMergeAcrossMultipleFilesKeepsFileLocalNumbering(t *testing.T) {
	f0 := Fragment{FileID: 0, Nodes: []LocalNode{{Kind: KindFile, Parent: -1}}}
	f1 := Fragment{FileID: 1, Nodes: []LocalNode{{Kind: KindFile, Parent: -1}}}
	g, err := Merge([]Fragment{f0, f1}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(g.Nodes))
	}
	if g.Nodes[0].ID.FileID() != 0 || g.Nodes[1].ID.FileID() != 1 {
		t.Errorf("expected nodes grouped and ordered by file id")
	}
}
