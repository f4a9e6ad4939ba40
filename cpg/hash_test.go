package cpg

import "testing"

func TestComputeHashDeterministic(t *testing.T) {
	nodes := []Node{
		{ID: NewNodeId(0, 0), Kind: KindFile, Span: Span{0, 10}},
		{ID: NewNodeId(0, 1), Kind: KindFunction, Span: Span{0, 10}, Parent: NewNodeId(0, 0), HasParent: true},
	}
	edges := []Edge{
		{From: NewNodeId(0, 0), To: NewNodeId(0, 1), Kind: EdgeAst},
	}
	strings := []string{"main"}

	h1 := ComputeHash(nodes, edges, strings)
	h2 := ComputeHash(nodes, edges, strings)
	if h1 != h2 {
		t.Errorf("expected identical inputs to hash identically")
	}
}

func TestComputeHashSensitiveToEveryField(t *testing.T) {
	base := []Node{{ID: NewNodeId(0, 0), Kind: KindFile, Span: Span{0, 10}}}
	baseHash := ComputeHash(base, nil, nil)

	kindChanged := []Node{{ID: NewNodeId(0, 0), Kind: KindFunction, Span: Span{0, 10}}}
	if ComputeHash(kindChanged, nil, nil) == baseHash {
		t.Errorf("expected kind change to affect hash")
	}

	spanChanged := []Node{{ID: NewNodeId(0, 0), Kind: KindFile, Span: Span{0, 11}}}
	if ComputeHash(spanChanged, nil, nil) == baseHash {
		t.Errorf("expected span change to affect hash")
	}

	idChanged := []Node{{ID: NewNodeId(0, 1), Kind: KindFile, Span: Span{0, 10}}}
	if ComputeHash(idChanged, nil, nil) == baseHash {
		t.Errorf("expected id change to affect hash")
	}
}

func TestComputeHashIgnoresNothingInStringTable(t *testing.T) {
	h1 := ComputeHash(nil, nil, []string{"a", "b"})
	h2 := ComputeHash(nil, nil, []string{"b", "a"})
	if h1 == h2 {
		t.Errorf("expected string table order to affect hash (callers must intern in a fixed order)")
	}
}
