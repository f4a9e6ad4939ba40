package semantic

import (
	"testing"

	"vcrkernel/canon"
	"vcrkernel/cpg"
	"vcrkernel/parse"
)

func mustParse(t *testing.T, lang parse.Language, src string) *parse.Tree {
	t.Helper()
	p := parse.NewParser()
	tree, err := p.Parse(0, canon.SHA256([]byte(src)), lang, []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func TestBuildProducesEntryExitAndFunction(t *testing.T) {
	tree := mustParse(t, parse.LangGo, "package p\nfunc f() {}\n")
	frag, _ := Build(0, tree, NewInterner())

	var sawFunc, sawEntry, sawExit bool
	for _, n := range frag.Nodes {
		switch n.Kind {
		case cpg.KindFunction:
			sawFunc = true
		case cpg.KindEntry:
			sawEntry = true
		case cpg.KindExit:
			sawExit = true
		}
	}
	if !sawFunc || !sawEntry || !sawExit {
		t.Fatalf("expected Function, Entry, and Exit nodes, got %+v", frag.Nodes)
	}
}

func TestBuildBranchOnIf(t *testing.T) {
	src := "package p\nfunc f(x int) int {\n\tif x > 0 {\n\t\treturn x\n\t}\n\treturn 0\n}\n"
	tree := mustParse(t, parse.LangGo, src)
	frag, _ := Build(0, tree, NewInterner())

	var branches, returns int
	for _, n := range frag.Nodes {
		if n.Kind == cpg.KindBranch {
			branches++
		}
		if n.Kind == cpg.KindReturn {
			returns++
		}
	}
	if branches != 1 {
		t.Errorf("expected exactly 1 Branch node, got %d", branches)
	}
	if returns != 2 {
		t.Errorf("expected 2 Return nodes, got %d", returns)
	}
}

func TestBuildAndMergeProducesSealedGraph(t *testing.T) {
	tree := mustParse(t, parse.LangRust, "fn main() { let x = 1; }")
	interner := NewInterner()
	frag, _ := Build(0, tree, interner)

	g, err := cpg.Merge([]cpg.Fragment{frag}, interner.Strings())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if g.Hash.IsZero() {
		t.Errorf("expected a non-zero graph hash")
	}
	for i := 1; i < len(g.Nodes); i++ {
		if g.Nodes[i-1].ID >= g.Nodes[i].ID {
			t.Fatalf("expected nodes sorted strictly ascending by id")
		}
	}
}

func TestBuildAssignmentCreatesVariableWithDefEdge(t *testing.T) {
	tree := mustParse(t, parse.LangRust, "fn main() { let x = 1; }")
	frag, _ := Build(0, tree, NewInterner())

	var assignIdx, varIdx int32 = -1, -1
	for i, n := range frag.Nodes {
		if n.Kind == cpg.KindAssign {
			assignIdx = int32(i)
		}
		if n.Kind == cpg.KindVariable {
			varIdx = int32(i)
		}
	}
	if assignIdx < 0 || varIdx < 0 {
		t.Fatalf("expected an Assign and a Variable node, got %+v", frag.Nodes)
	}
	foundDef := false
	for _, e := range frag.Edges {
		if int32(e.From) == assignIdx && int32(e.To) == varIdx && e.Kind == cpg.EdgeDef {
			foundDef = true
		}
	}
	if !foundDef {
		t.Errorf("expected a Def edge from the Assign node to the Variable node")
	}
}
