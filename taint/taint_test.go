package taint

import (
	"testing"

	"vcrkernel/cpg"
)

func n(id uint32, kind cpg.NodeKind) cpg.Node {
	return cpg.Node{ID: cpg.NewNodeId(0, id), Kind: kind, Extra: cpg.NoExtra{}}
}

func isParam(node cpg.Node) bool { return node.Kind == cpg.KindParameter }
func isCall(node cpg.Node) bool  { return node.Kind == cpg.KindCall }

func TestRunFindsDirectPath(t *testing.T) {
	nodes := []cpg.Node{
		n(0, cpg.KindFile),
		n(1, cpg.KindParameter),
		n(2, cpg.KindVariable),
		n(3, cpg.KindCall),
	}
	edges := []cpg.Edge{
		{From: cpg.NewNodeId(0, 1), To: cpg.NewNodeId(0, 2), Kind: cpg.EdgeDef},
		{From: cpg.NewNodeId(0, 2), To: cpg.NewNodeId(0, 3), Kind: cpg.EdgeUse},
	}
	g := &cpg.Graph{Nodes: nodes, Edges: edges}

	e := NewEngine(g, 10, 3)
	result := e.Run(isParam, isCall)

	if len(result.Paths) != 1 {
		t.Fatalf("expected 1 path, got %d: %+v", len(result.Paths), result.Paths)
	}
	p := result.Paths[0]
	if p.SourceID != cpg.NewNodeId(0, 1) || p.SinkID != cpg.NewNodeId(0, 3) {
		t.Errorf("unexpected source/sink: %+v", p)
	}
	if len(result.Truncated) != 0 {
		t.Errorf("expected no truncation, got %+v", result.Truncated)
	}
}

func TestRunNoPathWhenDisconnected(t *testing.T) {
	nodes := []cpg.Node{
		n(0, cpg.KindFile),
		n(1, cpg.KindParameter),
		n(2, cpg.KindCall),
	}
	g := &cpg.Graph{Nodes: nodes}

	e := NewEngine(g, 10, 3)
	result := e.Run(isParam, isCall)
	if len(result.Paths) != 0 {
		t.Fatalf("expected no paths, got %+v", result.Paths)
	}
}

func TestRunTruncatesAtMaxDepth(t *testing.T) {
	// A chain of variables longer than maxDepth, with the sink just past
	// the cutoff: the search must give up and report Truncated rather
	// than silently stopping short with no path and no explanation.
	var nodes []cpg.Node
	var edges []cpg.Edge
	nodes = append(nodes, n(0, cpg.KindFile), n(1, cpg.KindParameter))
	prev := cpg.NewNodeId(0, 1)
	for i := uint32(2); i < 10; i++ {
		nodes = append(nodes, n(i, cpg.KindVariable))
		cur := cpg.NewNodeId(0, i)
		edges = append(edges, cpg.Edge{From: prev, To: cur, Kind: cpg.EdgeDef})
		prev = cur
	}
	nodes = append(nodes, n(10, cpg.KindCall))
	edges = append(edges, cpg.Edge{From: prev, To: cpg.NewNodeId(0, 10), Kind: cpg.EdgeUse})
	g := &cpg.Graph{Nodes: nodes, Edges: edges}

	e := NewEngine(g, 2, 3)
	result := e.Run(isParam, isCall)

	if len(result.Paths) != 0 {
		t.Errorf("expected no path within the depth bound, got %+v", result.Paths)
	}
	if len(result.Truncated) != 1 || result.Truncated[0].Reason != "depth" {
		t.Fatalf("expected one depth truncation, got %+v", result.Truncated)
	}
}

func TestRunRespectsCallStringBound(t *testing.T) {
	// source -> Call edge -> Call edge -> Use edge -> sink, with K=1:
	// the second Call edge must be refused since it would carry the
	// call-string to two frames. Only node 1 is a Parameter, so it is the
	// only source.
	nodes := []cpg.Node{
		n(0, cpg.KindFile),
		n(1, cpg.KindParameter),
		n(2, cpg.KindVariable),
		n(3, cpg.KindVariable),
		n(4, cpg.KindCall),
	}
	edges := []cpg.Edge{
		{From: cpg.NewNodeId(0, 1), To: cpg.NewNodeId(0, 2), Kind: cpg.EdgeCall},
		{From: cpg.NewNodeId(0, 2), To: cpg.NewNodeId(0, 3), Kind: cpg.EdgeCall},
		{From: cpg.NewNodeId(0, 3), To: cpg.NewNodeId(0, 4), Kind: cpg.EdgeUse},
	}
	g := &cpg.Graph{Nodes: nodes, Edges: edges}

	e := NewEngine(g, 10, 1)
	result := e.Run(isParam, isCall)
	if len(result.Paths) != 0 {
		t.Errorf("expected the second Call edge to be refused, got %+v", result.Paths)
	}
}

func TestRunFollowsPointsToAlias(t *testing.T) {
	// Two variables that both reach a third via Def edges alias each
	// other; the taint engine should be able to cross that alias edge
	// even though there is no direct Def/Use edge between them.
	nodes := []cpg.Node{
		n(0, cpg.KindFile),
		n(1, cpg.KindParameter),
		n(2, cpg.KindVariable),
		n(3, cpg.KindVariable),
		n(4, cpg.KindCall),
	}
	// Parameter 1 and Variable 3 both reach Variable 2; the only route
	// from 1 to the sink is 1 -> 2 (Def), 2 -> 3 (alias), 3 -> 4 (Use).
	edges := []cpg.Edge{
		{From: cpg.NewNodeId(0, 1), To: cpg.NewNodeId(0, 2), Kind: cpg.EdgeDef},
		{From: cpg.NewNodeId(0, 3), To: cpg.NewNodeId(0, 2), Kind: cpg.EdgeDef},
		{From: cpg.NewNodeId(0, 3), To: cpg.NewNodeId(0, 4), Kind: cpg.EdgeUse},
	}
	g := &cpg.Graph{Nodes: nodes, Edges: edges}

	e := NewEngine(g, 10, 3)
	result := e.Run(isParam, isCall)
	if len(result.Paths) != 1 {
		t.Fatalf("expected 1 path via the alias edge, got %d: %+v", len(result.Paths), result.Paths)
	}
}

func TestAnalyzePointsToCompletesOnSmallGraph(t *testing.T) {
	nodes := []cpg.Node{
		n(0, cpg.KindFile),
		n(1, cpg.KindParameter),
		n(2, cpg.KindVariable),
	}
	edges := []cpg.Edge{
		{From: cpg.NewNodeId(0, 1), To: cpg.NewNodeId(0, 2), Kind: cpg.EdgeDef},
	}
	g := &cpg.Graph{Nodes: nodes, Edges: edges}

	a := AnalyzePointsTo(g)
	if !a.IsComplete() {
		t.Errorf("expected a small graph's points-to analysis to converge")
	}
}

func TestCallStringPushPopRoundTrips(t *testing.T) {
	var c CallString
	c, ok := c.push(cpg.NewNodeId(0, 1), 3)
	if !ok {
		t.Fatalf("expected push within bound to succeed")
	}
	c, ok = c.push(cpg.NewNodeId(0, 2), 3)
	if !ok {
		t.Fatalf("expected second push within bound to succeed")
	}
	if _, ok := c.push(cpg.NewNodeId(0, 3), 2); ok {
		t.Errorf("expected push beyond k=2 to fail on a 2-frame stack")
	}
	c = c.pop()
	if len(c.frames) != 1 {
		t.Errorf("expected one frame after pop, got %d", len(c.frames))
	}
}
