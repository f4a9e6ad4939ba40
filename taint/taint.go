// Package taint implements the bounded, deterministic taint engine
// (component J): breadth-first path enumeration over the CPG's data-flow
// edges from a set of source nodes to a set of sink nodes, capped at a
// fixed depth and a fixed call-string length so that neither recursion
// nor mutual recursion between functions can make a search run forever.
//
// The walk is structural: a path is only ever reported when one
// actually exists along Def/Use/DfReaches/Phi/Call/Return edges (plus
// the points-to aliasing edges pointcontext.go derives from them), never
// from a heuristic guess about what "looks tainted."
package taint

import (
	"sort"

	"vcrkernel/cpg"
)

// Predicate decides whether a node is a taint source or sink candidate.
// Callers supply these; the engine has no built-in notion of what counts
// as "external input" or a "dangerous sink," since that is a policy
// decision outside the kernel's scope.
type Predicate func(cpg.Node) bool

// Path is one concrete route from a source node to a sink node.
type Path struct {
	SourceID cpg.NodeId
	SinkID   cpg.NodeId
	Nodes    []cpg.NodeId
}

// Truncated records that the bounded search from SourceID gave up before
// exhausting the reachable graph, instead of silently under-reporting.
type Truncated struct {
	SourceID cpg.NodeId
	Reason   string
}

// Result is the full output of one Engine.Run call.
type Result struct {
	Paths     []Path
	Truncated []Truncated
}

// Engine holds the graph-derived state a taint search needs: the
// adjacency lists built once from the sealed Graph, including one alias
// edge from every Variable or Parameter node to each member of its
// points-to set, and the points-to analysis those alias edges came from.
type Engine struct {
	g        *cpg.Graph
	maxDepth int
	contextK int
	adj      map[cpg.NodeId][]neighbor
	points   *PointsToAnalysis
}

type neighbor struct {
	to    cpg.NodeId
	kind  cpg.EdgeKind
	alias bool
}

// dataFlowKinds is the subset of EdgeKind that a taint search follows.
// Pure AST and control-flow edges (Ast, CfgNext, CfgBranchTrue,
// CfgBranchFalse, CfgBack) carry no value flow and are never traversed.
var dataFlowKinds = map[cpg.EdgeKind]bool{
	cpg.EdgeDef:       true,
	cpg.EdgeUse:       true,
	cpg.EdgeDfReaches: true,
	cpg.EdgePhi:       true,
	cpg.EdgeCall:      true,
	cpg.EdgeReturn:    true,
}

// NewEngine builds an Engine over g. maxDepth bounds how many hops a
// single path may take (spec's max_taint_depth); contextK bounds how
// many distinct call frames a call-string may carry before a Call edge
// is no longer followed (spec's pointer_context_k).
func NewEngine(g *cpg.Graph, maxDepth, contextK int) *Engine {
	adj := make(map[cpg.NodeId][]neighbor)
	// g.Edges is sorted by (From, To, Kind), so any contiguous run
	// sharing a From is already in (To, Kind) order -- deterministic
	// traversal order falls out of the graph's own invariant rather
	// than a second sort here.
	for _, e := range g.Edges {
		if !dataFlowKinds[e.Kind] {
			continue
		}
		adj[e.From] = append(adj[e.From], neighbor{to: e.To, kind: e.Kind})
	}

	points := AnalyzePointsTo(g)
	for from, set := range points.known {
		targets := set.sortedTargets()
		for _, to := range targets {
			adj[from] = append(adj[from], neighbor{to: to, alias: true})
		}
	}

	return &Engine{g: g, maxDepth: maxDepth, contextK: contextK, adj: adj, points: points}
}

// frontierItem is one in-flight BFS branch.
type frontierItem struct {
	node       cpg.NodeId
	path       []cpg.NodeId
	depth      int
	calls      CallString
	aliasChain int // consecutive alias-edge hops just taken, field-sensitivity bound
}

const maxFieldDepth = 3

// Run searches from every node matching isSource to every node matching
// isSink, in node-ID order on both sides for determinism, and returns
// every path found plus one Truncated record per source whose search
// was cut off by maxDepth before it ran dry.
func (e *Engine) Run(isSource, isSink Predicate) Result {
	var sources, sinks []cpg.NodeId
	for _, n := range e.g.Nodes {
		if isSource(n) {
			sources = append(sources, n.ID)
		}
		if isSink(n) {
			sinks = append(sinks, n.ID)
		}
	}
	sinkSet := make(map[cpg.NodeId]bool, len(sinks))
	for _, s := range sinks {
		sinkSet[s] = true
	}

	var result Result
	for _, src := range sources {
		paths, truncated := e.searchFrom(src, sinkSet)
		result.Paths = append(result.Paths, paths...)
		if truncated {
			result.Truncated = append(result.Truncated, Truncated{SourceID: src, Reason: "depth"})
		}
	}

	sortPaths(result.Paths)
	return result
}

func (e *Engine) searchFrom(src cpg.NodeId, sinks map[cpg.NodeId]bool) ([]Path, bool) {
	queue := []frontierItem{{node: src, path: []cpg.NodeId{src}}}
	visited := map[cpg.NodeId]map[string]bool{}
	truncated := false
	var paths []Path

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if sinks[cur.node] && cur.node != src {
			paths = append(paths, Path{SourceID: src, SinkID: cur.node, Nodes: cur.path})
		}

		if cur.depth >= e.maxDepth {
			if len(e.adj[cur.node]) > 0 {
				truncated = true
			}
			continue
		}

		for _, nb := range e.adj[cur.node] {
			calls := cur.calls
			aliasChain := cur.aliasChain
			switch {
			case nb.alias:
				if aliasChain >= maxFieldDepth {
					continue
				}
				aliasChain++
			case nb.kind == cpg.EdgeCall:
				var ok bool
				calls, ok = cur.calls.push(cur.node, e.contextK)
				if !ok {
					continue
				}
				aliasChain = 0
			case nb.kind == cpg.EdgeReturn:
				calls = cur.calls.pop()
				aliasChain = 0
			default:
				aliasChain = 0
			}

			key := calls.key()
			if visited[nb.to] == nil {
				visited[nb.to] = map[string]bool{}
			}
			if visited[nb.to][key] {
				continue
			}
			visited[nb.to][key] = true

			nextPath := make([]cpg.NodeId, len(cur.path)+1)
			copy(nextPath, cur.path)
			nextPath[len(cur.path)] = nb.to

			queue = append(queue, frontierItem{
				node:       nb.to,
				path:       nextPath,
				depth:      cur.depth + 1,
				calls:      calls,
				aliasChain: aliasChain,
			})
		}
	}

	return paths, truncated
}

func sortPaths(paths []Path) {
	sort.Slice(paths, func(i, j int) bool {
		a, b := paths[i], paths[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.SinkID != b.SinkID {
			return a.SinkID < b.SinkID
		}
		for k := 0; k < len(a.Nodes) && k < len(b.Nodes); k++ {
			if a.Nodes[k] != b.Nodes[k] {
				return a.Nodes[k] < b.Nodes[k]
			}
		}
		return len(a.Nodes) < len(b.Nodes)
	})
}
