package taint

import (
	"sort"

	"vcrkernel/cpg"
)

// maxPointsToSize caps a single node's points-to set before the set is
// given up on as Unknown rather than let it grow without bound -- the
// same overflow-to-Unknown discipline an Andersen-style solver needs to
// stay terminating on pathological input.
const maxPointsToSize = 100

// maxPointsToIterations bounds the fixed-point loop itself; a points-to
// analysis that hasn't converged by then is marked incomplete rather
// than left to spin.
const maxPointsToIterations = 100

// pointsToSet is a node's alias set: either a known, bounded set of
// targets, or Unknown once that set overflowed maxPointsToSize.
type pointsToSet struct {
	unknown bool
	targets map[cpg.NodeId]bool
}

func (s *pointsToSet) sortedTargets() []cpg.NodeId {
	out := make([]cpg.NodeId, 0, len(s.targets))
	for t := range s.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PointsToAnalysis is a flow-insensitive, field-insensitive alias
// analysis over Variable and Parameter nodes, propagated along Def/Use/
// DfReaches/Phi edges to a fixed point. It is deliberately "correct but
// incomplete": anything that would make a points-to set explode is
// abandoned as Unknown rather than approximated unsoundly.
type PointsToAnalysis struct {
	known     map[cpg.NodeId]*pointsToSet
	completed bool
}

// AnalyzePointsTo runs the fixed-point propagation over g and returns
// the resulting alias sets.
func AnalyzePointsTo(g *cpg.Graph) *PointsToAnalysis {
	a := &PointsToAnalysis{known: map[cpg.NodeId]*pointsToSet{}, completed: true}

	for _, n := range g.Nodes {
		if n.Kind == cpg.KindVariable || n.Kind == cpg.KindParameter {
			a.known[n.ID] = &pointsToSet{targets: map[cpg.NodeId]bool{}}
		}
	}

	type aliasEdge struct{ from, to cpg.NodeId }
	var edges []aliasEdge
	for _, e := range g.Edges {
		if e.Kind != cpg.EdgeDef && e.Kind != cpg.EdgeUse && e.Kind != cpg.EdgeDfReaches && e.Kind != cpg.EdgePhi {
			continue
		}
		if _, ok := a.known[e.From]; !ok {
			continue
		}
		if _, ok := a.known[e.To]; !ok {
			continue
		}
		edges = append(edges, aliasEdge{from: e.From, to: e.To})
	}

	for iter := 0; iter < maxPointsToIterations; iter++ {
		changed := false
		for _, ae := range edges {
			if a.propagate(ae.from, ae.to) {
				changed = true
			}
		}
		if !changed {
			return a
		}
	}
	a.completed = false
	return a
}

// propagate folds from's set into to's set: if x -> y then pts(y) ⊇
// pts(x) ∪ {x} (a value reaches itself as a trivial alias target so
// that a one-hop Def/Use edge already counts as "may alias").
func (a *PointsToAnalysis) propagate(from, to cpg.NodeId) bool {
	fromSet := a.known[from]
	toSet := a.known[to]
	if fromSet.unknown {
		if !toSet.unknown {
			toSet.unknown = true
			return true
		}
		return false
	}
	if toSet.unknown {
		return false
	}

	changed := false
	if !toSet.targets[from] {
		toSet.targets[from] = true
		changed = true
	}
	for t := range fromSet.targets {
		if !toSet.targets[t] {
			toSet.targets[t] = true
			changed = true
		}
	}
	if len(toSet.targets) > maxPointsToSize {
		toSet.unknown = true
		toSet.targets = nil
		a.completed = false
		return true
	}
	return changed
}

// IsComplete reports whether every points-to set converged without
// overflowing into Unknown.
func (a *PointsToAnalysis) IsComplete() bool { return a.completed }

// CallString is a bounded stack of call-site node IDs, the context
// sensitivity component of the engine's K-CFA approximation: a taint
// path is only followed through a Call edge while its call-string
// stays within K distinct frames.
type CallString struct {
	frames []cpg.NodeId
}

// push returns a new CallString with callSite appended, and false if
// doing so would exceed k frames -- signalling the caller that this
// Call edge must not be followed.
func (c CallString) push(callSite cpg.NodeId, k int) (CallString, bool) {
	if len(c.frames) >= k {
		return c, false
	}
	frames := make([]cpg.NodeId, len(c.frames)+1)
	copy(frames, c.frames)
	frames[len(c.frames)] = callSite
	return CallString{frames: frames}, true
}

// pop returns the CallString with its most recent frame removed,
// matching a Return edge back out of the call it came from. Popping an
// empty CallString is a no-op: a Return reached without a matching Call
// frame (e.g. the search started mid-function) just stays context-free.
func (c CallString) pop() CallString {
	if len(c.frames) == 0 {
		return c
	}
	return CallString{frames: c.frames[:len(c.frames)-1]}
}

// key returns a string uniquely identifying this call-string's frame
// sequence, used as part of the BFS visited-set key so the same node can
// be revisited under a different calling context.
func (c CallString) key() string {
	if len(c.frames) == 0 {
		return ""
	}
	b := make([]byte, 0, len(c.frames)*9)
	for _, f := range c.frames {
		b = append(b, byte(f), byte(f>>8), byte(f>>16), byte(f>>24),
			byte(f>>32), byte(f>>40), byte(f>>48), byte(f>>56), '|')
	}
	return string(b)
}
