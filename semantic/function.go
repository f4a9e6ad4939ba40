package semantic

import (
	sitter "github.com/smacker/go-tree-sitter"

	"vcrkernel/canon"
	"vcrkernel/cpg"
)

// A zero defRef (nodeIdx 0) means "no definition reaches here along
// this branch": local index 0 within a Fragment is always the File
// node added by Build, so it can never collide with a real variable or
// Phi node's index.

// defRef is the current reaching definition for one variable name:
// either a Variable node (ordinary assignment) or a Phi node (a merge
// at a control-flow join). Both carry a Version for PhiExtra bookkeeping.
type defRef struct {
	nodeIdx int32
	version uint32
}

// frontierEdge is one open control-flow tail: the local node index it
// leaves from, and the edge kind to use once it is wired to whatever
// comes next.
type frontierEdge struct {
	from int32
	kind cpg.EdgeKind
}

// funcBuilder holds one function's build-local state: its flat
// variable scope (defRef per name) and a structural-hash accumulator
// used to populate the InvalidationSet between generations.
type funcBuilder struct {
	b       *builder
	scope   map[string]defRef
	version map[string]uint32
	hash    *canon.Builder
}

// buildFunction builds kind Function/Block/Entry/Exit plus the CFG and
// DFG for fn, parented under fileIdx, and returns the function's
// (possibly qualified) name and a hash of its body (the body's source
// text plus the shape of the CFG/DFG built from it) used for
// incremental invalidation.
func buildFunction(b *builder, fn *sitter.Node, fileIdx int32) (string, uint64) {
	name := functionName(b, fn)
	fnIdx := b.addNode(cpg.KindFunction, fn, fileIdx, cpg.NoExtra{})
	b.addEdge(fileIdx, fnIdx, cpg.EdgeAst)

	fb := &funcBuilder{b: b, scope: map[string]defRef{}, version: map[string]uint32{}, hash: canon.NewBuilder()}
	fb.hash.BeginStruct(1)

	if params := findChildByRole(b, fn, roleParameterList); params != nil {
		fb.buildParameters(params, fnIdx)
	}

	entryIdx := b.addNode(cpg.KindEntry, fn, fnIdx, cpg.NoExtra{})
	b.addEdge(fnIdx, entryIdx, cpg.EdgeAst)
	exitIdx := b.addNode(cpg.KindExit, fn, fnIdx, cpg.NoExtra{})
	b.addEdge(fnIdx, exitIdx, cpg.EdgeAst)

	body := findChildByRole(b, fn, roleBlock)
	frontier := []frontierEdge{{from: entryIdx, kind: cpg.EdgeCfgNext}}
	if body != nil {
		fb.hash.Str(nodeText(b, body))
		blockIdx := b.addNode(cpg.KindBlock, body, fnIdx, cpg.NoExtra{})
		b.addEdge(fnIdx, blockIdx, cpg.EdgeAst)
		frontier = fb.wire(frontier, blockIdx)
		frontier = fb.buildStatements(body, blockIdx, frontier)
	}
	fb.wire(frontier, exitIdx)

	fb.hash.EndStruct()
	return name, uint64From(fb.hash.Sum())
}

func uint64From(h canon.Hash) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(h[i])
	}
	return v
}

func (fb *funcBuilder) buildParameters(params *sitter.Node, fnIdx int32) {
	for i := 0; i < int(params.ChildCount()); i++ {
		c := params.Child(i)
		r := roleOf(fb.b.lang, c.Type())
		var nameNode *sitter.Node
		if r == roleIdentifier {
			nameNode = c
		} else if r == roleParameter {
			nameNode = findChildByRole(fb.b, c, roleIdentifier)
		}
		if nameNode == nil {
			continue
		}
		name := nodeText(fb.b, nameNode)
		nameID := fb.b.interner.Intern(name)
		idx := fb.b.addNode(cpg.KindParameter, c, fnIdx, cpg.VariableExtra{NameID: nameID, Version: 0})
		fb.b.addEdge(fnIdx, idx, cpg.EdgeAst)
		fb.scope[name] = defRef{nodeIdx: idx, version: 0}
		fb.hash.Str(name)
	}
}

// wire connects every open frontier edge to target via its recorded
// edge kind, returning the new single-entry frontier at target.
func (fb *funcBuilder) wire(frontier []frontierEdge, target int32) []frontierEdge {
	for _, f := range frontier {
		fb.b.addEdge(f.from, target, f.kind)
	}
	return []frontierEdge{{from: target, kind: cpg.EdgeCfgNext}}
}

// buildStatements walks n's direct statement children, threading
// control flow from frontier through each one in turn.
func (fb *funcBuilder) buildStatements(n *sitter.Node, parentIdx int32, frontier []frontierEdge) []frontierEdge {
	for i := 0; i < int(n.ChildCount()); i++ {
		frontier = fb.buildStatement(n.Child(i), parentIdx, frontier)
	}
	return frontier
}

func (fb *funcBuilder) buildStatement(n *sitter.Node, parentIdx int32, frontier []frontierEdge) []frontierEdge {
	switch roleOf(fb.b.lang, n.Type()) {
	case roleIf:
		return fb.buildIf(n, parentIdx, frontier)
	case roleWhile, roleFor:
		return fb.buildLoop(n, parentIdx, frontier)
	case roleReturn:
		return fb.buildReturn(n, parentIdx, frontier)
	case roleAssignment, roleVariableDecl:
		return fb.buildAssignment(n, parentIdx, frontier)
	case roleBlock:
		frontier = fb.wire(frontier, fb.addStatementNode(n, parentIdx, cpg.KindBlock))
		return fb.buildStatements(n, parentIdx, frontier)
	case roleOther:
		// Structural punctuation and generic wrappers (expression
		// statements, declarations with no direct CFG meaning of their
		// own): recurse so a call or assignment nested one level down
		// (e.g. an expression_statement wrapping a call_expression) is
		// still found, without emitting a CFG node for the wrapper.
		if n.NamedChildCount() > 0 {
			for i := 0; i < int(n.ChildCount()); i++ {
				frontier = fb.buildStatement(n.Child(i), parentIdx, frontier)
			}
		}
		return frontier
	default:
		return frontier
	}
}

func (fb *funcBuilder) addStatementNode(n *sitter.Node, parentIdx int32, kind cpg.NodeKind) int32 {
	idx := fb.b.addNode(kind, n, parentIdx, cpg.NoExtra{})
	fb.b.addEdge(parentIdx, idx, cpg.EdgeAst)
	return idx
}

func (fb *funcBuilder) buildIf(n *sitter.Node, parentIdx int32, frontier []frontierEdge) []frontierEdge {
	branchIdx := fb.addStatementNode(n, parentIdx, cpg.KindBranch)
	frontier = fb.wire(frontier, branchIdx)
	fb.hash.U8(1)

	trueBody := findChildByRole(fb.b, n, roleBlock)
	var elseNode *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if roleOf(fb.b.lang, n.Child(i).Type()) == roleElse {
			elseNode = n.Child(i)
		}
	}

	savedScope := cloneScope(fb.scope)
	var trueFrontier []frontierEdge
	if trueBody != nil {
		blockIdx := fb.addStatementNode(trueBody, branchIdx, cpg.KindBlock)
		fb.b.addEdge(branchIdx, blockIdx, cpg.EdgeCfgBranchTrue)
		trueFrontier = fb.buildStatements(trueBody, blockIdx, []frontierEdge{{from: blockIdx, kind: cpg.EdgeCfgNext}})
	} else {
		trueFrontier = []frontierEdge{{from: branchIdx, kind: cpg.EdgeCfgBranchTrue}}
	}
	trueScope := fb.scope
	fb.scope = savedScope

	var falseFrontier []frontierEdge
	if elseNode != nil {
		elseBody := findChildByRole(fb.b, elseNode, roleBlock)
		if elseBody == nil {
			elseBody = elseNode
		}
		blockIdx := fb.addStatementNode(elseBody, branchIdx, cpg.KindBlock)
		fb.b.addEdge(branchIdx, blockIdx, cpg.EdgeCfgBranchFalse)
		falseFrontier = fb.buildStatements(elseBody, blockIdx, []frontierEdge{{from: blockIdx, kind: cpg.EdgeCfgNext}})
	} else {
		falseFrontier = []frontierEdge{{from: branchIdx, kind: cpg.EdgeCfgBranchFalse}}
	}
	falseScope := fb.scope

	fb.scope = mergeScopes(fb.b, branchIdx, trueScope, falseScope)
	return append(trueFrontier, falseFrontier...)
}

func (fb *funcBuilder) buildLoop(n *sitter.Node, parentIdx int32, frontier []frontierEdge) []frontierEdge {
	loopIdx := fb.addStatementNode(n, parentIdx, cpg.KindLoop)
	frontier = fb.wire(frontier, loopIdx)
	fb.hash.U8(2)

	savedScope := cloneScope(fb.scope)
	body := findChildByRole(fb.b, n, roleBlock)
	if body != nil {
		blockIdx := fb.addStatementNode(body, loopIdx, cpg.KindBlock)
		fb.b.addEdge(loopIdx, blockIdx, cpg.EdgeCfgBranchTrue)
		bodyFrontier := fb.buildStatements(body, blockIdx, []frontierEdge{{from: blockIdx, kind: cpg.EdgeCfgNext}})
		for _, f := range bodyFrontier {
			fb.b.addEdge(f.from, loopIdx, cpg.EdgeCfgBack)
		}
	}
	bodyScope := fb.scope
	fb.scope = mergeScopes(fb.b, loopIdx, savedScope, bodyScope)

	return []frontierEdge{{from: loopIdx, kind: cpg.EdgeCfgBranchFalse}}
}

func (fb *funcBuilder) buildReturn(n *sitter.Node, parentIdx int32, frontier []frontierEdge) []frontierEdge {
	retIdx := fb.addStatementNode(n, parentIdx, cpg.KindReturn)
	frontier = fb.wire(frontier, retIdx)
	fb.hash.U8(3)
	fb.useIdentifiersIn(n, retIdx)
	return nil
}

func (fb *funcBuilder) buildAssignment(n *sitter.Node, parentIdx int32, frontier []frontierEdge) []frontierEdge {
	assignIdx := fb.addStatementNode(n, parentIdx, cpg.KindAssign)
	frontier = fb.wire(frontier, assignIdx)
	fb.hash.U8(4)

	target := findChildByRole(fb.b, n, roleIdentifier)
	for i := 0; i < int(n.ChildCount()) && target == nil; i++ {
		c := n.Child(i)
		if roleOf(fb.b.lang, c.Type()) == roleVariableDecl {
			target = findChildByRole(fb.b, c, roleIdentifier)
		}
	}

	// Right-hand side uses: everything except the bound identifier itself.
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == target {
			continue
		}
		fb.useIdentifiersIn(c, assignIdx)
	}

	if target != nil {
		name := nodeText(fb.b, target)
		fb.version[name]++
		v := fb.version[name]
		nameID := fb.b.interner.Intern(name)
		varIdx := fb.b.addNode(cpg.KindVariable, target, assignIdx, cpg.VariableExtra{NameID: nameID, Version: v})
		fb.b.addEdge(assignIdx, varIdx, cpg.EdgeAst)
		fb.b.addEdge(assignIdx, varIdx, cpg.EdgeDef)
		fb.scope[name] = defRef{nodeIdx: varIdx, version: v}
		fb.hash.Str(name).U32(v)
	}

	return frontier
}

// useIdentifiersIn scans n's identifier descendants and, for each one
// bound in the current scope, records a Use edge from useSite to the
// reaching definition and a DfReaches edge from that definition back to
// useSite.
func (fb *funcBuilder) useIdentifiersIn(n *sitter.Node, useSite int32) {
	if n == nil {
		return
	}
	iter := sitter.NewIterator(n, sitter.DFSMode)
	for {
		c, err := iter.Next()
		if err != nil || c == nil {
			break
		}
		if roleOf(fb.b.lang, c.Type()) != roleIdentifier {
			continue
		}
		name := nodeText(fb.b, c)
		def, ok := fb.scope[name]
		if !ok {
			continue
		}
		fb.b.addEdge(useSite, def.nodeIdx, cpg.EdgeUse)
		fb.b.addEdge(def.nodeIdx, useSite, cpg.EdgeDfReaches)
	}
}

func cloneScope(s map[string]defRef) map[string]defRef {
	out := make(map[string]defRef, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// mergeScopes joins two branch scopes at joinIdx: a name whose reaching
// definition is the same node in both branches keeps that definition; a
// name that diverges gets a fresh Phi node recording both reaching versions.
func mergeScopes(b *builder, joinIdx int32, left, right map[string]defRef) map[string]defRef {
	out := make(map[string]defRef, len(left))
	seen := map[string]bool{}
	for name, l := range left {
		seen[name] = true
		r, ok := right[name]
		if ok && r.nodeIdx == l.nodeIdx {
			out[name] = l
			continue
		}
		out[name] = phiFor(b, joinIdx, name, l, r, ok)
	}
	for name, r := range right {
		if seen[name] {
			continue
		}
		out[name] = phiFor(b, joinIdx, name, defRef{}, r, true)
	}
	return out
}

func phiFor(b *builder, joinIdx int32, name string, l, r defRef, rOk bool) defRef {
	nameID := b.interner.Intern(name)
	phiIdx := b.addNode(cpg.KindPhi, nil, joinIdx, cpg.PhiExtra{NameID: nameID, Versions: dedupSortedVersions(l, r)})
	b.addEdge(joinIdx, phiIdx, cpg.EdgeAst)
	if l.nodeIdx != 0 {
		b.addEdge(l.nodeIdx, phiIdx, cpg.EdgePhi)
	}
	if rOk && r.nodeIdx != 0 {
		b.addEdge(r.nodeIdx, phiIdx, cpg.EdgePhi)
	}
	newVersion := l.version
	if r.version > newVersion {
		newVersion = r.version
	}
	return defRef{nodeIdx: phiIdx, version: newVersion + 1}
}

func dedupSortedVersions(l, r defRef) []uint32 {
	set := map[uint32]bool{}
	if l.nodeIdx != 0 {
		set[l.version] = true
	}
	if r.nodeIdx != 0 {
		set[r.version] = true
	}
	out := make([]uint32, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	// simple insertion sort; the set is always tiny (branch fan-in width)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
