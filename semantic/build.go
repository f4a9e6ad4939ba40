package semantic

import (
	sitter "github.com/smacker/go-tree-sitter"

	"vcrkernel/cpg"
	"vcrkernel/parse"
	"vcrkernel/source"
)

// builder accumulates one file's AST/CFG/DFG fragment. It is not safe
// for concurrent use; the scheduler gives each task its own builder.
type builder struct {
	fileID  source.FileId
	lang    parse.Language
	src     []byte
	interner *Interner
	nodes   []cpg.LocalNode
	edges   []cpg.LocalEdge
}

func newBuilder(fileID source.FileId, lang parse.Language, src []byte, interner *Interner) *builder {
	return &builder{fileID: fileID, lang: lang, src: src, interner: interner}
}

func (b *builder) addNode(kind cpg.NodeKind, n *sitter.Node, parent int32, extra cpg.Extra) int32 {
	idx := int32(len(b.nodes))
	span := cpg.Span{Start: 0, End: 0}
	if n != nil {
		span = cpg.Span{Start: n.StartByte(), End: n.EndByte()}
	}
	b.nodes = append(b.nodes, cpg.LocalNode{Kind: kind, Span: span, Parent: parent, Extra: extra})
	return idx
}

func (b *builder) addEdge(from, to int32, kind cpg.EdgeKind) {
	b.edges = append(b.edges, cpg.LocalEdge{From: uint32(from), To: uint32(to), Kind: kind})
}

// Build walks t's syntax tree, producing a cpg.Fragment covering the
// file root, every function's AST skeleton (nested ones included), its control-flow
// graph (entry, exit, branch/loop nodes for if/while/for, joined via
// CfgNext/CfgBranchTrue/CfgBranchFalse/CfgBack edges), and its
// data-flow graph (Def/Use/DfReaches edges plus Phi nodes at control
// joins with more than one reaching definition).
func Build(fileID source.FileId, t *parse.Tree, interner *Interner) (cpg.Fragment, map[string]uint64) {
	b := newBuilder(fileID, t.Lang, t.Content(), interner)
	root := t.Root()

	fileIdx := b.addNode(cpg.KindFile, root, -1, cpg.NoExtra{})

	bodyHashes := map[string]uint64{}
	walkTopLevel(b, root, fileIdx, bodyHashes)

	return cpg.Fragment{FileID: fileID, Nodes: b.nodes, Edges: b.edges}, bodyHashes
}

// walkTopLevel finds every function definition reachable from n (at
// any depth, so nested and method functions are covered) and builds
// each one's AST/CFG/DFG fragment under fileIdx.
func walkTopLevel(b *builder, n *sitter.Node, fileIdx int32, bodyHashes map[string]uint64) {
	iter := sitter.NewIterator(n, sitter.DFSMode)
	for {
		child, err := iter.Next()
		if err != nil || child == nil {
			break
		}
		if roleOf(b.lang, child.Type()) == roleFunction {
			name, bodyHash := buildFunction(b, child, fileIdx)
			bodyHashes[name] = bodyHash
		}
	}
}

func nodeText(b *builder, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(b.src)
}

// functionName finds the function's own identifier child, if any.
func functionName(b *builder, fn *sitter.Node) string {
	for i := 0; i < int(fn.ChildCount()); i++ {
		c := fn.Child(i)
		if roleOf(b.lang, c.Type()) == roleIdentifier {
			return nodeText(b, c)
		}
	}
	return "<anonymous>"
}

func findChildByRole(b *builder, n *sitter.Node, want role) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if roleOf(b.lang, c.Type()) == want {
			return c
		}
	}
	return nil
}
