// Package parse implements the incremental parser and tree cache
// (component D): it wraps the tree-sitter grammar engine, assigns strict
// pre-order indices to the raw syntax tree, and reuses a prior tree when
// both the file identity and content hash match.
package parse

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"vcrkernel/canon"
	"vcrkernel/kernel"
	"vcrkernel/source"
)

// Language identifies which grammar a file is parsed with.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangGo         Language = "go"
	LangRust       Language = "rust"
)

// LanguageFromPath infers the Language from a file extension. It returns
// false if the extension is not recognized; callers decide whether an
// unrecognized file is skipped upstream, the same way the ingestion epoch
// enumerates paths without judging them.
func LanguageFromPath(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript, true
	case ".ts", ".tsx":
		return LangTypeScript, true
	case ".py":
		return LangPython, true
	case ".go":
		return LangGo, true
	case ".rs":
		return LangRust, true
	default:
		return "", false
	}
}

// Tree is the opaque syntax tree handle plus the identity it was parsed
// from. A Tree is only safely reused when both FileID and ContentHash
// match the file being (re)parsed.
type Tree struct {
	FileID      source.FileId
	ContentHash canon.Hash
	Lang        Language
	raw         *sitter.Tree
	content     []byte
}

// Root returns the tree's root node.
func (t *Tree) Root() *sitter.Node { return t.raw.RootNode() }

// Content returns the source bytes the tree was parsed from.
func (t *Tree) Content() []byte { return t.content }

// RawNode is one entry in the pre-order traversal of the full,
// unfiltered syntax tree -- every grammar node, not just the subset that
// later maps onto a CPG kind. It is used only to compute the parse
// epoch's per-file structural hash.
type RawNode struct {
	Seq        uint32
	Type       string
	Start, End uint32
	ChildCount uint32
}

// PreOrder walks t's full syntax tree in the grammar engine's documented
// child order (tree-sitter's DFS iterator, the same traversal the
// teacher's symbol extraction already relied on) and assigns a strict
// pre-order sequence number to every node, starting at 0.
func (t *Tree) PreOrder() []RawNode {
	var nodes []RawNode
	iter := sitter.NewIterator(t.raw.RootNode(), sitter.DFSMode)
	var seq uint32
	for {
		n, err := iter.Next()
		if err != nil || n == nil {
			break
		}
		nodes = append(nodes, RawNode{
			Seq:        seq,
			Type:       n.Type(),
			Start:      n.StartByte(),
			End:        n.EndByte(),
			ChildCount: uint32(n.ChildCount()),
		})
		seq++
	}
	return nodes
}

// StructuralHash hashes (type, span, child_count) for every node in
// PreOrder, independent of any pointer or allocation address.
func StructuralHash(t *Tree) canon.Hash {
	b := canon.NewBuilder()
	b.BeginStruct(1)
	canon.Ordered(b, t.PreOrder(), func(b *canon.Builder, n RawNode) {
		b.BeginStruct(1)
		b.Str(n.Type)
		b.U32(n.Start)
		b.U32(n.End)
		b.U32(n.ChildCount)
		b.EndStruct()
	})
	b.EndStruct()
	return b.Sum()
}

// Parser wraps one tree-sitter *sitter.Parser per supported grammar.
// Tree-sitter parsers are not safe for concurrent use by multiple
// goroutines against the same instance, so each Session builds its own
// Parser.
type Parser struct {
	byLang map[Language]*sitter.Parser
}

// NewParser builds a Parser with one tree-sitter parser per supported
// grammar: javascript, python, golang, typescript, and rust.
func NewParser() *Parser {
	mk := func(lang *sitter.Language) *sitter.Parser {
		p := sitter.NewParser()
		p.SetLanguage(lang)
		return p
	}
	return &Parser{byLang: map[Language]*sitter.Parser{
		LangJavaScript: mk(javascript.GetLanguage()),
		LangTypeScript: mk(typescript.GetLanguage()),
		LangPython:     mk(python.GetLanguage()),
		LangGo:         mk(golang.GetLanguage()),
		LangRust:       mk(rust.GetLanguage()),
	}}
}

// Parse invokes the grammar engine for lang against content. On failure
// it returns a *kernel.Error of kind ParseFailure: parse failure is
// fatal and aborts the owning epoch.
func (p *Parser) Parse(fileID source.FileId, contentHash canon.Hash, lang Language, content []byte) (*Tree, error) {
	ts, ok := p.byLang[lang]
	if !ok {
		return nil, fmt.Errorf("parse: unsupported language %q", lang)
	}

	raw, err := ts.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, kernel.ParseFailure(uint32(fileID), 0, err.Error())
	}
	if raw.RootNode().HasError() {
		return nil, kernel.ParseFailure(uint32(fileID), int(firstErrorByte(raw.RootNode())), "grammar engine reported a syntax error")
	}

	return &Tree{FileID: fileID, ContentHash: contentHash, Lang: lang, raw: raw, content: content}, nil
}

func firstErrorByte(n *sitter.Node) uint32 {
	if n.IsError() {
		return n.StartByte()
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && c.HasError() {
			return firstErrorByte(c)
		}
	}
	return n.StartByte()
}
