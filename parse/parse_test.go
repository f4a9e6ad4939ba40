package parse

import (
	"path/filepath"
	"testing"

	"vcrkernel/canon"
	"vcrkernel/kernel"
	"vcrkernel/source"
)

func TestLanguageFromPath(t *testing.T) {
	cases := map[string]Language{
		"a.go":  LangGo,
		"a.rs":  LangRust,
		"a.py":  LangPython,
		"a.ts":  LangTypeScript,
		"a.tsx": LangTypeScript,
		"a.js":  LangJavaScript,
	}
	for path, want := range cases {
		got, ok := LanguageFromPath(path)
		if !ok || got != want {
			t.Errorf("LanguageFromPath(%q) = %q, %v; want %q", path, got, ok, want)
		}
	}
	if _, ok := LanguageFromPath("a.txt"); ok {
		t.Errorf("expected no grammar for .txt")
	}
}

func TestParsePreOrderStartsAtZeroAndIsContiguous(t *testing.T) {
	p := NewParser()
	tree, err := p.Parse(0, canon.SHA256([]byte("fn main() {}")), LangRust, []byte("fn main() {}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	nodes := tree.PreOrder()
	if len(nodes) == 0 {
		t.Fatalf("expected at least one node")
	}
	for i, n := range nodes {
		if n.Seq != uint32(i) {
			t.Fatalf("node %d has Seq %d, want contiguous pre-order", i, n.Seq)
		}
	}
}

func TestStructuralHashDeterministicAndSensitive(t *testing.T) {
	p := NewParser()
	src := []byte("fn main() { let x = 1; }")
	t1, err := p.Parse(0, canon.SHA256(src), LangRust, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	t2, err := p.Parse(0, canon.SHA256(src), LangRust, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if StructuralHash(t1) != StructuralHash(t2) {
		t.Errorf("expected identical source to produce identical structural hash")
	}

	// The structural hash covers (type, span, child_count) only, so the
	// literal is changed to one of a different width to move the spans.
	changed := []byte("fn main() { let x = 22; }")
	t3, err := p.Parse(0, canon.SHA256(changed), LangRust, changed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if StructuralHash(t1) == StructuralHash(t3) {
		t.Errorf("expected a literal of a different width to change the structural hash")
	}
}

func TestParseFailureOnSyntaxError(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(0, canon.Zero, LangGo, []byte("func main( {"))
	if err == nil {
		t.Fatalf("expected a parse failure for malformed input")
	}
	kerr, ok := err.(*kernel.Error)
	if !ok || kerr.Kind != kernel.ErrParseFailure {
		t.Fatalf("expected *kernel.Error of kind ParseFailure, got %v (%T)", err, err)
	}
}

func TestTreeCacheHitRequiresMatchingContentHash(t *testing.T) {
	c := NewTreeCache()
	p := NewParser()
	src := []byte("fn a() {}")
	h := canon.SHA256(src)
	tree, err := p.Parse(1, h, LangRust, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c.Store(tree)

	if _, ok := c.Lookup(1, h); !ok {
		t.Errorf("expected cache hit for matching file id and content hash")
	}
	if _, ok := c.Lookup(1, canon.SHA256([]byte("fn a() { changed }"))); ok {
		t.Errorf("expected cache miss when content hash differs")
	}
	if _, ok := c.Lookup(2, h); ok {
		t.Errorf("expected cache miss for a different file id")
	}
}

func TestSessionReusesUnchangedFilesFromPredecessor(t *testing.T) {
	metrics := &kernel.Metrics{}
	src := []byte("fn a() {}")
	h := canon.SHA256(src)

	s1 := NewSession(metrics, nil)
	r1, err := s1.Parse(source.FileId(0), "a.rs", h, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r1.Class != Parsed {
		t.Errorf("expected first parse to be classified Parsed")
	}

	s2 := NewSession(metrics, s1.Current())
	r2, err := s2.Parse(source.FileId(0), "a.rs", h, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r2.Class != Unchanged {
		t.Errorf("expected second parse of identical content to be classified Unchanged")
	}
	if r2.Tree != r1.Tree {
		t.Errorf("expected the exact same tree handle to be reused")
	}

	snap := metrics.Snapshot()
	if snap.FilesParsed != 1 || snap.TreeCacheHits != 1 {
		t.Errorf("expected 1 parse and 1 cache hit, got parsed=%d hits=%d", snap.FilesParsed, snap.TreeCacheHits)
	}
}

func TestSessionConsultsPersistentCacheAcrossSessions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.sqlite")
	cache, err := OpenPersistentCache(dbPath)
	if err != nil {
		t.Fatalf("OpenPersistentCache: %v", err)
	}
	defer cache.Close()

	src := []byte("fn a() {}")
	h := canon.SHA256(src)

	metrics1 := &kernel.Metrics{}
	s1 := NewSession(metrics1, nil).WithPersistentCache(cache)
	r1, err := s1.Parse(source.FileId(0), "a.rs", h, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r1.Class != Parsed {
		t.Errorf("expected first parse (no prior record) to be classified Parsed")
	}

	// A fresh Session with no in-memory predecessor simulates a new
	// process sharing only the on-disk cache.
	metrics2 := &kernel.Metrics{}
	s2 := NewSession(metrics2, nil).WithPersistentCache(cache)
	r2, err := s2.Parse(source.FileId(0), "a.rs", h, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r2.Class != Unchanged {
		t.Errorf("expected second parse to be classified Unchanged via the persistent cache")
	}
	if r2.StructuralHash != r1.StructuralHash {
		t.Errorf("expected the cached structural hash to match the original")
	}

	snap := metrics2.Snapshot()
	if snap.TreeCacheHits != 1 || snap.FilesParsed != 0 {
		t.Errorf("expected 1 cache hit and 0 parses recorded in the second session, got hits=%d parsed=%d",
			snap.TreeCacheHits, snap.FilesParsed)
	}
}
