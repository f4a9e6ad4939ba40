package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenComputesContentHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("fn main() { }"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := Open(FileId(0), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if f.ID() != FileId(0) {
		t.Errorf("expected FileId 0, got %d", f.ID())
	}
	if string(f.Bytes()) != "fn main() { }" {
		t.Errorf("unexpected bytes: %q", f.Bytes())
	}
	if f.ContentHash().IsZero() {
		t.Errorf("expected non-zero content hash")
	}
}

func TestOpenSameContentSameHash(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.txt")
	p2 := filepath.Join(dir, "b.txt")
	content := []byte("identical content")
	os.WriteFile(p1, content, 0o644)
	os.WriteFile(p2, content, 0o644)

	f1, err := Open(FileId(0), p1)
	if err != nil {
		t.Fatalf("Open p1: %v", err)
	}
	defer f1.Close()
	f2, err := Open(FileId(1), p2)
	if err != nil {
		t.Fatalf("Open p2: %v", err)
	}
	defer f2.Close()

	if f1.ContentHash() != f2.ContentHash() {
		t.Errorf("expected identical content to hash identically")
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(FileId(0), filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	var unavailable *UnavailableError
	if !asUnavailable(err, &unavailable) {
		t.Errorf("expected *UnavailableError, got %T: %v", err, err)
	}
}

func asUnavailable(err error, target **UnavailableError) bool {
	u, ok := err.(*UnavailableError)
	if ok {
		*target = u
	}
	return ok
}
