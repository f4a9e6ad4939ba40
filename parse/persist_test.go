package parse

import (
	"path/filepath"
	"testing"

	"vcrkernel/canon"
	"vcrkernel/source"
)

func TestPersistentCacheRecordAndLookup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.sqlite")
	c, err := OpenPersistentCache(dbPath)
	if err != nil {
		t.Fatalf("OpenPersistentCache: %v", err)
	}
	defer c.Close()

	fileID := source.FileId(3)
	contentHash := canon.SHA256([]byte("fn a() {}"))
	structHash := canon.SHA256([]byte("structural"))

	if err := c.Record(fileID, contentHash, structHash, 12); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, count, ok := c.Lookup(fileID, contentHash)
	if !ok {
		t.Fatalf("expected a cache hit after Record")
	}
	if got != structHash || count != 12 {
		t.Errorf("got (%s, %d), want (%s, %d)", got, count, structHash, 12)
	}

	if _, _, ok := c.Lookup(fileID, canon.SHA256([]byte("different"))); ok {
		t.Errorf("expected a miss for a different content hash")
	}
}

func TestPersistentCacheRecordOverwrites(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.sqlite")
	c, err := OpenPersistentCache(dbPath)
	if err != nil {
		t.Fatalf("OpenPersistentCache: %v", err)
	}
	defer c.Close()

	fileID := source.FileId(1)
	contentHash := canon.SHA256([]byte("x"))
	first := canon.SHA256([]byte("first"))
	second := canon.SHA256([]byte("second"))

	if err := c.Record(fileID, contentHash, first, 1); err != nil {
		t.Fatalf("Record first: %v", err)
	}
	if err := c.Record(fileID, contentHash, second, 2); err != nil {
		t.Fatalf("Record second: %v", err)
	}

	got, count, ok := c.Lookup(fileID, contentHash)
	if !ok || got != second || count != 2 {
		t.Errorf("expected overwrite to stick: got (%s, %d, %v)", got, count, ok)
	}
}
