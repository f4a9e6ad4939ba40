package parse

import (
	"database/sql"
	"fmt"

	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"

	"vcrkernel/canon"
	"vcrkernel/source"
)

// PersistentCache is a disk-backed record of (file, content hash) ->
// structural hash pairs observed in prior runs of this process or a
// previous one. It never stores a tree-sitter tree itself: the grammar
// engine's tree handle is a cgo-backed pointer with no stable on-disk
// representation, so a cache hit here only avoids recomputing the
// structural hash, not the parse itself. It exists to make
// "did this file's syntax tree actually change since last time"
// checkable without running the rest of the kernel, and to give the
// kernel's metrics something to report across process restarts.
//
// A 32-byte BLAKE3 fingerprint of (file id, content hash) is the sqlite
// row key. It is non-authoritative: a row found by fingerprint is only a
// hit once its stored file id and SHA-256 content hash equal the ones
// asked for.
type PersistentCache struct {
	db *sql.DB
}

// OpenPersistentCache opens (creating if necessary) a sqlite database at
// path to back a PersistentCache.
func OpenPersistentCache(path string) (*PersistentCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("parse: open persistent cache: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS tree_cache (
	fingerprint BLOB PRIMARY KEY,
	file_id     INTEGER NOT NULL,
	content_hash BLOB NOT NULL,
	structural_hash BLOB NOT NULL,
	node_count  INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("parse: init persistent cache schema: %w", err)
	}
	return &PersistentCache{db: db}, nil
}

// Close releases the underlying sqlite connection.
func (c *PersistentCache) Close() error { return c.db.Close() }

func fingerprint(fileID source.FileId, contentHash canon.Hash) []byte {
	h := blake3.New(32, nil)
	var fb [4]byte
	fb[0] = byte(fileID)
	fb[1] = byte(fileID >> 8)
	fb[2] = byte(fileID >> 16)
	fb[3] = byte(fileID >> 24)
	h.Write(fb[:])
	h.Write(contentHash[:])
	return h.Sum(nil)
}

// Lookup reports the structural hash and node count recorded for
// (fileID, contentHash), if any. The blake3 fingerprint serves only to
// key the lookup efficiently; the stored file id and content hash are
// compared before a hit is reported. The returned structural hash is a SHA-256
// value computed the same way StructuralHash computes it.
func (c *PersistentCache) Lookup(fileID source.FileId, contentHash canon.Hash) (structuralHash canon.Hash, nodeCount uint32, ok bool) {
	fp := fingerprint(fileID, contentHash)
	var sh, storedContent []byte
	var storedFileID uint32
	row := c.db.QueryRow(`SELECT file_id, content_hash, structural_hash, node_count FROM tree_cache WHERE fingerprint = ?`, fp)
	if err := row.Scan(&storedFileID, &storedContent, &sh, &nodeCount); err != nil {
		return canon.Zero, 0, false
	}
	if storedFileID != uint32(fileID) || string(storedContent) != string(contentHash[:]) {
		return canon.Zero, 0, false
	}
	if len(sh) != len(canon.Zero) {
		return canon.Zero, 0, false
	}
	copy(structuralHash[:], sh)
	return structuralHash, nodeCount, true
}

// Record stores the structural hash and node count for (fileID,
// contentHash), overwriting any prior entry for the same fingerprint.
func (c *PersistentCache) Record(fileID source.FileId, contentHash, structuralHash canon.Hash, nodeCount uint32) error {
	fp := fingerprint(fileID, contentHash)
	_, err := c.db.Exec(
		`INSERT INTO tree_cache (fingerprint, file_id, content_hash, structural_hash, node_count)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET structural_hash = excluded.structural_hash, node_count = excluded.node_count`,
		fp, uint32(fileID), contentHash[:], structuralHash[:], nodeCount,
	)
	if err != nil {
		return fmt.Errorf("parse: record persistent cache entry: %w", err)
	}
	return nil
}
