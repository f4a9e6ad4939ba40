// Package source provides the read-only byte content of a single input
// file, keyed by a stable FileId and its content hash. The file is read
// through a read-only memory mapping and its bytes are copied once into a
// heap buffer; the package hands out that buffer, not a view into the
// mapping.
package source

import (
	"fmt"

	"golang.org/x/exp/mmap"

	"vcrkernel/canon"
)

// FileId is a small opaque integer assigned in the order files appear in
// the lexicographically sorted, canonicalized input list. It is stable
// across runs for the same input and serves as the upper half of a NodeId.
type FileId uint32

// File holds one source file's bytes (a heap copy of its read-only
// memory mapping) plus its identity and content hash. Its bytes remain
// valid for the lifetime of the owning ingestion epoch; holders must not
// retain slices beyond that.
type File struct {
	id            FileId
	canonicalPath string
	contentHash   canon.Hash
	reader        *mmap.ReaderAt
	bytes         []byte
}

// UnavailableError reports a mapping failure for a specific path.
type UnavailableError struct {
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("file unavailable: %s: %v", e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Open memory-maps canonicalPath read-only, copies its contents into a
// heap buffer, and computes its content hash immediately. On any failure
// it returns *UnavailableError.
func Open(id FileId, canonicalPath string) (*File, error) {
	r, err := mmap.Open(canonicalPath)
	if err != nil {
		return nil, &UnavailableError{Path: canonicalPath, Err: err}
	}

	size := r.Len()
	buf := make([]byte, size)
	if size > 0 {
		if _, err := r.ReadAt(buf, 0); err != nil {
			_ = r.Close()
			return nil, &UnavailableError{Path: canonicalPath, Err: err}
		}
	}

	return &File{
		id:            id,
		canonicalPath: canonicalPath,
		contentHash:   canon.SHA256(buf),
		reader:        r,
		bytes:         buf,
	}, nil
}

// ID returns the file's stable identity within this run.
func (f *File) ID() FileId { return f.id }

// CanonicalPath returns the path this file was opened from.
func (f *File) CanonicalPath() string { return f.canonicalPath }

// ContentHash returns the SHA-256 digest of the raw file bytes.
func (f *File) ContentHash() canon.Hash { return f.contentHash }

// Len returns the file size in bytes.
func (f *File) Len() int { return len(f.bytes) }

// Bytes returns the file content copied in by Open; it is not a view into
// the memory mapping. The returned slice must not be mutated and must not
// be retained past the owning epoch's lifetime.
func (f *File) Bytes() []byte {
	return f.bytes
}

// Close releases the underlying memory mapping. Callers must not use the
// File, or any slice returned from Bytes, after Close returns.
func (f *File) Close() error {
	return f.reader.Close()
}
