// Package ingest implements the ingestion epoch (component C): it maps
// every file in a pre-sorted, canonicalized path list, assigns FileIds in
// list order, and seals into an immutable, hash-verified epoch.
package ingest

import (
	"vcrkernel/canon"
	"vcrkernel/epoch"
	"vcrkernel/kernel"
	"vcrkernel/source"
)

// Epoch owns every mapped file for one analysis run. It is built
// incrementally and then sealed; after sealing it is immutable.
type Epoch struct {
	epoch.Sealed

	files []*source.File // indexed by FileId
}

// Build ingests paths, which must already be lexicographically sorted by
// canonicalized path bytes with symlinks resolved. Any per-file failure
// aborts the whole epoch: every file already mapped is closed and Build
// returns the failure as a *kernel.Error.
func Build(paths []string) (*Epoch, error) {
	e := &Epoch{files: make([]*source.File, 0, len(paths))}

	for i, p := range paths {
		f, err := source.Open(source.FileId(i), p)
		if err != nil {
			e.closeAll()
			return nil, kernel.FileUnavailable(p, err)
		}
		e.files = append(e.files, f)
	}

	hash := e.computeHash()
	e.Seal(hash)
	return e, nil
}

func (e *Epoch) closeAll() {
	for _, f := range e.files {
		_ = f.Close()
	}
}

// computeHash hashes the ordered (canonical_path_bytes, content_hash)
// sequence, one entry per file in FileId order -- never by ranging over a
// map.
func (e *Epoch) computeHash() canon.Hash {
	b := canon.NewBuilder()
	b.BeginStruct(1)
	canon.OrderedChecked(b, e.files, func(a, c *source.File) bool { return a.CanonicalPath() < c.CanonicalPath() }, func(b *canon.Builder, f *source.File) {
		b.BeginStruct(1)
		b.Str(f.CanonicalPath())
		b.SubHash(f.ContentHash())
		b.EndStruct()
	})
	b.EndStruct()
	return b.Sum()
}

// FileCount returns the number of ingested files.
func (e *Epoch) FileCount() int { return len(e.files) }

// File returns the file mapped to the given FileId. It panics if id is
// out of range, since FileIds are assigned densely from 0.
func (e *Epoch) File(id source.FileId) *source.File {
	return e.files[id]
}

// Files returns the full ordered file list, indexed by FileId.
func (e *Epoch) Files() []*source.File {
	return e.files
}

// Verify recomputes the epoch hash and panics via Marker.MustMatch if it
// no longer matches the sealed hash.
func (e *Epoch) Verify() {
	e.Marker().MustMatch(e.computeHash())
}

// Close releases every mapped file. Callers must not use the epoch, or
// any byte slice borrowed from it, after Close returns.
func (e *Epoch) Close() error {
	var firstErr error
	for _, f := range e.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
