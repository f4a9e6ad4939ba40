package semantic

import (
	"sync"

	"vcrkernel/parse"
)

// Interner assigns a stable, monotonically increasing NameID to each
// distinct identifier string it sees, in first-appearance order. The
// string table threaded through cpg.Graph is exactly this interner's
// accumulated slice.
type Interner struct {
	mu      sync.Mutex
	byName  map[string]uint32
	strings []string
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{byName: make(map[string]uint32)}
}

// Intern returns name's NameID, assigning the next sequential ID the
// first time name is seen.
func (in *Interner) Intern(name string) uint32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.byName[name]; ok {
		return id
	}
	id := uint32(len(in.strings))
	in.strings = append(in.strings, name)
	in.byName[name] = id
	return id
}

// Strings returns the accumulated string table in NameID order.
func (in *Interner) Strings() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]string, len(in.strings))
	copy(out, in.strings)
	return out
}

// InvalidationSet records which qualified function names had a
// different body hash between two semantic builds of the
// same file. A caller doing incremental re-analysis uses this to decide
// which functions' CFG/DFG fragments can be carried over from the
// predecessor semantic epoch unchanged, and which must be rebuilt.
type InvalidationSet struct {
	Dirty map[string]bool
}

// NewInvalidationSet returns an empty set.
func NewInvalidationSet() *InvalidationSet {
	return &InvalidationSet{Dirty: make(map[string]bool)}
}

// Mark records qualifiedName as dirty.
func (s *InvalidationSet) Mark(qualifiedName string) {
	s.Dirty[qualifiedName] = true
}

// IsDirty reports whether qualifiedName was marked.
func (s *InvalidationSet) IsDirty(qualifiedName string) bool {
	return s.Dirty[qualifiedName]
}

// Compare fills an InvalidationSet from two generations of
// (qualifiedName -> bodyHash) maps: any name present in `next` whose
// hash differs from (or is absent from) `prev` is dirty, and any name
// present only in `prev` is dirty too, since its removal changes the
// CPG regardless.
func Compare(prev, next map[string]uint64) *InvalidationSet {
	s := NewInvalidationSet()
	for name, h := range next {
		if ph, ok := prev[name]; !ok || ph != h {
			s.Mark(name)
		}
	}
	for name := range prev {
		if _, ok := next[name]; !ok {
			s.Mark(name)
		}
	}
	return s
}

// InvalidationFor wires invalidation tracking into a file's parse
// classification: a file parse.Parse classified Unchanged carries no
// function body that could have changed, so every function in next is
// clean by construction and Compare is never run. Only a Parsed file
// (no cached tree or record matched its content hash) is worth diffing
// against the predecessor generation's body hashes.
func InvalidationFor(class parse.Classification, prev, next map[string]uint64) *InvalidationSet {
	if class == parse.Unchanged {
		return NewInvalidationSet()
	}
	return Compare(prev, next)
}
