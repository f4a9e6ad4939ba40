package parse

import (
	"sync"

	"vcrkernel/canon"
	"vcrkernel/source"
)

// TreeCache holds, per file, the most recently parsed Tree. It is the
// in-process analogue of cloning a predecessor parse epoch's tree
// handles: a lookup with a matching content hash hands back the exact
// same *Tree, skipping the grammar engine entirely.
type TreeCache struct {
	mu      sync.Mutex
	entries map[source.FileId]*Tree
}

// NewTreeCache builds an empty cache.
func NewTreeCache() *TreeCache {
	return &TreeCache{entries: make(map[source.FileId]*Tree)}
}

// Lookup returns the cached tree for fileID if its content hash still
// matches contentHash. A stale entry (hash mismatch) is not returned,
// but is left in place -- Store will overwrite it once the new tree is
// parsed.
func (c *TreeCache) Lookup(fileID source.FileId, contentHash canon.Hash) (*Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[fileID]
	if !ok || t.ContentHash != contentHash {
		return nil, false
	}
	return t, true
}

// Store records t as the current tree for its FileID.
func (c *TreeCache) Store(t *Tree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[t.FileID] = t
}

// Invalidate drops any cached tree for fileID, forcing the next lookup
// to miss.
func (c *TreeCache) Invalidate(fileID source.FileId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fileID)
}

// Len returns the number of trees currently cached.
func (c *TreeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
