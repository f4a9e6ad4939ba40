package kernel

import "sync/atomic"

// Metrics holds diagnostic counters updated off the hash-invariant path.
// None of these values ever contribute to a canonical hash; they exist
// purely so a caller can observe cache behavior, e.g. "one parse and
// nine cache hits." Plain atomics, matching this codebase's habit of
// reaching for sync/atomic rather than a metrics library for anything
// that isn't a long-running server.
type Metrics struct {
	treeCacheHits   atomic.Int64
	treeCacheMisses atomic.Int64
	filesParsed     atomic.Int64
	taintTruncated  atomic.Int64
}

// RecordCacheHit increments the tree-cache hit counter.
func (m *Metrics) RecordCacheHit() { m.treeCacheHits.Add(1) }

// RecordCacheMiss increments the tree-cache miss counter.
func (m *Metrics) RecordCacheMiss() { m.treeCacheMisses.Add(1) }

// RecordParsed increments the counter of files classified Parsed. A file
// served from the persistent cache is not counted here, even though the
// grammar engine still runs for it.
func (m *Metrics) RecordParsed() { m.filesParsed.Add(1) }

// RecordTaintTruncated increments the taint-truncation counter.
func (m *Metrics) RecordTaintTruncated() { m.taintTruncated.Add(1) }

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TreeCacheHits:   m.treeCacheHits.Load(),
		TreeCacheMisses: m.treeCacheMisses.Load(),
		FilesParsed:     m.filesParsed.Load(),
		TaintTruncated:  m.taintTruncated.Load(),
	}
}

// MetricsSnapshot is a plain-value copy of Metrics for reporting.
type MetricsSnapshot struct {
	TreeCacheHits   int64
	TreeCacheMisses int64
	FilesParsed     int64
	TaintTruncated  int64
}
