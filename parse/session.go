package parse

import (
	"fmt"

	"vcrkernel/canon"
	"vcrkernel/kernel"
	"vcrkernel/source"
)

// Session runs the parser against an ingestion epoch's files, reusing a
// predecessor epoch's trees wherever content is unchanged (the
// "Unchanged" classification). A Session is not safe for concurrent
// use; concurrent callers each build their own Session, and may share
// one read-only predecessor TreeCache among them. cmd/vcrk's
// runPipeline builds one Session per scheduled task, with no predecessor.
type Session struct {
	parser      *Parser
	predecessor *TreeCache
	current     *TreeCache
	persist     *PersistentCache
	metrics     *kernel.Metrics
}

// NewSession builds a Session with no predecessor: every file is a fresh
// parse. Pass predecessor to enable incremental reuse against a prior
// run's trees.
func NewSession(metrics *kernel.Metrics, predecessor *TreeCache) *Session {
	return &Session{
		parser:      NewParser(),
		predecessor: predecessor,
		current:     NewTreeCache(),
		metrics:     metrics,
	}
}

// WithPersistentCache attaches a disk-backed structural-hash cache.
func (s *Session) WithPersistentCache(pc *PersistentCache) *Session {
	s.persist = pc
	return s
}

// Current returns this session's tree cache, suitable for passing as the
// predecessor to a later Session over the next epoch.
func (s *Session) Current() *TreeCache { return s.current }

// Classification reports whether a file's tree was reused from the
// predecessor epoch or freshly parsed.
type Classification int

const (
	Parsed Classification = iota
	Unchanged
)

// Result is the outcome of parsing one file within a Session.
type Result struct {
	Tree           *Tree
	Class          Classification
	StructuralHash canon.Hash
}

// Parse classifies and (if needed) parses one file. A predecessor tree
// with a matching content hash is reused verbatim, tree included
// (Unchanged); otherwise the grammar engine runs. A persistent-cache hit
// cannot skip that grammar run -- a *sitter.Tree has no on-disk form --
// but it does let the structural hash be trusted from the prior record
// rather than recomputed, and still counts as a cache hit for metrics
// that must survive process restarts. Parse failure returns a
// *kernel.Error of kind ParseFailure, which callers must treat as fatal
// to the owning epoch.
func (s *Session) Parse(fileID source.FileId, path string, contentHash canon.Hash, content []byte) (Result, error) {
	if s.predecessor != nil {
		if t, ok := s.predecessor.Lookup(fileID, contentHash); ok {
			s.current.Store(t)
			s.metrics.RecordCacheHit()
			return Result{Tree: t, Class: Unchanged, StructuralHash: StructuralHash(t)}, nil
		}
	}

	var cachedHash canon.Hash
	var cacheHit bool
	if s.persist != nil {
		if sh, _, ok := s.persist.Lookup(fileID, contentHash); ok {
			cachedHash, cacheHit = sh, true
		}
	}

	lang, ok := LanguageFromPath(path)
	if !ok {
		return Result{}, fmt.Errorf("parse: %s: no grammar registered for this extension", path)
	}

	t, err := s.parser.Parse(fileID, contentHash, lang, content)
	if err != nil {
		return Result{}, err
	}
	s.current.Store(t)

	if cacheHit {
		s.metrics.RecordCacheHit()
		return Result{Tree: t, Class: Unchanged, StructuralHash: cachedHash}, nil
	}
	s.metrics.RecordCacheMiss()
	s.metrics.RecordParsed()

	sh := StructuralHash(t)
	if s.persist != nil {
		_ = s.persist.Record(fileID, contentHash, sh, uint32(len(t.PreOrder())))
	}
	return Result{Tree: t, Class: Parsed, StructuralHash: sh}, nil
}
