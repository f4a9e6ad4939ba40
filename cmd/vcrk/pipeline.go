package main

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"

	"vcrkernel/canon"
	"vcrkernel/cpg"
	"vcrkernel/epoch"
	"vcrkernel/ingest"
	"vcrkernel/kernel"
	"vcrkernel/parse"
	"vcrkernel/schedule"
	"vcrkernel/semantic"
	"vcrkernel/source"
)

// runOutcome is everything one end-to-end analysis run produced, for the
// CLI commands to report or persist as they see fit.
type runOutcome struct {
	lifecycle  *kernel.Lifecycle
	result     kernel.Result
	epochID    epoch.ID
	graph      *cpg.Graph
	metrics    kernel.MetricsSnapshot
	dirtyFuncs int
	bodyHashes map[source.FileId]map[string]uint64
}

// runPipeline drives one file list through every component in order:
// Ingestion (C) -> {Parse (D), Semantic (E,F)} per file, scheduled by
// component H -> CPG merge (G) -> hash (A). It owns the kernel.Lifecycle
// transitions end to end; any fatal error fails the lifecycle and is
// returned. A component failure carries a *kernel.Error, which the
// scheduler wraps for errors raised inside a task.
//
// prevBodyHashes, if non-nil, is a predecessor run's per-file qualified
// function name -> body hash map (runOutcome.bodyHashes from an earlier
// call). A Parsed file is diffed against its entry with
// semantic.InvalidationFor to count which functions actually changed;
// an Unchanged file is never diffed, since nothing in it could have.
// With a nil prevBodyHashes nothing is diffed and no function is dirty.
func runPipeline(ctx context.Context, paths []string, cfg kernel.Config, cache *parse.PersistentCache, prevBodyHashes map[source.FileId]map[string]uint64) (*runOutcome, error) {
	lc := kernel.NewLifecycle()
	metrics := &kernel.Metrics{}

	sorted := sortedCanonicalPaths(paths)

	ingestEpoch, err := ingest.Build(sorted)
	if err != nil {
		lc.Fail(err.Error())
		return nil, err
	}
	defer ingestEpoch.Close()
	lc.Advance(kernel.StateIngested)

	interner := semantic.NewInterner()
	plan := schedule.NewPlan()
	for i := 0; i < ingestEpoch.FileCount(); i++ {
		f := ingestEpoch.File(source.FileId(i))
		plan.AddTask(func(ctx context.Context, deps []any) (any, error) {
			session := parse.NewSession(metrics, nil)
			if cache != nil {
				session = session.WithPersistentCache(cache)
			}
			parseResult, err := session.Parse(f.ID(), f.CanonicalPath(), f.ContentHash(), f.Bytes())
			if err != nil {
				return nil, err
			}
			fragment, bodyHashes := semantic.Build(f.ID(), parseResult.Tree, interner)
			invalidated := semantic.NewInvalidationSet()
			if prevBodyHashes != nil {
				invalidated = semantic.InvalidationFor(parseResult.Class, prevBodyHashes[f.ID()], bodyHashes)
			}
			return fileBuild{
				fileID:     f.ID(),
				parse:      parseResult,
				fragment:   fragment,
				bodyHashes: bodyHashes,
				dirty:      invalidated,
			}, nil
		})
	}

	workers := 1
	if cfg.Parallel {
		workers = int(cfg.ThreadCount)
		if workers == 0 {
			workers = runtime.NumCPU()
		}
	}
	sched := schedule.New(plan, workers)
	results, err := sched.Run(ctx)
	if err != nil {
		lc.Fail(err.Error())
		return nil, err
	}
	lc.Advance(kernel.StateParsed)
	lc.Advance(kernel.StateSemantic)

	parseResults := make(map[source.FileId]parse.Result, len(results))
	fragments := make([]cpg.Fragment, 0, len(results))
	bodyHashes := make(map[source.FileId]map[string]uint64, len(results))
	dirtyFuncs := 0
	for _, r := range results {
		fb := r.(fileBuild)
		parseResults[fb.fileID] = fb.parse
		fragments = append(fragments, fb.fragment)
		bodyHashes[fb.fileID] = fb.bodyHashes
		dirtyFuncs += len(fb.dirty.Dirty)
	}
	sort.Slice(fragments, func(i, j int) bool { return fragments[i].FileID < fragments[j].FileID })

	parseEpoch := semantic.SealParseEpoch(parseResults)

	graph, err := cpg.Merge(fragments, interner.Strings())
	if err != nil {
		lc.Fail(err.Error())
		return nil, err
	}
	lc.Advance(kernel.StateCPGBuilt)
	lc.Advance(kernel.StateSealed)

	result := kernel.Success(uint64(parseEpoch.Marker().ID), graph.Hash, len(graph.Nodes))

	return &runOutcome{
		lifecycle:  lc,
		result:     result,
		epochID:    parseEpoch.Marker().ID,
		graph:      graph,
		metrics:    metrics.Snapshot(),
		dirtyFuncs: dirtyFuncs,
		bodyHashes: bodyHashes,
	}, nil
}

// fileBuild is the per-file result a scheduled parse+semantic task
// produces, threaded back through the scheduler's opaque `any` slots.
type fileBuild struct {
	fileID     source.FileId
	parse      parse.Result
	fragment   cpg.Fragment
	bodyHashes map[string]uint64
	dirty      *semantic.InvalidationSet
}

// sortedCanonicalPaths resolves every path to its canonical absolute
// form (symlinks followed) and returns them in lexicographic order by
// canonical path bytes -- the file ordering ingest.Build requires, since
// it assigns FileIds by list position.
func sortedCanonicalPaths(paths []string) []string {
	canonical := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		canonical = append(canonical, filepath.Clean(abs))
	}
	sort.Strings(canonical)
	return canonical
}

// describeHash renders a canon.Hash the way the CLI prints it everywhere:
// a plain lowercase hex string, not Go's %x formatting of a byte array.
func describeHash(h canon.Hash) string {
	return h.String()
}
