package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vcrkernel/kernel"
	"vcrkernel/parse"
	"vcrkernel/snapshot"
	"vcrkernel/taint"
)

// analyzeReport is the JSON shape --json prints: the kernel.Result fields
// plus the diagnostic counters a caller needs to observe cache behavior.
type analyzeReport struct {
	Status          kernel.Status    `json:"status"`
	EpochID         uint64           `json:"epoch_id"`
	CPGHash         string           `json:"cpg_hash"`
	NodeCount       int              `json:"node_count"`
	EdgeCount       int              `json:"edge_count"`
	ErrorKind       kernel.ErrorKind `json:"error_kind,omitempty"`
	ErrorDetail     string           `json:"error_detail,omitempty"`
	TreeCacheHits   int64            `json:"tree_cache_hits"`
	TreeCacheMisses int64            `json:"tree_cache_misses"`
	FilesParsed     int64            `json:"files_parsed"`
	DirtyFunctions  int              `json:"dirty_functions"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := kernel.FromEnv()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		cfg, err = kernel.FromYAML(cfg, data)
		if err != nil {
			return fmt.Errorf("decoding config: %w", err)
		}
	}

	paths, err := expandPaths(args)
	if err != nil {
		return fmt.Errorf("resolving input paths: %w", err)
	}

	var cache *parse.PersistentCache
	if cacheDBPath != "" {
		cache, err = parse.OpenPersistentCache(cacheDBPath)
		if err != nil {
			return fmt.Errorf("opening persistent cache: %w", err)
		}
		defer cache.Close()
	}

	outcome, err := runPipeline(context.Background(), paths, cfg, cache, nil)
	if err != nil {
		var kerr *kernel.Error
		if errors.As(err, &kerr) {
			printReport(analyzeReportFromError(kerr))
			return nil
		}
		return err
	}

	if snapshotPath != "" {
		data := snapshot.Encode(outcome.epochID, outcome.graph)
		if err := os.WriteFile(snapshotPath, data, 0644); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}

	printReport(analyzeReport{
		Status:          outcome.result.Status,
		EpochID:         outcome.result.EpochID,
		CPGHash:         describeHash(outcome.result.CPGHash),
		NodeCount:       outcome.result.NodeCount,
		EdgeCount:       len(outcome.graph.Edges),
		TreeCacheHits:   outcome.metrics.TreeCacheHits,
		TreeCacheMisses: outcome.metrics.TreeCacheMisses,
		FilesParsed:     outcome.metrics.FilesParsed,
		DirtyFunctions:  outcome.dirtyFuncs,
	})
	return nil
}

func analyzeReportFromError(err *kernel.Error) analyzeReport {
	return analyzeReport{Status: kernel.StatusError, ErrorKind: err.Kind, ErrorDetail: err.Error()}
}

func printReport(r analyzeReport) {
	if jsonOutput {
		out, _ := json.MarshalIndent(r, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Printf("status:     %s\n", r.Status)
	if r.Status == kernel.StatusError {
		fmt.Printf("error:      %s: %s\n", r.ErrorKind, r.ErrorDetail)
		return
	}
	fmt.Printf("epoch:      %d\n", r.EpochID)
	fmt.Printf("cpg_hash:   %s\n", r.CPGHash)
	fmt.Printf("nodes:      %d\n", r.NodeCount)
	fmt.Printf("edges:      %d\n", r.EdgeCount)
	fmt.Printf("cache hits: %d, misses: %d, parsed: %d\n", r.TreeCacheHits, r.TreeCacheMisses, r.FilesParsed)
	fmt.Printf("dirty funcs: %d\n", r.DirtyFunctions)
}

// expandPaths turns a mix of file and directory arguments into a flat
// file list, descending into directories and skipping anything without a
// registered grammar extension -- the CLI's own input-gathering
// convenience, not a kernel concern.
func expandPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := parse.LanguageFromPath(path); ok {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func runTaint(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	_, g, err := snapshot.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	cfg := kernel.FromEnv()
	engine := taint.NewEngine(g, int(cfg.MaxTaintDepth), int(cfg.PointerContextK))
	result := engine.Run(isTaintSource, isTaintSink)

	out, err := json.MarshalIndent(taintReportFromResult(result), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

type taintReport struct {
	Paths     []taintPathReport `json:"paths"`
	Truncated []taint.Truncated `json:"truncated,omitempty"`
}

type taintPathReport struct {
	SourceID uint64   `json:"source_id"`
	SinkID   uint64   `json:"sink_id"`
	Nodes    []uint64 `json:"nodes"`
}

func taintReportFromResult(r taint.Result) taintReport {
	report := taintReport{Truncated: r.Truncated}
	for _, p := range r.Paths {
		nodes := make([]uint64, len(p.Nodes))
		for i, n := range p.Nodes {
			nodes[i] = uint64(n)
		}
		report.Paths = append(report.Paths, taintPathReport{
			SourceID: uint64(p.SourceID),
			SinkID:   uint64(p.SinkID),
			Nodes:    nodes,
		})
	}
	return report
}
