package kernel

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the kernel's recognized configuration options. Decoding a
// project's config file is out of scope for the kernel itself; the kernel
// only ever consumes an already-populated Config value. FromEnv and
// FromYAML are convenience constructors for callers (the cmd/vcrk driver)
// that do want to decode one.
type Config struct {
	// MaxTaintDepth bounds taint path length (component J).
	MaxTaintDepth uint32 `yaml:"max_taint_depth"`
	// PointerContextK is the K-CFA depth for context-sensitive taint flow.
	PointerContextK uint32 `yaml:"pointer_context_k"`
	// Parallel enables the deterministic parallel scheduler (component H).
	Parallel bool `yaml:"parallel"`
	// ThreadCount is the worker count when Parallel is set; 0 means auto
	// (runtime.NumCPU).
	ThreadCount uint32 `yaml:"thread_count"`
	// SnapshotDir is the destination directory for snapshot artifacts.
	SnapshotDir string `yaml:"snapshot_dir"`
	// CacheDir is the destination for the persistent parse-tree cache
	// database (an internal detail of the parse component, needed to
	// locate it on disk).
	CacheDir string `yaml:"cache_dir"`
}

// DefaultConfig returns the default configuration: max_taint_depth=10,
// pointer_context_k=3, parallel=false, thread_count=0 (auto).
func DefaultConfig() Config {
	return Config{
		MaxTaintDepth:   10,
		PointerContextK: 3,
		Parallel:        false,
		ThreadCount:     0,
	}
}

// FromEnv overlays environment variables onto DefaultConfig, the way the
// teacher's sibling kailab/config.FromEnv does.
func FromEnv() Config {
	cfg := DefaultConfig()
	cfg.MaxTaintDepth = getEnvUint32("VCRK_MAX_TAINT_DEPTH", cfg.MaxTaintDepth)
	cfg.PointerContextK = getEnvUint32("VCRK_POINTER_CONTEXT_K", cfg.PointerContextK)
	cfg.Parallel = getEnvBool("VCRK_PARALLEL", cfg.Parallel)
	cfg.ThreadCount = getEnvUint32("VCRK_THREAD_COUNT", cfg.ThreadCount)
	cfg.SnapshotDir = getEnvString("VCRK_SNAPSHOT_DIR", cfg.SnapshotDir)
	cfg.CacheDir = getEnvString("VCRK_CACHE_DIR", cfg.CacheDir)
	return cfg
}

// FromYAML decodes a .vcrk.yaml project config, overlaying it onto base.
// Any field absent from the document leaves base's value untouched.
func FromYAML(base Config, data []byte) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding yaml config: %w", err)
	}
	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvUint32(key string, defaultVal uint32) uint32 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint32(i)
		}
	}
	return defaultVal
}
