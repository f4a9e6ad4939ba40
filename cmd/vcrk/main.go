// Package main provides the vcrk CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vcrk",
	Short: "vcrk builds and queries a Code Property Graph over a source tree",
	Long:  `vcrk ingests a set of source files, parses and fuses them into a Code Property Graph, and can persist or query that graph deterministically.`,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>...",
	Short: "Build a sealed CPG from the given files or directories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

var taintCmd = &cobra.Command{
	Use:   "taint <snapshot-file>",
	Short: "Run the bounded taint engine against a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaint,
}

var (
	configPath   string
	snapshotPath string
	cacheDBPath  string
	jsonOutput   bool
)

func init() {
	analyzeCmd.Flags().StringVar(&configPath, "config", "", "Path to a .vcrk.yaml project config")
	analyzeCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Write the sealed CPG to this path")
	analyzeCmd.Flags().StringVar(&cacheDBPath, "cache", "", "Path to the persistent parse-tree cache database")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result record as JSON")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(taintCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
