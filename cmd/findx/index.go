package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/findx/pkg/findx/logging"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build the index for a directory root",
	Long: `Build performs a full scan of the root and replaces any existing
index for it. Unreadable subtrees are skipped and logged.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [path]",
	Short: "Reconcile a root's index against the live filesystem",
	Long: `Refresh walks the tree and diffs it against the stored index.
Unchanged entries keep their cached content hashes. A rename is
reported as one removal plus one addition. A missing or corrupt
index is rebuilt instead of failing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(refreshCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if err := setupLogging(); err != nil {
		return err
	}
	defer logging.Close()

	root, err := filepath.Abs(argRoot(args))
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Build(cmd.Context(), root)
	if err != nil {
		return err
	}

	if j := openJournal(); j != nil {
		if _, err := j.LogBuild(root, n); err != nil {
			printError("journal write failed: %v", err)
		}
	}

	printInfo("indexed %s: %d entries", root, n)
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	if err := setupLogging(); err != nil {
		return err
	}
	defer logging.Close()

	root, err := filepath.Abs(argRoot(args))
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Refresh(cmd.Context(), root)
	if err != nil {
		return err
	}

	if j := openJournal(); j != nil {
		if _, err := j.LogRefresh(root, stats); err != nil {
			printError("journal write failed: %v", err)
		}
	}

	printInfo("refreshed %s: %d added, %d removed, %d changed (%s)",
		root, stats.Added, stats.Removed, stats.Changed, stats.Elapsed.Round(time.Millisecond))
	return nil
}
