package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/findx/pkg/findx/dedup"
	"github.com/jamesainslie/findx/pkg/findx/logging"
	"github.com/jamesainslie/findx/pkg/findx/types"
)

var dupesIncludeEmpty bool

var dupesCmd = &cobra.Command{
	Use:   "dupes [path]",
	Short: "Find duplicate files under a root",
	Long: `Dupes groups content-identical files under the root. Files are
bucketed by size first; only candidates sharing a size are hashed.
Groups are ordered by the space reclaimable by deduplicating them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDupes,
}

func init() {
	dupesCmd.Flags().BoolVar(&dupesIncludeEmpty, "include-empty", false, "report zero-byte files as duplicates")
	rootCmd.AddCommand(dupesCmd)
}

func runDupes(cmd *cobra.Command, args []string) error {
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

	includeEmpty := dupesIncludeEmpty || cfg.IncludeEmpty
	detector := dedup.New(store, dedup.Options{IncludeEmpty: includeEmpty})

	groups, err := detector.FindDuplicates(cmd.Context(), root)
	if err != nil {
		return err
	}

	if viper.GetBool("json") {
		return json.NewEncoder(os.Stdout).Encode(groups)
	}

	var reclaimable int64
	for _, g := range groups {
		fmt.Printf("%s  %s each, %s reclaimable\n",
			shortHash(g.Hash), types.FormatSize(g.Size), types.FormatSize(g.ReclaimableBytes()))
		for _, p := range g.Paths {
			fmt.Printf("    %s\n", p)
		}
		reclaimable += g.ReclaimableBytes()
	}
	printInfo("%d duplicate groups, %s reclaimable", len(groups), types.FormatSize(reclaimable))
	return nil
}

// shortHash abbreviates a digest for display.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
