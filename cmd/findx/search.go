package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/findx/pkg/findx/logging"
	"github.com/jamesainslie/findx/pkg/findx/query"
	"github.com/jamesainslie/findx/pkg/findx/types"
)

var (
	searchGlob     string
	searchRegex    string
	searchFullPath bool
	searchFlat     bool
	searchMinSize  string
	searchMaxSize  string
	searchNewer    time.Duration
	searchOlder    time.Duration
)

var searchCmd = &cobra.Command{
	Use:   "search [path]",
	Short: "Search indexed files by name and attributes",
	Long: `Search evaluates glob, regex, size, and age filters against the
index for the root (or a live scan when no index exists). All given
filters must match. Results are ordered by path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchGlob, "glob", "g", "", "anchored name glob (e.g. '*.txt')")
	searchCmd.Flags().StringVarP(&searchRegex, "regex", "r", "", "regex matched against the file name")
	searchCmd.Flags().BoolVar(&searchFullPath, "full-path", false, "match regex against the full path")
	searchCmd.Flags().BoolVar(&searchFlat, "flat", false, "search only the immediate children of the root")
	searchCmd.Flags().StringVar(&searchMinSize, "min-size", "", "minimum size (e.g. 100K, 1G)")
	searchCmd.Flags().StringVar(&searchMaxSize, "max-size", "", "maximum size (e.g. 100K, 1G)")
	searchCmd.Flags().DurationVar(&searchNewer, "newer-than", 0, "modified within this duration (e.g. 24h)")
	searchCmd.Flags().DurationVar(&searchOlder, "older-than", 0, "modified before this duration ago (e.g. 720h)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := setupLogging(); err != nil {
		return err
	}
	defer logging.Close()

	spec := query.Spec{
		Root:      argRoot(args),
		Glob:      searchGlob,
		Regex:     searchRegex,
		FullPath:  searchFullPath,
		Recursive: !searchFlat,
	}

	if searchMinSize != "" {
		size, err := types.ParseSize(searchMinSize)
		if err != nil {
			return err
		}
		spec.MinSize = size
	}
	if searchMaxSize != "" {
		size, err := types.ParseSize(searchMaxSize)
		if err != nil {
			return err
		}
		spec.MaxSize = size
	}

	now := time.Now()
	if searchNewer > 0 {
		spec.ModifiedAfter = now.Add(-searchNewer)
	}
	if searchOlder > 0 {
		spec.ModifiedBefore = now.Add(-searchOlder)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	engine := query.New(store, nil)
	entries, err := engine.Query(cmd.Context(), spec)
	if err != nil {
		return err
	}

	if viper.GetBool("json") {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}

	for _, e := range entries {
		if e.Kind == types.KindFile {
			fmt.Printf("%10s  %s\n", e.HumanSize(), e.Path)
		} else {
			fmt.Printf("%10s  %s\n", e.Kind, e.Path)
		}
	}
	printInfo("%d matches", len(entries))
	return nil
}
