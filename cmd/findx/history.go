package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/findx/pkg/findx/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent index operations",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum entries to show (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	j, err := journal.New(cfg.Journal.Dir)
	if err != nil {
		return err
	}

	entries, err := j.List(historyLimit)
	if err != nil {
		return err
	}

	if viper.GetBool("json") {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}

	for _, e := range entries {
		switch e.Operation {
		case journal.OpBuild:
			fmt.Printf("%s  %-7s  %s  (%d entries)\n",
				e.Timestamp.Format("2006-01-02 15:04:05"), e.Operation, e.Root, e.Entries)
		case journal.OpRefresh:
			if e.Stats != nil {
				fmt.Printf("%s  %-7s  %s  (+%d -%d ~%d)\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.Operation, e.Root,
					e.Stats.Added, e.Stats.Removed, e.Stats.Changed)
			}
		}
	}
	printInfo("%d operations", len(entries))
	return nil
}
