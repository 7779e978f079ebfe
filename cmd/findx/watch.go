package main

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/findx/pkg/findx/logging"
	"github.com/jamesainslie/findx/pkg/findx/types"
	"github.com/jamesainslie/findx/pkg/findx/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]...",
	Short: "Keep indexes refreshed as watched roots change",
	Long: `Watch indexes each given root, then watches it for filesystem
changes and refreshes the index after each quiet period. Runs until
interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := setupLogging(); err != nil {
		return err
	}
	defer logging.Close()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	debounce, err := time.ParseDuration(cfg.Watch.Debounce)
	if err != nil {
		debounce = watcher.DefaultDebounce
	}

	refresh := func(ctx context.Context, root string) (types.RefreshStats, error) {
		return store.Refresh(ctx, root)
	}

	w, err := watcher.New(refresh, debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, arg := range args {
		root, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		if _, err := store.Refresh(ctx, root); err != nil {
			return err
		}
		if err := w.Watch(root); err != nil {
			return err
		}
		printInfo("watching %s", root)
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
