package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/findx/pkg/findx/config"
	"github.com/jamesainslie/findx/pkg/findx/hash"
	"github.com/jamesainslie/findx/pkg/findx/index"
	"github.com/jamesainslie/findx/pkg/findx/journal"
	"github.com/jamesainslie/findx/pkg/findx/logging"
	"github.com/jamesainslie/findx/pkg/findx/scanner"
)

var (
	cfgFile string
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:   "findx",
		Short: "Index, search, and deduplicate files",
		Long: `findx maintains a persistent index of file metadata per directory
root, and answers searches and duplicate queries from it.

Examples:
  findx index ~/projects             # Build the index for a root
  findx refresh ~/projects           # Reconcile the index against disk
  findx search -g '*.txt' ~/projects # Glob search over the index
  findx search -r '_test\.go$' .     # Regex search
  findx dupes ~/photos               # Find duplicate files
  findx watch ~/projects             # Auto-refresh on change`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/findx/config.yaml)")
	rootCmd.PersistentFlags().String("index-dir", "", "index database directory")
	rootCmd.PersistentFlags().StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "output JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("index_dir", rootCmd.PersistentFlags().Lookup("index-dir"))
	_ = viper.BindPFlag("exclude", rootCmd.PersistentFlags().Lookup("exclude"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables, then
// resolves the typed configuration. Flag values bound into viper win
// over file and environment settings.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "findx"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "findx"))
		}
	}

	viper.SetEnvPrefix("FINDX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	c, err := config.FromViper(viper.GetViper())
	cobra.CheckErr(err)
	cfg = c
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setupLogging initializes logging from the resolved configuration.
// --verbose lowers the default level to debug; per-component overrides
// from the config file still apply.
func setupLogging() error {
	level := cfg.Logging.Level
	if viper.GetBool("verbose") {
		level = "debug"
	}
	return logging.Init(logging.Config{
		Level:      level,
		Path:       cfg.Logging.Path,
		Components: cfg.Logging.Components,
		Quiet:      viper.GetBool("quiet"),
	})
}

// openStore opens the index store with the configured scanner and hasher.
func openStore() (*index.Store, error) {
	hasher, err := hash.ForAlgorithm(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	sc := scanner.New(scanner.Options{
		Exclude: cfg.Exclude,
	})

	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	return index.Open(cfg.IndexDir, index.WithScanner(sc), index.WithHasher(hasher))
}

// openJournal returns the operation journal, or nil when disabled.
func openJournal() *journal.Journal {
	if !cfg.Journal.Enabled {
		return nil
	}
	j, err := journal.New(cfg.Journal.Dir)
	if err != nil {
		return nil
	}
	if err := j.EnsureDir(); err != nil {
		printError("journal disabled: %v", err)
		return nil
	}
	return j
}

// argRoot returns the positional root argument, defaulting to cwd.
func argRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// printInfo prints a message unless quiet mode is enabled.
func printInfo(format string, args ...interface{}) {
	if !viper.GetBool("quiet") {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
