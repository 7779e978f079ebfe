package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/findx/pkg/findx/hash"
	"github.com/jamesainslie/findx/pkg/findx/logging"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Print the content digest of files",
	Long: `Hash computes the configured content digest (sha256 by default)
for each file, streaming the contents rather than loading them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	if err := setupLogging(); err != nil {
		return err
	}
	defer logging.Close()

	hasher, err := hash.ForAlgorithm(cfg.HashAlgorithm)
	if err != nil {
		return err
	}

	type digest struct {
		Path string `json:"path"`
		Hash string `json:"hash"`
	}

	digests := make([]digest, 0, len(args))
	for _, path := range args {
		h, err := hasher(path)
		if err != nil {
			return err
		}
		digests = append(digests, digest{Path: path, Hash: h})
	}

	if viper.GetBool("json") {
		return json.NewEncoder(os.Stdout).Encode(digests)
	}
	for _, d := range digests {
		fmt.Printf("%s  %s\n", d.Hash, d.Path)
	}
	return nil
}
