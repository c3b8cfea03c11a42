package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tigerlily/tigerlily/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set workspace configuration values",
	Long: `Get or set workspace configuration values.

Usage:
  tigerlily config                    # Show all config
  tigerlily config dimensions         # Get specific value
  tigerlily config dimensions 64      # Set value
  tigerlily config operator l1_norm   # Set default feature operator

Keys:
  dimensions   Embedding width (NMF components)
  max_iter     Maximum NMF sweeps
  seed         Seed for randomized initialization
  init         Initialization: nndsvd, nndsvda, nndsvdar, random
  tolerance    NMF stopping tolerance
  operator     Default feature operator: hadamard, difference, l1_norm, l2_norm, concatenation
  dataset_url  Base URL of the example tables
  query_url    GSQL script installed by 'pagerank install'`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	// No args: show all config
	if len(args) == 0 {
		if humanOutput {
			for _, key := range config.Keys() {
				value, _ := cfg.Get(key)
				fmt.Printf("%-12s %s\n", key+":", value)
			}
		} else {
			outputJSON(cfg)
		}
		return nil
	}

	key := normalizeKey(args[0])

	// One arg: get specific value
	if len(args) == 1 {
		value, err := cfg.Get(key)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{key: value})
		}
		return nil
	}

	// Two args: set value
	value := args[1]
	if err := cfg.Set(key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{
			Status: "updated",
			Key:    key,
			Value:  value,
		})
	}
	return nil
}

// normalizeKey converts key formats (max-iter, MAX_ITER) to max_iter
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "-", "_")
	return key
}
