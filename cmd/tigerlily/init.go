package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tigerlily/tigerlily/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new tigerlily workspace",
	Long: `Initialize a new tigerlily workspace in the current directory.

Creates:
  .tigerlily/
  ├── config.json     # Default fit and feature settings
  ├── runs.jsonl      # Empty fit run log
  ├── data/           # Downloaded example tables
  └── cache/          # SQLite cache and fitted embedding (gitignored)`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if config.IsWorkspace(root) {
		exitWithError(ExitError, "directory already contains a tigerlily workspace")
	}

	for _, dir := range []string{config.WorkspacePath(root), config.CachePath(root), config.DataPath(root)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			exitWithError(ExitError, "creating %s: %v", dir, err)
		}
	}

	runsFile, err := os.Create(config.RunsPath(root))
	if err != nil {
		exitWithError(ExitError, "creating %s: %v", config.RunsFile, err)
	}
	runsFile.Close()

	if err := config.Default().Save(root); err != nil {
		exitWithError(ExitError, "creating %s: %v", config.ConfigFile, err)
	}

	if humanOutput {
		fmt.Printf("Initialized tigerlily workspace in %s\n", root)
	} else {
		outputJSON(StatusResponse{
			Status: "initialized",
			Path:   root,
		})
	}
	return nil
}
