package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tigerlily/tigerlily/internal/config"
	"github.com/tigerlily/tigerlily/internal/storage"
)

var runsLimit int

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsRebuildCmd)

	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "Maximum runs to show (0 for all)")
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the fit run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fit runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

func runRunsList(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	runs, err := db.ListRuns(runsLimit)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		if len(runs) == 0 {
			fmt.Println("No fit runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("%s  %s  d=%d iter=%d/%d init=%s seed=%d loss=%.4g\n",
				r.CreatedAt.Format("2006-01-02 15:04:05"), shortID(r.ID),
				r.Dimensions, r.Iterations, r.MaxIter, r.Init, r.Seed, r.Loss)
		}
	} else {
		if runs == nil {
			runs = []storage.FitRun{}
		}
		outputJSON(runs)
	}
	return nil
}

// RunsRebuildResult is the response for runs rebuild.
type RunsRebuildResult struct {
	Status string `json:"status"`
	Runs   int    `json:"runs"`
}

var runsRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the run table from runs.jsonl",
	Long: `Rebuild the SQLite fit_runs table from .tigerlily/runs.jsonl.

Use this after pulling changes from git or if the database becomes corrupted.`,
	Args: cobra.NoArgs,
	RunE: runRunsRebuild,
}

func runRunsRebuild(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()

	db := mustOpenDatabase(root)
	defer db.Close()

	n, err := db.RebuildRunsFromJSONL(config.RunsPath(root))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding runs: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt %d fit runs\n", n)
	} else {
		outputJSON(RunsRebuildResult{Status: "rebuilt", Runs: n})
	}
	return nil
}

// shortID abbreviates a run ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
