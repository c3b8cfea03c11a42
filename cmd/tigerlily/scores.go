package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tigerlily/tigerlily/internal/storage"
	"github.com/tigerlily/tigerlily/internal/table"
)

func init() {
	rootCmd.AddCommand(scoresCmd)
	scoresCmd.AddCommand(scoresImportCmd)
	scoresCmd.AddCommand(scoresInfoCmd)
	scoresCmd.AddCommand(scoresSourceCmd)
}

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Manage the cached PageRank score table",
}

// ScoresImportResult is the response for scores import.
type ScoresImportResult struct {
	Status      string `json:"status"`
	Path        string `json:"path"`
	Imported    int    `json:"imported"`
	Fingerprint string `json:"fingerprint"`
}

var scoresImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Replace the cached scores with a CSV table",
	Long: `Replace the cached scores with a CSV table.

The file needs a header with node_1, node_2 and score columns. Extra columns
are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runScoresImport,
}

func runScoresImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	root := mustFindWorkspace()

	scores, err := table.ReadScoresFile(path)
	if err != nil {
		exitWithErr(err, "reading %s", path)
	}

	db := mustOpenDatabase(root)
	defer db.Close()

	n, err := db.ReplaceScores(scores)
	if err != nil {
		exitWithErr(err, "importing scores")
	}

	result := ScoresImportResult{
		Status:      "imported",
		Path:        path,
		Imported:    n,
		Fingerprint: table.Fingerprint(scores),
	}
	if humanOutput {
		fmt.Printf("Imported %d scores from %s\n", n, path)
	} else {
		outputJSON(result)
	}
	return nil
}

// ScoresInfoResult is the response for scores info.
type ScoresInfoResult struct {
	storage.ScoreStats
	Fingerprint string `json:"fingerprint,omitempty"`
}

var scoresInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarize the cached scores",
	Args:  cobra.NoArgs,
	RunE:  runScoresInfo,
}

func runScoresInfo(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	stats, err := db.ScoreStats()
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	result := ScoresInfoResult{ScoreStats: *stats}
	if stats.Rows > 0 {
		scores, err := db.ListScores()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		result.Fingerprint = table.Fingerprint(scores)
	}

	if humanOutput {
		if stats.Rows == 0 {
			fmt.Println("No scores cached. Run 'tigerlily scores import' or 'tigerlily dataset pull'.")
			return nil
		}
		fmt.Printf("Rows:        %d\n", stats.Rows)
		fmt.Printf("Sources:     %d\n", stats.Sources)
		fmt.Printf("Targets:     %d\n", stats.Targets)
		fmt.Printf("Score range: [%g, %g]\n", stats.MinScore, stats.MaxScore)
		fmt.Printf("Fingerprint: %s\n", result.Fingerprint)
	} else {
		outputJSON(result)
	}
	return nil
}

var scoresSourceCmd = &cobra.Command{
	Use:   "source <node>",
	Short: "List the cached scores of one source node",
	Args:  cobra.ExactArgs(1),
	RunE:  runScoresSource,
}

func runScoresSource(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	scores, err := db.ScoresForSource(args[0])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		if len(scores) == 0 {
			fmt.Printf("No scores for %s\n", args[0])
			return nil
		}
		for _, s := range scores {
			outputHuman("%s\t%g\n", s.Node2, s.Score)
		}
	} else {
		if scores == nil {
			scores = []table.ScoreRecord{}
		}
		outputJSON(scores)
	}
	return nil
}
