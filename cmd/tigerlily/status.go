package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tigerlily/tigerlily/internal/config"
	"github.com/tigerlily/tigerlily/internal/embedding"
	"github.com/tigerlily/tigerlily/internal/storage"
	"github.com/tigerlily/tigerlily/internal/table"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the embedding matches the cached scores and config",
	Long: `Check whether the saved embedding is current.

The embedding is stale when it is missing, when the cached scores changed
since the last fit, or when dimensions, max_iter, seed or init changed in
the workspace config. Exits with code 4 when stale.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// StatusResult is the response for the status command.
type StatusResult struct {
	Status      string          `json:"status"` // "current" or "stale"
	Reason      string          `json:"reason,omitempty"`
	Scores      int             `json:"scores"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Embedding   *EmbeddingInfo  `json:"embedding,omitempty"`
	LatestRun   *storage.FitRun `json:"latest_run,omitempty"`
}

// EmbeddingInfo describes the saved embedding.
type EmbeddingInfo struct {
	Path       string             `json:"path"`
	Nodes      int                `json:"nodes"`
	Dimensions int                `json:"dimensions"`
	Meta       embedding.Metadata `json:"meta"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)
	db := mustOpenDatabase(root)
	defer db.Close()

	scores, err := db.ListScores()
	if err != nil {
		exitWithError(ExitError, "loading scores: %v", err)
	}
	fingerprint := table.Fingerprint(scores)

	st, err := db.IsStale(fingerprint, storage.RunParams{
		Dimensions: cfg.Dimensions,
		MaxIter:    cfg.MaxIter,
		Seed:       cfg.Seed,
		Init:       cfg.Init,
	})
	if err != nil {
		exitWithError(ExitError, "checking staleness: %v", err)
	}

	result := StatusResult{
		Status:      "current",
		Reason:      st.Reason,
		Scores:      len(scores),
		Fingerprint: fingerprint,
		LatestRun:   st.Latest,
	}

	path := config.EmbeddingPath(root)
	switch emb, err := embedding.Load(path); {
	case err == nil:
		result.Embedding = &EmbeddingInfo{
			Path:       path,
			Nodes:      emb.Len(),
			Dimensions: emb.Dimensions(),
			Meta:       emb.Meta,
		}
		if !st.Stale && emb.Meta.ScoresFingerprint != fingerprint {
			st.Stale, result.Reason = true, "saved embedding does not match the latest run"
		}
	case err == embedding.ErrEmbeddingNotFound:
		st.Stale, result.Reason = true, "no embedding saved"
	default:
		exitWithError(ExitDataError, "loading embedding: %v", err)
	}
	if len(scores) == 0 {
		st.Stale, result.Reason = true, "no scores cached"
	}
	if st.Stale {
		result.Status = "stale"
	}

	if humanOutput {
		fmt.Printf("Embedding: %s\n", result.Status)
		if result.Reason != "" {
			fmt.Printf("  Reason: %s\n", result.Reason)
		}
		fmt.Printf("  Cached scores: %d\n", result.Scores)
		if e := result.Embedding; e != nil {
			fmt.Printf("  Nodes: %d x %d dimensions\n", e.Nodes, e.Dimensions)
			fmt.Printf("  Fitted: %s\n", e.Meta.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		if st.Stale {
			fmt.Printf("\nRun 'tigerlily fit' to refresh the embedding.\n")
		}
	} else {
		outputJSON(result)
	}

	if st.Stale {
		os.Exit(ExitNotFitted)
	}
	return nil
}
