package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tigerlily/tigerlily/internal/config"
	"github.com/tigerlily/tigerlily/internal/embedding"
	"github.com/tigerlily/tigerlily/internal/export"
	"github.com/tigerlily/tigerlily/internal/nmf"
	"github.com/tigerlily/tigerlily/internal/storage"
	"github.com/tigerlily/tigerlily/internal/table"
)

var (
	fitScoresPath string
	fitDimensions int
	fitMaxIter    int
	fitSeed       uint64
	fitInit       string
	fitTolerance  float64
	fitOutput     string
	fitNoProgress bool
)

func init() {
	rootCmd.AddCommand(fitCmd)

	fitCmd.Flags().StringVar(&fitScoresPath, "scores", "", "Import this score CSV before fitting (default: cached scores)")
	fitCmd.Flags().IntVarP(&fitDimensions, "dimensions", "d", 0, "Embedding width (default: config dimensions)")
	fitCmd.Flags().IntVar(&fitMaxIter, "max-iter", 0, "Maximum NMF sweeps (default: config max_iter)")
	fitCmd.Flags().Uint64Var(&fitSeed, "seed", 0, "Seed for randomized initialization (default: config seed)")
	fitCmd.Flags().StringVar(&fitInit, "init", "", "Initialization: nndsvd, nndsvda, nndsvdar, random (default: config init)")
	fitCmd.Flags().Float64Var(&fitTolerance, "tolerance", 0, "NMF stopping tolerance (default: config tolerance)")
	fitCmd.Flags().StringVarP(&fitOutput, "output", "o", "", "Also export the embedding (.csv, .jsonl or .parquet)")
	fitCmd.Flags().BoolVar(&fitNoProgress, "no-progress", false, "Suppress progress output")
}

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit node embeddings from the PageRank scores",
	Long: `Fit standardized node embeddings from the cached PageRank scores.

The score table is factorized with non-negative matrix factorization and every
embedding column is standardized to mean 0 and unit variance. The embedding is
saved to .tigerlily/cache/embedding.gob and the run is appended to
.tigerlily/runs.jsonl.

With --scores the given CSV replaces the cached scores first.

Flags override the workspace config for this run only.`,
	Args: cobra.NoArgs,
	RunE: runFit,
}

// FitResult is the response for the fit command.
type FitResult struct {
	Status string         `json:"status"`
	Run    storage.FitRun `json:"run"`
	Path   string         `json:"path"`
	Export string         `json:"export,omitempty"`
}

// fitParams merges explicitly set flags over cfg.
func fitParams(cmd *cobra.Command, cfg *config.Config) (*config.Config, error) {
	merged := *cfg
	flags := cmd.Flags()
	if flags.Changed("dimensions") {
		merged.Dimensions = fitDimensions
	}
	if flags.Changed("max-iter") {
		merged.MaxIter = fitMaxIter
	}
	if flags.Changed("seed") {
		merged.Seed = fitSeed
	}
	if flags.Changed("init") {
		merged.Init = fitInit
	}
	if flags.Changed("tolerance") {
		merged.Tolerance = fitTolerance
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func runFit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	params, err := fitParams(cmd, cfg)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	nmfInit, _ := nmf.ParseInit(params.Init)

	db := mustOpenDatabase(root)
	defer db.Close()

	if fitScoresPath != "" {
		scores, err := table.ReadScoresFile(fitScoresPath)
		if err != nil {
			exitWithErr(err, "reading %s", fitScoresPath)
		}
		if _, err := db.ReplaceScores(scores); err != nil {
			exitWithErr(err, "importing scores")
		}
	}

	scores, err := db.ListScores()
	if err != nil {
		exitWithError(ExitError, "loading scores: %v", err)
	}
	if len(scores) == 0 {
		exitWithError(ExitDataError, "no scores cached\n\nRun 'tigerlily scores import <file.csv>' or 'tigerlily dataset pull' first.")
	}

	opts := []embedding.Option{
		embedding.WithDimensions(params.Dimensions),
		embedding.WithMaxIter(params.MaxIter),
		embedding.WithSeed(params.Seed),
		embedding.WithInit(nmfInit),
		embedding.WithTolerance(params.Tolerance),
		embedding.WithLogger(logger),
	}
	showProgress := humanOutput && !fitNoProgress
	if showProgress {
		fmt.Fprintf(os.Stderr, "Fitting %d-dimensional embedding from %d scores...\n", params.Dimensions, len(scores))
		opts = append(opts, embedding.WithProgressReporter(nmf.ProgressFunc(func(iteration, maxIter int, _ float64) {
			printProgress(iteration, maxIter)
		})))
	}

	machine := embedding.NewMachine(opts...)
	emb, err := machine.Fit(ctx, scores)
	if showProgress {
		clearProgress()
	}
	if err != nil {
		exitWithErr(err, "fitting embedding")
	}

	path := config.EmbeddingPath(root)
	if err := emb.Save(path); err != nil {
		exitWithError(ExitError, "saving embedding: %v", err)
	}

	run := runFromMeta(emb)
	if err := db.RecordRun(&run); err != nil {
		exitWithError(ExitError, "recording run: %v", err)
	}
	if err := storage.AppendRun(config.RunsPath(root), run); err != nil {
		exitWithError(ExitError, "appending run log: %v", err)
	}

	if fitOutput != "" {
		if err := export.WriteEmbeddingFile(fitOutput, emb); err != nil {
			exitWithError(ExitError, "exporting embedding: %v", err)
		}
	}

	if humanOutput {
		fmt.Printf("Fitted %d nodes x %d dimensions\n", run.Nodes, run.Dimensions)
		fmt.Printf("  Iterations: %d (converged: %t)\n", run.Iterations, run.Converged)
		fmt.Printf("  Loss: %g\n", run.Loss)
		fmt.Printf("  Time elapsed: %s\n", formatDuration(time.Duration(run.DurationMs)*time.Millisecond))
		fmt.Printf("  Saved to %s\n", path)
		if fitOutput != "" {
			fmt.Printf("  Exported to %s\n", fitOutput)
		}
	} else {
		outputJSON(FitResult{
			Status: "fitted",
			Run:    run,
			Path:   path,
			Export: fitOutput,
		})
	}
	return nil
}

// runFromMeta describes a fitted table as a run record.
func runFromMeta(t *embedding.Table) storage.FitRun {
	m := t.Meta
	return storage.FitRun{
		ID:                storage.NewRunID(),
		CreatedAt:         m.CreatedAt,
		Dimensions:        m.Dimensions,
		MaxIter:           m.MaxIter,
		Seed:              m.Seed,
		Init:              m.Init,
		ScoresFingerprint: m.ScoresFingerprint,
		Nodes:             t.Len(),
		Iterations:        m.Iterations,
		Converged:         m.Converged,
		Loss:              m.Loss,
		DurationMs:        m.FitDurationMs,
	}
}
