// Package main provides the tigerlily CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tigerlily/tigerlily/internal/config"
	"github.com/tigerlily/tigerlily/internal/embedding"
	"github.com/tigerlily/tigerlily/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// verbose enables structured logs on stderr
var verbose bool

// logger is shared by commands that talk to the library packages.
var logger = slog.New(slog.DiscardHandler)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// SilenceErrors is set, so flag errors would otherwise be invisible.
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tigerlily",
	Short: "Node embeddings and edge features from personalized PageRank",
	Long: `tigerlily turns personalized PageRank scores into node embeddings and
pairwise edge features for link prediction.

Workflow:
  - Fetch or compute a PageRank score table (dataset pull, pagerank compute)
  - Factorize it into standardized node embeddings (fit)
  - Combine embeddings of node pairs into feature rows (features)

Scores and fit runs are cached in SQLite under .tigerlily/cache.
All commands output JSON by default for scripting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	},
}

func init() {
	// Load .env file if present (for TIGERGRAPH_SECRET and friends)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug logs to stderr")
	rootCmd.Version = Version
}

// getStartingDirectory returns the directory to start searching for a workspace.
// Checks global config workspace_path first, then current working directory.
func getStartingDirectory() (string, int) {
	if root := config.GetWorkspacePath(); root != "" {
		return root, 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindWorkspace finds the workspace root, exits on error.
func mustFindWorkspace() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	root, err := config.FindWorkspace(start)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return root
}

// mustOpenDatabase opens the SQLite cache, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(root string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustLoadConfig loads workspace configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustLoadEmbedding loads the fitted embedding, exits on error.
func mustLoadEmbedding(root string) *embedding.Table {
	t, err := embedding.Load(config.EmbeddingPath(root))
	if err != nil {
		if err == embedding.ErrEmbeddingNotFound {
			exitWithError(ExitNotFitted, "embedding not found\n\nRun 'tigerlily fit' to create it.")
		}
		exitWithError(ExitDataError, "loading embedding: %v", err)
	}
	return t
}
