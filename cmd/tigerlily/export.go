package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tigerlily/tigerlily/internal/export"
)

func init() {
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the saved embedding",
	Long: `Export the saved embedding with one row per node.

The format follows the extension:
  .csv              node_id,emb_0,...,emb_{d-1}
  .jsonl / .ndjson  {"node_id": ..., "embedding": [...]} per line
  .parquet          node_id (UTF8), embedding (LIST<DOUBLE>)`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := export.FormatFromPath(path); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	root := mustFindWorkspace()
	emb := mustLoadEmbedding(root)

	if err := export.WriteEmbeddingFile(path, emb); err != nil {
		exitWithError(ExitError, "exporting embedding: %v", err)
	}

	if humanOutput {
		fmt.Printf("Exported %d nodes x %d dimensions to %s\n", emb.Len(), emb.Dimensions(), path)
	} else {
		outputJSON(StatusResponse{Status: "exported", Path: path})
	}
	return nil
}
