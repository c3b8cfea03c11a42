package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tigerlily/tigerlily/internal/embedding"
)

var similarLimit int

func init() {
	rootCmd.AddCommand(similarCmd)
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "n", 10, "Maximum neighbors to show (0 for all)")
}

var similarCmd = &cobra.Command{
	Use:   "similar <node>",
	Short: "Find the nodes closest to a node in embedding space",
	Long: `Rank the other nodes of the saved embedding by cosine similarity to
the given node. Nodes whose embedding contains NaN are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

// SimilarResult is the response for the similar command.
type SimilarResult struct {
	NodeID    string               `json:"node_id"`
	Neighbors []embedding.Neighbor `json:"neighbors"`
}

func runSimilar(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	emb := mustLoadEmbedding(root)

	neighbors, err := emb.Similar(args[0], similarLimit)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	if humanOutput {
		for i, n := range neighbors {
			fmt.Printf("%d. [%.3f] %s\n", i+1, n.Similarity, n.NodeID)
		}
	} else {
		outputJSON(SimilarResult{NodeID: args[0], Neighbors: neighbors})
	}
	return nil
}
