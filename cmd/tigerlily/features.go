package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tigerlily/tigerlily/internal/embedding"
	"github.com/tigerlily/tigerlily/internal/export"
	"github.com/tigerlily/tigerlily/internal/operator"
	"github.com/tigerlily/tigerlily/internal/table"
)

var (
	featuresOperator string
	featuresOutput   string
)

func init() {
	rootCmd.AddCommand(featuresCmd)

	featuresCmd.Flags().StringVar(&featuresOperator, "operator", "", "Combination: hadamard, difference, l1_norm, l2_norm, concatenation (default: config operator)")
	featuresCmd.Flags().StringVarP(&featuresOutput, "output", "o", "", "Output file (.csv, .jsonl or .parquet); CSV on stdout when omitted")
}

var featuresCmd = &cobra.Command{
	Use:   "features <target.csv>",
	Short: "Build edge features for node pairs",
	Long: `Build one feature row per pair in a target table.

The target CSV needs drug_1 and drug_2 columns; other columns (labels) are
ignored. Each row combines the embeddings of the two nodes with the chosen
operator. Rows keep the target order. Nodes missing from the embedding give
NaN features.

Operators:
  hadamard       element-wise product (width d)
  difference     element-wise difference (width d)
  l1_norm        absolute difference (width d)
  l2_norm        squared difference (width d)
  concatenation  both embeddings side by side (width 2d)`,
	Args: cobra.ExactArgs(1),
	RunE: runFeatures,
}

// FeaturesResult is the response for the features command.
type FeaturesResult struct {
	Status   string `json:"status"`
	Operator string `json:"operator"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
	Unknown  int    `json:"unknown_pairs"` // Pairs with at least one node missing from the embedding
	Output   string `json:"output"`
}

func runFeatures(cmd *cobra.Command, args []string) error {
	targetPath := args[0]
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	name := featuresOperator
	if name == "" {
		name = cfg.Operator
	}
	op, err := operator.ParseOperator(name)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	target, err := table.ReadTargetFile(targetPath)
	if err != nil {
		exitWithErr(err, "reading %s", targetPath)
	}

	machine := embedding.NewMachine(embedding.WithLogger(logger))
	emb := mustLoadEmbedding(root)
	machine.SetEmbedding(emb)

	features, err := machine.CreateFeatures(target, op)
	if err != nil {
		exitWithErr(err, "building features")
	}
	rows, cols := features.Dims()

	// Without --output the features are the command output.
	if featuresOutput == "" {
		if err := export.WriteFeaturesCSV(os.Stdout, features); err != nil {
			exitWithError(ExitError, "writing features: %v", err)
		}
		return nil
	}

	if err := export.WriteFeaturesFile(featuresOutput, features); err != nil {
		exitWithError(ExitError, "writing features: %v", err)
	}

	result := FeaturesResult{
		Status:   "written",
		Operator: op.String(),
		Rows:     rows,
		Columns:  cols,
		Unknown:  countUnknownPairs(emb, target),
		Output:   featuresOutput,
	}
	if humanOutput {
		fmt.Printf("Wrote %d x %d %s features to %s\n", rows, cols, op, featuresOutput)
		if result.Unknown > 0 {
			fmt.Printf("  %d pairs reference nodes without an embedding (NaN rows)\n", result.Unknown)
		}
	} else {
		outputJSON(result)
	}
	return nil
}

// countUnknownPairs counts target pairs with a node missing from emb.
func countUnknownPairs(emb *embedding.Table, target []table.TargetRecord) int {
	n := 0
	for _, pair := range target {
		_, ok1 := emb.Row(pair.Drug1)
		_, ok2 := emb.Row(pair.Drug2)
		if !ok1 || !ok2 {
			n++
		}
	}
	return n
}
