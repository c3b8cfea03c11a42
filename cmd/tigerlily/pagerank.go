package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tigerlily/tigerlily/internal/config"
	"github.com/tigerlily/tigerlily/internal/dataset"
	"github.com/tigerlily/tigerlily/internal/table"
	"github.com/tigerlily/tigerlily/internal/tigergraph"
)

var (
	pagerankEdgesPath  string
	pagerankOutput     string
	pagerankEdgeType   string
	pagerankDamping    float64
	pagerankIterations int
	pagerankTopK       int
	pagerankNoProgress bool
)

func init() {
	rootCmd.AddCommand(pagerankCmd)
	pagerankCmd.AddCommand(pagerankUploadCmd)
	pagerankCmd.AddCommand(pagerankInstallCmd)
	pagerankCmd.AddCommand(pagerankComputeCmd)

	defaults := tigergraph.DefaultParams()
	flags := pagerankComputeCmd.Flags()
	flags.StringVar(&pagerankEdgesPath, "edges", "", "Edge table whose drugs are the sources (default: .tigerlily/data/edges.csv)")
	flags.StringVarP(&pagerankOutput, "output", "o", "", "Also write the scores to this CSV file")
	flags.StringVar(&pagerankEdgeType, "edge-type", defaults.EdgeType, "Edge type the walk follows")
	flags.Float64Var(&pagerankDamping, "damping", defaults.Damping, "Damping factor in (0, 1)")
	flags.IntVar(&pagerankIterations, "iterations", defaults.Iterations, "PageRank iterations")
	flags.IntVar(&pagerankTopK, "top-k", defaults.TopK, "Highest scoring vertices kept per source")
	flags.BoolVar(&pagerankNoProgress, "no-progress", false, "Suppress progress output")
}

var pagerankCmd = &cobra.Command{
	Use:   "pagerank",
	Short: "Compute personalized PageRank scores on TigerGraph",
	Long: `Commands for loading the drug-gene graph into TigerGraph and computing
personalized PageRank scores with the tg_pagerank_pers query.

Connection settings come from the tigergraph block of the global config,
overridden by environment variables:
  TIGERGRAPH_HOST      Instance URL
  TIGERGRAPH_GRAPH     Graph name
  TIGERGRAPH_USERNAME  GSQL user (default: tigergraph)
  TIGERGRAPH_SECRET    RESTPP secret, used to request a token
  TIGERGRAPH_PASSWORD  GSQL password`,
}

// mustTigerGraphClient builds a client from the merged settings, exits on error.
// RESTPP calls need connect set.
func mustTigerGraphClient(ctx context.Context, connect bool, opts ...tigergraph.ClientOption) *tigergraph.Client {
	tg, err := config.TigerGraphSettings()
	if err != nil {
		if errors.Is(err, config.ErrTigerGraphNotConfigured) {
			fmt.Fprintln(os.Stderr, config.TigerGraphHelpMessage())
			os.Exit(ExitConfigError)
		}
		exitWithError(ExitConfigError, "loading global config: %v", err)
	}

	base := []tigergraph.ClientOption{
		tigergraph.WithSecret(tg.Secret),
		tigergraph.WithPassword(tg.Password),
		tigergraph.WithLogger(logger),
	}
	if tg.Username != "" {
		base = append(base, tigergraph.WithUsername(tg.Username))
	}
	opts = append(base, opts...)
	client, err := tigergraph.NewClient(tg.Host, tg.Graph, opts...)
	if err != nil {
		exitWithError(ExitConfigError, "creating TigerGraph client: %v", err)
	}

	if connect {
		if err := client.Connect(ctx); err != nil {
			exitWithErr(err, "connecting to TigerGraph")
		}
	}
	return client
}

var pagerankUploadCmd = &cobra.Command{
	Use:   "upload <edges.csv>",
	Short: "Replace the graph with an edge table",
	Long: `Delete every drug and gene vertex, then upload the drug->gene,
gene->gene and gene->drug edges of the table as "interacts" edges.`,
	Args: cobra.ExactArgs(1),
	RunE: runPagerankUpload,
}

// PagerankUploadResult is the response for pagerank upload.
type PagerankUploadResult struct {
	Status string `json:"status"`
	Graph  string `json:"graph"`
	Edges  int    `json:"edges"`
	*tigergraph.UploadStats
}

func runPagerankUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	edges, err := table.ReadEdgesFile(args[0])
	if err != nil {
		exitWithErr(err, "reading %s", args[0])
	}

	client := mustTigerGraphClient(ctx, true)
	stats, err := client.UploadGraph(ctx, edges)
	if err != nil {
		exitWithErr(err, "uploading graph")
	}

	if humanOutput {
		fmt.Printf("Uploaded %d edges to graph %s\n", len(edges), client.Graph())
		for vertexType, n := range stats.DeletedVertices {
			fmt.Printf("  Deleted %d %s vertices\n", n, vertexType)
		}
		for relation, n := range stats.AcceptedEdges {
			fmt.Printf("  Accepted %d %s edges\n", n, relation)
		}
	} else {
		outputJSON(PagerankUploadResult{
			Status:      "uploaded",
			Graph:       client.Graph(),
			Edges:       len(edges),
			UploadStats: stats,
		})
	}
	return nil
}

var pagerankInstallCmd = &cobra.Command{
	Use:   "install [script-url]",
	Short: "Install the personalized PageRank query",
	Long: `Fetch a GSQL script, create or replace its query and install all queries.

The URL defaults to query_url from the workspace config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPagerankInstall,
}

func runPagerankInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var scriptURL string
	if len(args) == 1 {
		scriptURL = args[0]
	} else if root, err := config.FindWorkspace(mustStartingDirectory()); err == nil {
		scriptURL = mustLoadConfig(root).QueryURL
	}
	if scriptURL == "" {
		exitWithError(ExitConfigError, "no query script URL\n\nPass one or run 'tigerlily config query_url <url>'.")
	}

	client := mustTigerGraphClient(ctx, false)
	out, err := client.InstallQuery(ctx, scriptURL)
	if err != nil {
		exitWithErr(err, "installing query")
	}

	if humanOutput {
		fmt.Println(out)
	} else {
		outputJSON(map[string]string{
			"status": "installed",
			"url":    scriptURL,
			"output": out,
		})
	}
	return nil
}

// mustStartingDirectory is getStartingDirectory that exits on error.
func mustStartingDirectory() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return start
}

var pagerankComputeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute personalized PageRank scores for every drug",
	Long: `Run tg_pagerank_pers once for every distinct drug among the edge sources
and replace the cached scores with the results.

The query must be installed first ('tigerlily pagerank install').`,
	Args: cobra.NoArgs,
	RunE: runPagerankCompute,
}

// PagerankComputeResult is the response for pagerank compute.
type PagerankComputeResult struct {
	Status      string `json:"status"`
	Sources     int    `json:"sources"`
	Scores      int    `json:"scores"`
	Fingerprint string `json:"fingerprint"`
	Output      string `json:"output,omitempty"`
}

func runPagerankCompute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	root := mustFindWorkspace()

	edgesPath := pagerankEdgesPath
	if edgesPath == "" {
		edgesPath = filepath.Join(config.DataPath(root), dataset.EdgesFile)
	}
	edges, err := table.ReadEdgesFile(edgesPath)
	if err != nil {
		exitWithErr(err, "reading %s", edgesPath)
	}

	params := tigergraph.DefaultParams()
	params.EdgeType = pagerankEdgeType
	params.Damping = pagerankDamping
	params.Iterations = pagerankIterations
	params.TopK = pagerankTopK
	if err := params.Validate(); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	sources := tigergraph.SourcesFromEdges(edges, table.TypeDrug)
	if len(sources) == 0 {
		exitWithError(ExitDataError, "no %s sources in %s", table.TypeDrug, edgesPath)
	}

	var opts []tigergraph.ClientOption
	showProgress := humanOutput && !pagerankNoProgress
	if showProgress {
		fmt.Fprintf(os.Stderr, "Computing personalized PageRank for %d sources...\n", len(sources))
		opts = append(opts, tigergraph.WithProgressReporter(tigergraph.ProgressFunc(printProgress)))
	}
	client := mustTigerGraphClient(ctx, false, opts...)

	scores, err := client.GetPersonalizedPageRank(ctx, sources, params)
	if showProgress {
		clearProgress()
	}
	if err != nil {
		exitWithErr(err, "computing pagerank")
	}

	db := mustOpenDatabase(root)
	defer db.Close()
	if _, err := db.ReplaceScores(scores); err != nil {
		exitWithErr(err, "caching scores")
	}

	if pagerankOutput != "" {
		if err := writeScoresFile(pagerankOutput, scores); err != nil {
			exitWithError(ExitError, "writing %s: %v", pagerankOutput, err)
		}
	}

	result := PagerankComputeResult{
		Status:      "computed",
		Sources:     len(sources),
		Scores:      len(scores),
		Fingerprint: table.Fingerprint(scores),
		Output:      pagerankOutput,
	}
	if humanOutput {
		fmt.Printf("Computed %d scores for %d sources\n", result.Scores, result.Sources)
		if pagerankOutput != "" {
			fmt.Printf("  Written to %s\n", pagerankOutput)
		}
	} else {
		outputJSON(result)
	}
	return nil
}

func writeScoresFile(path string, scores []table.ScoreRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := table.WriteScores(f, scores); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
