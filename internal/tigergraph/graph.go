package tigergraph

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tigerlily/tigerlily/internal/table"
)

// UploadStats summarizes UploadGraph.
type UploadStats struct {
	DeletedVertices map[string]int `json:"deleted_vertices"`
	AcceptedEdges   map[string]int `json:"accepted_edges"` // Keyed by "source->target"
}

// DeleteVertices removes every vertex of vertexType and returns how many
// were deleted.
func (c *Client) DeleteVertices(ctx context.Context, vertexType string) (int, error) {
	path := "/graph/" + url.PathEscape(c.graph) + "/vertices/" + url.PathEscape(vertexType)
	env, err := c.restpp(ctx, http.MethodDelete, path, nil, true)
	if err != nil {
		return 0, fmt.Errorf("deleting %s vertices: %w", vertexType, err)
	}

	var results struct {
		Deleted int `json:"deleted_vertices"`
	}
	if err := decodeResults(env, &results); err != nil {
		return 0, err
	}
	c.logger.Info("deleted vertices", "type", vertexType, "count", results.Deleted)
	return results.Deleted, nil
}

// PurgeGraph deletes all drug and gene vertices.
func (c *Client) PurgeGraph(ctx context.Context) (map[string]int, error) {
	deleted := make(map[string]int, 2)
	for _, vt := range []string{table.TypeDrug, table.TypeGene} {
		n, err := c.DeleteVertices(ctx, vt)
		if err != nil {
			return nil, err
		}
		deleted[vt] = n
	}
	return deleted, nil
}

// UpsertEdges inserts or updates edges of edgeType running from sourceType
// vertices (node_1) to targetType vertices (node_2). Missing vertices are
// created by the server. It returns the number of accepted edges.
func (c *Client) UpsertEdges(ctx context.Context, sourceType, edgeType, targetType string, edges []table.EdgeRecord) (int, error) {
	accepted := 0
	for start := 0; start < len(edges); start += c.batchSize {
		end := min(start+c.batchSize, len(edges))
		n, err := c.upsertBatch(ctx, sourceType, edgeType, targetType, edges[start:end])
		if err != nil {
			return accepted, err
		}
		accepted += n
	}
	return accepted, nil
}

func (c *Client) upsertBatch(ctx context.Context, sourceType, edgeType, targetType string, edges []table.EdgeRecord) (int, error) {
	// {"edges": {src_type: {src_id: {edge_type: {tgt_type: {tgt_id: {}}}}}}}
	bySource := make(map[string]map[string]map[string]map[string]struct{})
	for _, e := range edges {
		targets, ok := bySource[e.Node1]
		if !ok {
			targets = map[string]map[string]map[string]struct{}{
				edgeType: {targetType: {}},
			}
			bySource[e.Node1] = targets
		}
		targets[edgeType][targetType][e.Node2] = struct{}{}
	}
	payload := map[string]any{
		"edges": map[string]any{sourceType: bySource},
	}

	env, err := c.restpp(ctx, http.MethodPost, "/graph/"+url.PathEscape(c.graph), payload, true)
	if err != nil {
		return 0, fmt.Errorf("upserting %s-%s->%s edges: %w", sourceType, edgeType, targetType, err)
	}

	var results []struct {
		AcceptedVertices int `json:"accepted_vertices"`
		AcceptedEdges    int `json:"accepted_edges"`
	}
	if err := decodeResults(env, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("%w: empty upsert results", ErrInvalidResponse)
	}
	return results[0].AcceptedEdges, nil
}

// UploadRelationship upserts the edges whose endpoint types are source and
// target.
func (c *Client) UploadRelationship(ctx context.Context, edges []table.EdgeRecord, source, target, edgeType string) (int, error) {
	sub := table.FilterEdges(edges, source, target)
	if len(sub) == 0 {
		return 0, nil
	}
	n, err := c.UpsertEdges(ctx, source, edgeType, target, sub)
	if err != nil {
		return n, err
	}
	c.logger.Info("uploaded relationship", "source", source, "target", target, "edges", len(sub), "accepted", n)
	return n, nil
}

// UploadGraph replaces the graph contents with edges: it purges every drug
// and gene vertex, then uploads the drug→gene, gene→gene and gene→drug
// relationships.
func (c *Client) UploadGraph(ctx context.Context, edges []table.EdgeRecord) (*UploadStats, error) {
	if err := table.ValidateEdges(edges); err != nil {
		return nil, err
	}

	deleted, err := c.PurgeGraph(ctx)
	if err != nil {
		return nil, err
	}
	stats := &UploadStats{DeletedVertices: deleted, AcceptedEdges: make(map[string]int, 3)}

	relationships := [][2]string{
		{table.TypeDrug, table.TypeGene},
		{table.TypeGene, table.TypeGene},
		{table.TypeGene, table.TypeDrug},
	}
	for _, rel := range relationships {
		n, err := c.UploadRelationship(ctx, edges, rel[0], rel[1], DefaultEdgeType)
		if err != nil {
			return nil, err
		}
		stats.AcceptedEdges[rel[0]+"->"+rel[1]] = n
	}
	return stats, nil
}

// InstallQuery downloads a GSQL query script, makes it idempotent and
// installs every query on the server.
func (c *Client) InstallQuery(ctx context.Context, scriptURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scriptURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetching query script: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching query script: status %d", resp.StatusCode)
	}
	script, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading query script: %v", ErrNetwork, err)
	}

	return c.InstallQueryScript(ctx, string(script))
}

// InstallQueryScript creates (or replaces) the queries in script and
// installs them.
func (c *Client) InstallQueryScript(ctx context.Context, script string) (string, error) {
	script = strings.ReplaceAll(script, "CREATE QUERY", "CREATE OR REPLACE QUERY")

	created, err := c.GSQL(ctx, script)
	if err != nil {
		return "", fmt.Errorf("creating query: %w", err)
	}
	installed, err := c.GSQL(ctx, "INSTALL QUERY ALL")
	if err != nil {
		return "", fmt.Errorf("installing queries: %w", err)
	}
	c.logger.Info("installed queries", "graph", c.graph)
	return created + installed, nil
}
