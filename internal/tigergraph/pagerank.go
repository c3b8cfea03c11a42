package tigergraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tigerlily/tigerlily/internal/table"
)

// PageRankQuery is the installed query run for each source vertex.
const PageRankQuery = "tg_pagerank_pers"

// Vertex identifies a graph vertex.
type Vertex struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Params configures a personalized PageRank run.
type Params struct {
	EdgeType   string
	PrintAccum bool
	Damping    float64
	Iterations int
	TopK       int
}

// DefaultParams returns the parameters used for the drug-gene graph.
func DefaultParams() Params {
	return Params{
		EdgeType:   DefaultEdgeType,
		PrintAccum: true,
		Damping:    0.5,
		Iterations: 100,
		TopK:       100,
	}
}

// Validate checks that p describes a runnable query.
func (p Params) Validate() error {
	switch {
	case p.EdgeType == "":
		return fmt.Errorf("edge type is required")
	case p.Damping <= 0 || p.Damping >= 1:
		return fmt.Errorf("damping must be in (0, 1), got %v", p.Damping)
	case p.Iterations < 1:
		return fmt.Errorf("iterations must be positive, got %d", p.Iterations)
	case p.TopK < 1:
		return fmt.Errorf("top_k must be positive, got %d", p.TopK)
	}
	return nil
}

func (p Params) cacheKey(source Vertex) string {
	return strings.Join([]string{
		source.Type, source.ID, p.EdgeType,
		strconv.FormatBool(p.PrintAccum),
		strconv.FormatFloat(p.Damping, 'g', -1, 64),
		strconv.Itoa(p.Iterations), strconv.Itoa(p.TopK),
	}, "\x00")
}

// ProgressReporter receives progress updates while scores are computed.
type ProgressReporter interface {
	// OnProgress is called with the current progress.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// pageRankResponse is the JSON printed by the pagerank query.
type pageRankResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Results []struct {
		TopScores []struct {
			VertexID string  `json:"vertex_id"`
			Score    float64 `json:"score"`
		} `json:"top_scores"`
	} `json:"results"`
}

// PersonalizedPageRank runs the pagerank query seeded at source and returns
// one score record per top-scoring vertex, with node_1 set to source.
func (c *Client) PersonalizedPageRank(ctx context.Context, source Vertex, p Params) ([]table.ScoreRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	args := map[string]any{
		"source":      []Vertex{source},
		"e_type":      p.EdgeType,
		"print_accum": p.PrintAccum,
		"damping":     p.Damping,
		"iter":        p.Iterations,
		"top_k":       p.TopK,
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshaling query parameters: %w", err)
	}

	out, err := c.GSQL(ctx, "RUN QUERY "+PageRankQuery+"("+string(encoded)+")")
	if err != nil {
		return nil, fmt.Errorf("running pagerank for %s: %w", source.ID, err)
	}

	var resp pageRankResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return nil, fmt.Errorf("%w: pagerank output for %s: %v", ErrInvalidResponse, source.ID, err)
	}
	if resp.Error {
		return nil, &APIError{StatusCode: 200, Code: "query_error", Message: resp.Message, Source: source.ID}
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: pagerank output for %s has no results", ErrInvalidResponse, source.ID)
	}

	top := resp.Results[0].TopScores
	scores := make([]table.ScoreRecord, len(top))
	for i, s := range top {
		scores[i] = table.ScoreRecord{Node1: source.ID, Node2: s.VertexID, Score: s.Score}
	}
	return scores, nil
}

// GetPersonalizedPageRank runs PersonalizedPageRank for every source and
// concatenates the results in source order. Responses are cached per
// source and parameter set.
func (c *Client) GetPersonalizedPageRank(ctx context.Context, sources []Vertex, p Params) ([]table.ScoreRecord, error) {
	var all []table.ScoreRecord
	for i, src := range sources {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		key := p.cacheKey(src)
		scores, ok := c.cachedScores(key)
		if !ok {
			var err error
			scores, err = c.PersonalizedPageRank(ctx, src, p)
			if err != nil {
				return nil, err
			}
			if c.cache != nil {
				c.cache.Add(key, scores)
			}
		}
		all = append(all, scores...)

		if c.progress != nil {
			c.progress.OnProgress(i+1, len(sources))
		}
	}
	c.logger.Info("computed personalized pagerank", "sources", len(sources), "scores", len(all))
	return all, nil
}

func (c *Client) cachedScores(key string) ([]table.ScoreRecord, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

// SourcesFromEdges returns one vertex of vertexType per distinct node_1 in
// edges, in first-seen order.
func SourcesFromEdges(edges []table.EdgeRecord, vertexType string) []Vertex {
	ids := table.DistinctSources(edges, vertexType)
	out := make([]Vertex, len(ids))
	for i, id := range ids {
		out[i] = Vertex{Type: vertexType, ID: id}
	}
	return out
}
