package embedding

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Neighbor is a node ranked by cosine similarity to a query vector.
type Neighbor struct {
	NodeID     string  `json:"node_id"`
	Similarity float64 `json:"similarity"`
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the lengths differ or either vector is zero. NaN entries propagate.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	denom := floats.Norm(a, 2) * floats.Norm(b, 2)
	if denom == 0 {
		return 0
	}
	return floats.Dot(a, b) / denom
}

// Nearest ranks every node by similarity to query, highest first, keeping
// those at or above threshold. Nodes with a NaN similarity are dropped.
// A limit <= 0 keeps all.
func (t *Table) Nearest(query []float64, limit int, threshold float64) []Neighbor {
	if len(query) != t.Dimensions() {
		return nil
	}
	return t.rank(query, -1, limit, threshold)
}

// Similar ranks the other nodes by similarity to id.
func (t *Table) Similar(id string, limit int) ([]Neighbor, error) {
	i, ok := t.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}
	return t.rank(mat.Row(nil, i, t.Vectors), i, limit, math.Inf(-1)), nil
}

func (t *Table) rank(query []float64, skip, limit int, threshold float64) []Neighbor {
	out := make([]Neighbor, 0, t.Len())
	row := make([]float64, t.Dimensions())
	for i, id := range t.NodeIDs {
		if i == skip {
			continue
		}
		mat.Row(row, i, t.Vectors)
		sim := CosineSimilarity(query, row)
		if math.IsNaN(sim) || sim < threshold {
			continue
		}
		out = append(out, Neighbor{NodeID: id, Similarity: sim})
	}

	// Ties keep row order, which is ascending id order after a fit.
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Similarity > out[b].Similarity
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
