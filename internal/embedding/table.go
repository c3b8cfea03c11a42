// Package embedding fits node embeddings from personalized PageRank scores
// and turns them into edge features.
package embedding

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Errors returned by embedding tables.
var (
	ErrTableShape  = errors.New("embedding table shape mismatch")
	ErrDuplicateID = errors.New("duplicate node id in embedding table")
	ErrUnknownNode = errors.New("node not in embedding table")
	ErrEmptyTable  = errors.New("embedding table has no rows")
)

// NodeIDColumn is the name of the key column in exported tables.
const NodeIDColumn = "node_id"

// Metadata describes how a table was produced.
type Metadata struct {
	Dimensions        int       `json:"dimensions"`
	MaxIter           int       `json:"max_iter"`
	Seed              uint64    `json:"seed"`
	Init              string    `json:"init"`
	Iterations        int       `json:"iterations"`
	Converged         bool      `json:"converged"`
	Loss              float64   `json:"loss"`
	ScoresFingerprint string    `json:"scores_fingerprint,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	FitDurationMs     int64     `json:"fit_duration_ms"`
}

// Table holds one standardized embedding row per source node. Rows follow
// the node code order, which is ascending identifier order after a fit.
// A Table is not modified after construction.
type Table struct {
	NodeIDs []string
	Vectors *mat.Dense
	Meta    Metadata

	index map[string]int
}

// NewTable pairs node ids with the rows of vectors.
func NewTable(nodeIDs []string, vectors *mat.Dense) (*Table, error) {
	if len(nodeIDs) == 0 || vectors == nil {
		return nil, ErrEmptyTable
	}
	r, c := vectors.Dims()
	if r != len(nodeIDs) {
		return nil, fmt.Errorf("%w: %d ids for %d rows", ErrTableShape, len(nodeIDs), r)
	}

	index := make(map[string]int, len(nodeIDs))
	for i, id := range nodeIDs {
		if _, ok := index[id]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
		}
		index[id] = i
	}

	return &Table{
		NodeIDs: nodeIDs,
		Vectors: vectors,
		Meta:    Metadata{Dimensions: c},
		index:   index,
	}, nil
}

// Len returns the number of nodes.
func (t *Table) Len() int {
	return len(t.NodeIDs)
}

// Dimensions returns the embedding width.
func (t *Table) Dimensions() int {
	_, c := t.Vectors.Dims()
	return c
}

// Row returns the row of id.
func (t *Table) Row(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// Vector returns a copy of the embedding of id.
func (t *Table) Vector(id string) ([]float64, error) {
	i, ok := t.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}
	return mat.Row(nil, i, t.Vectors), nil
}

// Columns returns the header of the table: node_id, emb_0, ..., emb_{d-1}.
func (t *Table) Columns() []string {
	return append([]string{NodeIDColumn}, ColumnNames("emb_", t.Dimensions())...)
}

// ColumnNames returns prefix0 ... prefix{n-1}.
func ColumnNames(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + strconv.Itoa(i)
	}
	return out
}
