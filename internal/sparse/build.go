package sparse

import (
	"fmt"

	"github.com/tigerlily/tigerlily/internal/table"
)

// CodedScore is a score record augmented with the dense codes of its nodes.
type CodedScore struct {
	table.ScoreRecord
	Node1Num int `json:"node_1_num"`
	Node2Num int `json:"node_2_num"`
}

// Result is everything Build derives from a score table.
type Result struct {
	Scores []CodedScore // Input rows, in input order, with their codes
	Matrix *Matrix      // Shape (Source.Len(), Target.Len())
	Source *NodeIndex   // node_1 side
	Target *NodeIndex   // node_2 side
}

// Build indexes both sides of a score table independently and places every
// score at (code(node_1), code(node_2)).
func Build(scores []table.ScoreRecord) (*Result, error) {
	if err := table.ValidateScores(scores); err != nil {
		return nil, err
	}

	left := make([]string, len(scores))
	right := make([]string, len(scores))
	for i, s := range scores {
		left[i] = s.Node1
		right[i] = s.Node2
	}
	source := NewNodeIndex(left)
	target := NewNodeIndex(right)

	coded := make([]CodedScore, len(scores))
	entries := make([]Entry, len(scores))
	for i, s := range scores {
		c1, _ := source.Code(s.Node1)
		c2, _ := target.Code(s.Node2)
		coded[i] = CodedScore{ScoreRecord: s, Node1Num: c1, Node2Num: c2}
		entries[i] = Entry{Row: c1, Col: c2, Value: s.Score}
	}

	m, err := NewMatrix(source.Len(), target.Len(), entries)
	if err != nil {
		return nil, fmt.Errorf("building score matrix: %w", err)
	}

	return &Result{Scores: coded, Matrix: m, Source: source, Target: target}, nil
}
