package table

import (
	"fmt"
	"math"
	"strings"
)

// ScoreRecord is one personalized PageRank score from a source node to a
// target node.
type ScoreRecord struct {
	Node1 string  `json:"node_1"`
	Node2 string  `json:"node_2"`
	Score float64 `json:"score"`
}

// EdgeRecord is one typed edge of the drug/gene graph.
type EdgeRecord struct {
	Node1 string `json:"node_1"`
	Node2 string `json:"node_2"`
	Type1 string `json:"type_1"`
	Type2 string `json:"type_2"`
}

// TargetRecord is one drug pair whose features are requested.
type TargetRecord struct {
	Drug1 string `json:"drug_1"`
	Drug2 string `json:"drug_2"`
}

// Vertex types used by the drug/gene graph.
const (
	TypeDrug = "drug"
	TypeGene = "gene"
)

// ValidateScores checks that every record has both identifiers and a finite score.
func ValidateScores(scores []ScoreRecord) error {
	for i, s := range scores {
		if strings.TrimSpace(s.Node1) == "" {
			return &SchemaError{Table: ScoresSchema.Name, Reason: fmt.Sprintf("record %d: empty %s", i, ColNode1)}
		}
		if strings.TrimSpace(s.Node2) == "" {
			return &SchemaError{Table: ScoresSchema.Name, Reason: fmt.Sprintf("record %d: empty %s", i, ColNode2)}
		}
		if math.IsNaN(s.Score) || math.IsInf(s.Score, 0) {
			return &SchemaError{Table: ScoresSchema.Name, Reason: fmt.Sprintf("record %d: non-finite %s %v", i, ColScore, s.Score)}
		}
	}
	return nil
}

// ValidateEdges checks that every edge has identifiers and vertex types.
func ValidateEdges(edges []EdgeRecord) error {
	for i, e := range edges {
		if e.Node1 == "" || e.Node2 == "" {
			return &SchemaError{Table: EdgesSchema.Name, Reason: fmt.Sprintf("record %d: empty node identifier", i)}
		}
		if e.Type1 == "" || e.Type2 == "" {
			return &SchemaError{Table: EdgesSchema.Name, Reason: fmt.Sprintf("record %d: empty vertex type", i)}
		}
	}
	return nil
}

// FilterEdges returns the edges running from sourceType to targetType.
func FilterEdges(edges []EdgeRecord, sourceType, targetType string) []EdgeRecord {
	var out []EdgeRecord
	for _, e := range edges {
		if e.Type1 == sourceType && e.Type2 == targetType {
			out = append(out, e)
		}
	}
	return out
}

// DistinctSources returns the distinct node_1 identifiers of the given type,
// in first-seen order.
func DistinctSources(edges []EdgeRecord, vertexType string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range edges {
		if e.Type1 != vertexType || seen[e.Node1] {
			continue
		}
		seen[e.Node1] = true
		ids = append(ids, e.Node1)
	}
	return ids
}
