package table

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadScores(t *testing.T) {
	input := "node_1,node_2,score\nDB001,G1,0.5\nDB001,G2,0.25\nDB002,G1,1e-3\n"

	scores, err := ReadScores(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadScores() error = %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("len(scores) = %d, want 3", len(scores))
	}
	want := ScoreRecord{Node1: "DB002", Node2: "G1", Score: 0.001}
	if scores[2] != want {
		t.Errorf("scores[2] = %+v, want %+v", scores[2], want)
	}
}

func TestReadScores_ColumnOrderAndExtras(t *testing.T) {
	input := "score,rank,node_2,node_1\n0.7,1,G9,DB010\n"

	scores, err := ReadScores(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadScores() error = %v", err)
	}
	want := ScoreRecord{Node1: "DB010", Node2: "G9", Score: 0.7}
	if len(scores) != 1 || scores[0] != want {
		t.Errorf("ReadScores() = %+v, want [%+v]", scores, want)
	}
}

func TestReadScores_SchemaErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantMissing []string
	}{
		{
			name:        "missing score",
			input:       "node_1,node_2\nA,B\n",
			wantMissing: []string{"score"},
		},
		{
			name:        "missing both nodes",
			input:       "score\n0.1\n",
			wantMissing: []string{"node_1", "node_2"},
		},
		{
			name:        "empty input",
			input:       "",
			wantMissing: []string{"node_1", "node_2", "score"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadScores(strings.NewReader(tt.input))
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("ReadScores() error = %v, want ErrSchema", err)
			}
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("error is not a *SchemaError: %T", err)
			}
			if strings.Join(se.Missing, ",") != strings.Join(tt.wantMissing, ",") {
				t.Errorf("Missing = %v, want %v", se.Missing, tt.wantMissing)
			}
		})
	}
}

func TestReadScores_NonNumericScore(t *testing.T) {
	_, err := ReadScores(strings.NewReader("node_1,node_2,score\nA,B,high\n"))
	if !IsSchemaError(err) {
		t.Fatalf("ReadScores() error = %v, want schema error", err)
	}
	var se *SchemaError
	errors.As(err, &se)
	if se.Line != 2 {
		t.Errorf("Line = %d, want 2", se.Line)
	}
}

func TestReadTarget_IgnoresLabels(t *testing.T) {
	input := "drug_1,drug_2,label,fold\nDB001,DB002,1,0\nDB003,DB001,0,1\n"

	target, err := ReadTarget(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTarget() error = %v", err)
	}
	if len(target) != 2 {
		t.Fatalf("len(target) = %d, want 2", len(target))
	}
	if target[1] != (TargetRecord{Drug1: "DB003", Drug2: "DB001"}) {
		t.Errorf("target[1] = %+v", target[1])
	}
}

func TestReadEdges(t *testing.T) {
	input := "node_1,node_2,type_1,type_2\nDB001,G1,drug,gene\nG1,G2,gene,gene\nG2,DB001,gene,drug\n"

	edges, err := ReadEdges(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadEdges() error = %v", err)
	}
	if len(edges) != 3 {
		t.Fatalf("len(edges) = %d, want 3", len(edges))
	}
	if got := FilterEdges(edges, TypeGene, TypeGene); len(got) != 1 || got[0].Node1 != "G1" {
		t.Errorf("FilterEdges(gene, gene) = %+v", got)
	}
	if got := DistinctSources(edges, TypeDrug); len(got) != 1 || got[0] != "DB001" {
		t.Errorf("DistinctSources(drug) = %v", got)
	}
}

func TestReadEdges_MissingTypes(t *testing.T) {
	_, err := ReadEdges(strings.NewReader("node_1,node_2\nA,B\n"))
	if !IsSchemaError(err) {
		t.Fatalf("ReadEdges() error = %v, want schema error", err)
	}
}

func TestWriteScores_RoundTrip(t *testing.T) {
	scores := []ScoreRecord{
		{Node1: "A", Node2: "B", Score: 0.125},
		{Node1: "A", Node2: "C", Score: 3},
	}

	var buf bytes.Buffer
	if err := WriteScores(&buf, scores); err != nil {
		t.Fatalf("WriteScores() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "node_1,node_2,score\n") {
		t.Errorf("missing header, got %q", buf.String())
	}

	got, err := ReadScores(&buf)
	if err != nil {
		t.Fatalf("ReadScores() error = %v", err)
	}
	if len(got) != 2 || got[0] != scores[0] || got[1] != scores[1] {
		t.Errorf("round trip = %+v, want %+v", got, scores)
	}
}
