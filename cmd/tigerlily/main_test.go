package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tigerlily/tigerlily/internal/config"
	"github.com/tigerlily/tigerlily/internal/dataset"
	"github.com/tigerlily/tigerlily/internal/embedding"
	"github.com/tigerlily/tigerlily/internal/nmf"
	"github.com/tigerlily/tigerlily/internal/operator"
	"github.com/tigerlily/tigerlily/internal/table"
	"github.com/tigerlily/tigerlily/internal/tigergraph"
	"gonum.org/v1/gonum/mat"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not fitted", embedding.ErrNotFitted, ExitNotFitted},
		{"schema", &table.SchemaError{Table: "scores", Missing: []string{"score"}}, ExitDataError},
		{"dimension", fmt.Errorf("factorizing: %w", nmf.ErrDimension), ExitDataError},
		{"negative", nmf.ErrNegativeInput, ExitDataError},
		{"shape", operator.ErrShape, ExitDataError},
		{"empty target", embedding.ErrEmptyTarget, ExitDataError},
		{"no workspace", config.ErrNoWorkspace, ExitConfigError},
		{"tigergraph settings", config.ErrTigerGraphNotConfigured, ExitConfigError},
		{"bad option", nmf.ErrInvalidOption, ExitConfigError},
		{"tigergraph auth", fmt.Errorf("connecting: %w", tigergraph.ErrAuth), ExitRemoteError},
		{"tigergraph api", &tigergraph.APIError{StatusCode: 500, Message: "boom"}, ExitRemoteError},
		{"dataset missing", fmt.Errorf("%w: edges.csv", dataset.ErrNotFound), ExitRemoteError},
		{"dataset network", dataset.ErrNetwork, ExitRemoteError},
		{"dataset too large", dataset.ErrTooLarge, ExitRemoteError},
		{"other", errors.New("disk full"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"dimensions":  "dimensions",
		"max-iter":    "max_iter",
		"MAX_ITER":    "max_iter",
		"Dataset-URL": "dataset_url",
	}
	for in, want := range tests {
		if got := normalizeKey(in); got != want {
			t.Errorf("normalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildProgressBar(t *testing.T) {
	tests := []struct {
		current, total, width int
		want                  string
	}{
		{0, 10, 10, ">         "},
		{5, 10, 10, "=====>    "},
		{10, 10, 10, "=========="},
		{3, 0, 4, "    "},
	}
	for _, tt := range tests {
		if got := buildProgressBar(tt.current, tt.total, tt.width); got != tt.want {
			t.Errorf("buildProgressBar(%d, %d, %d) = %q, want %q", tt.current, tt.total, tt.width, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(short) = %q", got)
	}
}

func TestCountUnknownPairs(t *testing.T) {
	emb, err := embedding.NewTable([]string{"a", "b"}, mat.NewDense(2, 1, []float64{1, 2}))
	if err != nil {
		t.Fatal(err)
	}
	target := []table.TargetRecord{
		{Drug1: "a", Drug2: "b"},
		{Drug1: "a", Drug2: "z"},
		{Drug1: "y", Drug2: "z"},
	}
	if got := countUnknownPairs(emb, target); got != 2 {
		t.Errorf("countUnknownPairs() = %d, want 2", got)
	}
}

func TestParseDatasetTable(t *testing.T) {
	n, scores, err := parseDatasetTable(dataset.PageRankFile, []byte("node_1,node_2,score\na,x,0.5\nb,x,0.25\n"))
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if n != 2 || len(scores) != 2 {
		t.Errorf("scores: n=%d len=%d, want 2", n, len(scores))
	}

	n, scores, err = parseDatasetTable(dataset.TargetFile, []byte("drug_1,drug_2,label\na,b,1\n"))
	if err != nil || n != 1 || scores != nil {
		t.Errorf("target: n=%d scores=%v err=%v", n, scores, err)
	}

	if _, _, err := parseDatasetTable(dataset.EdgesFile, []byte("node_1,node_2\na,b\n")); !table.IsSchemaError(err) {
		t.Errorf("edges without types: err = %v, want schema error", err)
	}

	if _, _, err := parseDatasetTable("other.csv", nil); err == nil {
		t.Error("unknown table: expected error")
	}
}
