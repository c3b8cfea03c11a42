package embedding

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/tigerlily/tigerlily/internal/nmf"
	"github.com/tigerlily/tigerlily/internal/operator"
	"github.com/tigerlily/tigerlily/internal/table"
)

func exampleScores() []table.ScoreRecord {
	return []table.ScoreRecord{
		{Node1: "DB02", Node2: "G1", Score: 0.5},
		{Node1: "DB01", Node2: "G1", Score: 0.9},
		{Node1: "DB01", Node2: "G2", Score: 0.1},
		{Node1: "DB01", Node2: "G3", Score: 0.8},
		{Node1: "DB02", Node2: "G2", Score: 0.5},
		{Node1: "DB02", Node2: "G3", Score: 0.4},
		{Node1: "DB02", Node2: "G4", Score: 0.4},
		{Node1: "DB03", Node2: "G1", Score: 0.1},
		{Node1: "DB03", Node2: "G2", Score: 0.9},
		{Node1: "DB03", Node2: "G4", Score: 0.8},
	}
}

func TestNewMachine_Defaults(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, 128, m.dimensions)
	assert.Equal(t, 20, m.maxIter)
	assert.Equal(t, uint64(42), m.seed)
	assert.Equal(t, nmf.InitNNDSVD, m.init)
	assert.NotNil(t, m.logger)
}

func TestFit_ShapeAndStandardization(t *testing.T) {
	m := NewMachine(WithDimensions(2))
	emb, err := m.Fit(context.Background(), exampleScores())
	require.NoError(t, err)

	assert.Equal(t, []string{"DB01", "DB02", "DB03"}, emb.NodeIDs)
	assert.Equal(t, 3, emb.Len())
	assert.Equal(t, 2, emb.Dimensions())
	assert.Equal(t, []string{"node_id", "emb_0", "emb_1"}, emb.Columns())

	col := make([]float64, 3)
	for j := 0; j < 2; j++ {
		mat.Col(col, j, emb.Vectors)
		mean, std := stat.PopMeanStdDev(col, nil)
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, std, 1e-9)
	}

	assert.Equal(t, 2, emb.Meta.Dimensions)
	assert.Equal(t, table.Fingerprint(exampleScores()), emb.Meta.ScoresFingerprint)
	assert.Positive(t, emb.Meta.Iterations)

	current, err := m.Embedding()
	require.NoError(t, err)
	assert.Same(t, emb, current)
}

func TestFit_Deterministic(t *testing.T) {
	a, err := NewMachine(WithDimensions(2)).Fit(context.Background(), exampleScores())
	require.NoError(t, err)
	b, err := NewMachine(WithDimensions(2)).Fit(context.Background(), exampleScores())
	require.NoError(t, err)

	assert.Equal(t, a.NodeIDs, b.NodeIDs)
	for i, v := range a.Vectors.RawMatrix().Data {
		assert.Equal(t, math.Float64bits(v), math.Float64bits(b.Vectors.RawMatrix().Data[i]))
	}
}

func TestFit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		dims   int
		scores []table.ScoreRecord
		target error
	}{
		{"too many dimensions", 4, exampleScores(), nmf.ErrDimension},
		{"zero dimensions", 0, exampleScores(), nmf.ErrDimension},
		{"negative score", 2, append(exampleScores(), table.ScoreRecord{Node1: "DB04", Node2: "G1", Score: -1}), nmf.ErrNegativeInput},
		{"blank id", 2, append(exampleScores(), table.ScoreRecord{Node1: "", Node2: "G1", Score: 1}), table.ErrSchema},
		{"empty table", 2, nil, nmf.ErrDimension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(WithDimensions(tt.dims))
			_, err := m.Fit(context.Background(), tt.scores)
			assert.ErrorIs(t, err, tt.target)

			_, err = m.Embedding()
			assert.ErrorIs(t, err, ErrNotFitted, "failed fit must not install an embedding")
		})
	}
}

func TestFit_FailureKeepsPreviousEmbedding(t *testing.T) {
	m := NewMachine(WithDimensions(2))
	first, err := m.Fit(context.Background(), exampleScores())
	require.NoError(t, err)

	_, err = m.Fit(context.Background(), nil)
	require.Error(t, err)

	current, err := m.Embedding()
	require.NoError(t, err)
	assert.Same(t, first, current)
}

func TestFit_Progress(t *testing.T) {
	calls := 0
	m := NewMachine(WithDimensions(2), WithMaxIter(3), WithTolerance(0),
		WithProgressReporter(nmf.ProgressFunc(func(iteration, maxIter int, _ float64) {
			calls++
			assert.Equal(t, 3, maxIter)
		})))

	emb, err := m.Fit(context.Background(), exampleScores())
	require.NoError(t, err)
	assert.Equal(t, emb.Meta.Iterations, calls)
}

func TestCreateFeatures_NotFitted(t *testing.T) {
	_, err := NewMachine().CreateFeatures([]table.TargetRecord{{Drug1: "a", Drug2: "b"}}, operator.Hadamard)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func syntheticTable(t *testing.T, d int) *Table {
	t.Helper()
	ids := []string{"DB01", "DB02", "DB03", "DB04"}
	data := make([]float64, len(ids)*d)
	for i := range data {
		data[i] = float64(i%7) - 3
	}
	emb, err := NewTable(ids, mat.NewDense(len(ids), d, data))
	require.NoError(t, err)
	return emb
}

func fivePairs() []table.TargetRecord {
	return []table.TargetRecord{
		{Drug1: "DB01", Drug2: "DB02"},
		{Drug1: "DB03", Drug2: "DB04"},
		{Drug1: "DB02", Drug2: "DB01"},
		{Drug1: "DB04", Drug2: "DB04"},
		{Drug1: "DB01", Drug2: "DB03"},
	}
}

func TestCreateFeatures_Widths(t *testing.T) {
	m := NewMachine()
	m.SetEmbedding(syntheticTable(t, 8))

	for _, op := range operator.All() {
		features, err := m.CreateFeatures(fivePairs(), op)
		require.NoError(t, err)
		r, c := features.Dims()
		assert.Equal(t, 5, r, op.String())
		if op == operator.Concatenation {
			assert.Equal(t, 16, c)
		} else {
			assert.Equal(t, 8, c, op.String())
		}
	}
}

func TestCreateFeatures_RowOrderAndValues(t *testing.T) {
	emb := syntheticTable(t, 3)
	m := NewMachine()
	m.SetEmbedding(emb)

	target := fivePairs()
	features, err := m.CreateFeatures(target, operator.Difference)
	require.NoError(t, err)

	for i, pair := range target {
		left, err := emb.Vector(pair.Drug1)
		require.NoError(t, err)
		right, err := emb.Vector(pair.Drug2)
		require.NoError(t, err)
		for j := range left {
			assert.Equal(t, left[j]-right[j], features.At(i, j), "row %d col %d", i, j)
		}
	}
}

func TestCreateFeatures_UnknownIDsYieldNaN(t *testing.T) {
	m := NewMachine()
	m.SetEmbedding(syntheticTable(t, 4))

	target := []table.TargetRecord{
		{Drug1: "DB01", Drug2: "DB99"},
		{Drug1: "DB01", Drug2: "DB02"},
	}
	for _, op := range operator.All() {
		features, err := m.CreateFeatures(target, op)
		require.NoError(t, err)

		// The unknown id sits on the right, so only its half is NaN for
		// concatenation.
		start := 0
		if op == operator.Concatenation {
			start = 4
		}
		_, c := features.Dims()
		for j := start; j < c; j++ {
			assert.True(t, math.IsNaN(features.At(0, j)), "%s col %d", op, j)
		}
		for j := 0; j < c; j++ {
			assert.False(t, math.IsNaN(features.At(1, j)), "%s col %d", op, j)
		}
	}
}

func TestCreateFeatures_EmptyTarget(t *testing.T) {
	m := NewMachine()
	m.SetEmbedding(syntheticTable(t, 2))
	_, err := m.CreateFeatures(nil, operator.Hadamard)
	assert.ErrorIs(t, err, ErrEmptyTarget)
}

func TestCreateFeatures_DoesNotMutateEmbedding(t *testing.T) {
	emb := syntheticTable(t, 3)
	before := mat.DenseCopyOf(emb.Vectors)
	m := NewMachine()
	m.SetEmbedding(emb)

	var wg sync.WaitGroup
	for _, op := range operator.All() {
		wg.Add(1)
		go func(op operator.Operator) {
			defer wg.Done()
			_, err := m.CreateFeatures(fivePairs(), op)
			assert.NoError(t, err)
		}(op)
	}
	wg.Wait()

	assert.True(t, mat.Equal(before, emb.Vectors))
}

func TestStandardize_ConstantColumnIsNaN(t *testing.T) {
	w := mat.NewDense(3, 2, []float64{1, 5, 2, 5, 3, 5})
	z := Standardize(w)

	assert.InDelta(t, -math.Sqrt(1.5), z.At(0, 0), 1e-12)
	assert.InDelta(t, 0, z.At(1, 0), 1e-12)
	for i := 0; i < 3; i++ {
		assert.True(t, math.IsNaN(z.At(i, 1)))
	}
	assert.Equal(t, 1.0, w.At(0, 0), "input must be untouched")
}
