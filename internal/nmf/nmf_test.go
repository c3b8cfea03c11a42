package nmf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tigerlily/tigerlily/internal/sparse"
)

var _ Matrix = (*sparse.Matrix)(nil)

// lowRank returns an exact rank-2 non-negative 6×5 matrix.
func lowRank() Dense {
	w := mat.NewDense(6, 2, []float64{
		1, 0.1,
		0.9, 0.2,
		0.8, 0.1,
		0.1, 1,
		0.2, 0.9,
		0.5, 0.5,
	})
	h := mat.NewDense(2, 5, []float64{
		1, 0.8, 0.1, 0.0, 0.3,
		0.1, 0.2, 0.9, 1.0, 0.4,
	})
	var x mat.Dense
	x.Mul(w, h)
	return Dense{&x}
}

func defaultOptions(k int) Options {
	return Options{Components: k, MaxIter: 200, Tol: DefaultTol, Init: InitNNDSVD, Seed: 42}
}

func TestFactorize_DimensionErrors(t *testing.T) {
	x := lowRank()
	for _, k := range []int{0, -1, 6, 7} {
		_, err := Factorize(context.Background(), x, defaultOptions(k))
		assert.ErrorIs(t, err, ErrDimension, "k=%d", k)
	}
	_, err := Factorize(context.Background(), x, defaultOptions(5))
	assert.NoError(t, err, "k = min(rows, cols) is allowed")
}

func TestFactorize_InvalidOptions(t *testing.T) {
	opts := defaultOptions(2)
	opts.MaxIter = 0
	_, err := Factorize(context.Background(), lowRank(), opts)
	assert.ErrorIs(t, err, ErrInvalidOption)

	opts = defaultOptions(2)
	opts.Init = "svd"
	_, err = Factorize(context.Background(), lowRank(), opts)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestFactorize_NegativeInput(t *testing.T) {
	x := Dense{mat.NewDense(2, 2, []float64{1, -0.5, 0.2, 0.3})}
	_, err := Factorize(context.Background(), x, defaultOptions(1))
	assert.ErrorIs(t, err, ErrNegativeInput)
}

func TestFactorize_NonNegativeFactors(t *testing.T) {
	for _, init := range ValidInits {
		t.Run(string(init), func(t *testing.T) {
			opts := defaultOptions(2)
			opts.Init = init
			res, err := Factorize(context.Background(), lowRank(), opts)
			require.NoError(t, err)

			r, c := res.W.Dims()
			assert.Equal(t, 6, r)
			assert.Equal(t, 2, c)
			r, c = res.H.Dims()
			assert.Equal(t, 2, r)
			assert.Equal(t, 5, c)

			for _, v := range res.W.RawMatrix().Data {
				assert.GreaterOrEqual(t, v, 0.0)
			}
			for _, v := range res.H.RawMatrix().Data {
				assert.GreaterOrEqual(t, v, 0.0)
			}
		})
	}
}

func TestFactorize_RecoversLowRank(t *testing.T) {
	x := lowRank()
	opts := defaultOptions(2)
	opts.MaxIter = 1000
	opts.Tol = 1e-10

	res, err := Factorize(context.Background(), x, opts)
	require.NoError(t, err)

	norm := mat.Norm(x, 2)
	assert.Less(t, res.Loss, 0.05*norm)

	var wh mat.Dense
	wh.Mul(res.W, res.H)
	var diff mat.Dense
	diff.Sub(x, &wh)
	assert.InDelta(t, mat.Norm(&diff, 2), res.Loss, 1e-5)
}

func TestFactorize_Deterministic(t *testing.T) {
	for _, init := range ValidInits {
		t.Run(string(init), func(t *testing.T) {
			opts := defaultOptions(3)
			opts.Init = init
			opts.MaxIter = 20

			a, err := Factorize(context.Background(), lowRank(), opts)
			require.NoError(t, err)
			b, err := Factorize(context.Background(), lowRank(), opts)
			require.NoError(t, err)

			require.Equal(t, len(a.W.RawMatrix().Data), len(b.W.RawMatrix().Data))
			for i, v := range a.W.RawMatrix().Data {
				assert.Equal(t, math.Float64bits(v), math.Float64bits(b.W.RawMatrix().Data[i]))
			}
			assert.Equal(t, a.Iterations, b.Iterations)
		})
	}
}

func TestFactorize_SeedMattersForRandomInit(t *testing.T) {
	opts := defaultOptions(2)
	opts.Init = InitRandom
	opts.MaxIter = 1

	a, err := Factorize(context.Background(), lowRank(), opts)
	require.NoError(t, err)
	opts.Seed = 7
	b, err := Factorize(context.Background(), lowRank(), opts)
	require.NoError(t, err)

	assert.False(t, mat.Equal(a.W, b.W))
}

func TestFactorize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Factorize(ctx, lowRank(), defaultOptions(2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFactorize_Progress(t *testing.T) {
	var calls []int
	opts := defaultOptions(2)
	opts.MaxIter = 5
	opts.Tol = 0
	opts.Progress = ProgressFunc(func(iteration, maxIter int, violation float64) {
		calls = append(calls, iteration)
		assert.Equal(t, 5, maxIter)
	})

	res, err := Factorize(context.Background(), lowRank(), opts)
	require.NoError(t, err)

	assert.Equal(t, res.Iterations, len(calls))
	assert.Equal(t, 1, calls[0])
}

func TestFactorize_SparseInput(t *testing.T) {
	x, err := sparse.NewMatrix(3, 4, []sparse.Entry{
		{Row: 0, Col: 0, Value: 0.9}, {Row: 0, Col: 1, Value: 0.1}, {Row: 0, Col: 2, Value: 0.8},
		{Row: 1, Col: 0, Value: 0.5}, {Row: 1, Col: 1, Value: 0.5}, {Row: 1, Col: 2, Value: 0.4}, {Row: 1, Col: 3, Value: 0.4},
		{Row: 2, Col: 0, Value: 0.1}, {Row: 2, Col: 1, Value: 0.9}, {Row: 2, Col: 3, Value: 0.8},
	})
	require.NoError(t, err)

	sparseRes, err := Factorize(context.Background(), x, defaultOptions(2))
	require.NoError(t, err)
	denseRes, err := Factorize(context.Background(), Dense{mat.DenseCopyOf(x)}, defaultOptions(2))
	require.NoError(t, err)

	assert.True(t, mat.EqualApprox(sparseRes.W, denseRes.W, 1e-6))
}

func TestParseInit(t *testing.T) {
	got, err := ParseInit("nndsvda")
	require.NoError(t, err)
	assert.Equal(t, InitNNDSVDA, got)

	_, err = ParseInit("pca")
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestCheckDimensions(t *testing.T) {
	assert.NoError(t, CheckDimensions(3, 3, 4))
	assert.ErrorIs(t, CheckDimensions(4, 3, 4), ErrDimension)
}
