package operator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func operands() (*mat.Dense, *mat.Dense) {
	left := mat.NewDense(2, 3, []float64{1, -2, 3, 0.5, 0, -1})
	right := mat.NewDense(2, 3, []float64{2, 1, -1, 0.5, 4, -3})
	return left, right
}

func TestApply_Values(t *testing.T) {
	tests := []struct {
		op   Operator
		want []float64
	}{
		{Hadamard, []float64{2, -2, -3, 0.25, 0, 3}},
		{Difference, []float64{-1, -3, 4, 0, -4, 2}},
		{L1Norm, []float64{1, 3, 4, 0, 4, 2}},
		{L2Norm, []float64{1, 9, 16, 0, 16, 4}},
		{Concatenation, []float64{1, -2, 3, 2, 1, -1, 0.5, 0, -1, 0.5, 4, -3}},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			left, right := operands()
			got, err := tt.op.Apply(left, right)
			require.NoError(t, err)

			r, c := got.Dims()
			assert.Equal(t, 2, r)
			assert.Equal(t, tt.op.Width(3, 3), c)
			assert.InDeltaSlice(t, tt.want, got.RawMatrix().Data, 1e-12)
		})
	}
}

func TestApply_DoesNotMutateInputs(t *testing.T) {
	for _, op := range All() {
		left, right := operands()
		l0, r0 := mat.DenseCopyOf(left), mat.DenseCopyOf(right)

		first, err := op.Apply(left, right)
		require.NoError(t, err)
		assert.True(t, mat.Equal(l0, left), op.String())
		assert.True(t, mat.Equal(r0, right), op.String())

		second, err := op.Apply(left, right)
		require.NoError(t, err)
		assert.True(t, mat.Equal(first, second), "%s: repeated call differs", op)
	}
}

func TestApply_ShapeMismatch(t *testing.T) {
	left := mat.NewDense(2, 3, nil)
	rowMismatch := mat.NewDense(3, 3, nil)
	colMismatch := mat.NewDense(2, 2, nil)

	for _, op := range All() {
		_, err := op.Apply(left, rowMismatch)
		assert.ErrorIs(t, err, ErrShape, op.String())

		if op == Concatenation {
			continue
		}
		_, err = op.Apply(left, colMismatch)
		assert.ErrorIs(t, err, ErrShape, op.String())
	}
}

func TestConcatenation_UnequalWidths(t *testing.T) {
	left := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	right := mat.NewDense(2, 2, []float64{7, 8, 9, 10})

	got, err := ApplyConcatenation(left, right)
	require.NoError(t, err)

	r, c := got.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, Concatenation.Width(3, 2), c)
	assert.Equal(t, []float64{1, 2, 3, 7, 8, 4, 5, 6, 9, 10}, got.RawMatrix().Data)

	_, err = ApplyConcatenation(left, mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, ErrShape)
}

func TestApply_NaNPropagates(t *testing.T) {
	left := mat.NewDense(1, 2, []float64{math.NaN(), 1})
	right := mat.NewDense(1, 2, []float64{1, 1})

	for _, op := range All() {
		got, err := op.Apply(left, right)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(got.At(0, 0)), op.String())
	}
}

func TestL2NormIsSquaredDifference(t *testing.T) {
	left := mat.NewDense(1, 2, []float64{3, 0})
	right := mat.NewDense(1, 2, []float64{0, 4})

	got, err := ApplyL2Norm(left, right)
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 16}, got.RawMatrix().Data)
}

func TestWidth(t *testing.T) {
	assert.Equal(t, 8, Hadamard.Width(8, 8))
	assert.Equal(t, 8, L1Norm.Width(8, 8))
	assert.Equal(t, 16, Concatenation.Width(8, 8))
	assert.Equal(t, 13, Concatenation.Width(8, 5))
}

func TestParseOperator(t *testing.T) {
	for _, op := range All() {
		got, err := ParseOperator(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}

	got, err := ParseOperator(" L2_Norm ")
	require.NoError(t, err)
	assert.Equal(t, L2Norm, got)

	_, err = ParseOperator("cosine")
	assert.Error(t, err)
}

func TestString_Unknown(t *testing.T) {
	assert.Equal(t, "Operator(42)", Operator(42).String())
	_, err := Operator(42).Apply(mat.NewDense(1, 1, nil), mat.NewDense(1, 1, nil))
	assert.Error(t, err)
}
