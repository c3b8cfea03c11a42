package nmf

import "gonum.org/v1/gonum/mat"

// Dense adapts any gonum matrix to the Matrix interface for tests with
// small dense inputs.
type Dense struct {
	mat.Matrix
}

// DoNonZero calls fn for every nonzero element in row-major order.
func (d Dense) DoNonZero(fn func(i, j int, v float64)) {
	r, c := d.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := d.At(i, j); v != 0 {
				fn(i, j, v)
			}
		}
	}
}

// MulDense returns d·b.
func (d Dense) MulDense(b mat.Matrix) *mat.Dense {
	var dst mat.Dense
	dst.Mul(d.Matrix, b)
	return &dst
}

// TMulDense returns dᵀ·b.
func (d Dense) TMulDense(b mat.Matrix) *mat.Dense {
	var dst mat.Dense
	dst.Mul(d.Matrix.T(), b)
	return &dst
}
