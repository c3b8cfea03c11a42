// Package nmf factorizes a non-negative matrix X ≈ W·H with coordinate
// descent on the Frobenius loss.
package nmf

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Errors returned by Factorize.
var (
	ErrDimension     = errors.New("embedding dimensions incompatible with matrix shape")
	ErrNegativeInput = errors.New("negative values in data passed to NMF")
	ErrInvalidOption = errors.New("invalid NMF option")
	ErrFactorization = errors.New("matrix factorization failed")
)

const (
	// DefaultMaxIter is the default number of coordinate-descent sweeps.
	DefaultMaxIter = 200

	// DefaultTol is the relative projected-gradient threshold for stopping.
	DefaultTol = 1e-4

	// initEpsilon zeroes tiny entries of the NNDSVD factors.
	initEpsilon = 1e-6
)

// Matrix is the input to Factorize. The solver only needs the two products
// X·B and Xᵀ·B and a walk over the nonzeros, so sparse inputs never have to
// be densified during the sweeps.
type Matrix interface {
	mat.Matrix
	DoNonZero(fn func(i, j int, v float64))
	MulDense(b mat.Matrix) *mat.Dense
	TMulDense(b mat.Matrix) *mat.Dense
}

// ProgressReporter receives progress updates during factorization.
type ProgressReporter interface {
	// OnProgress is called after every sweep with the relative violation.
	OnProgress(iteration, maxIter int, violation float64)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(iteration, maxIter int, violation float64)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(iteration, maxIter int, violation float64) {
	f(iteration, maxIter, violation)
}

// Options configures Factorize.
type Options struct {
	Components int     // Rank of the factorization
	MaxIter    int     // Maximum number of sweeps (W then H)
	Tol        float64 // Stop once violation/initial violation <= Tol
	Init       Init    // Initialization scheme
	Seed       uint64  // Seed for every randomized draw
	Progress   ProgressReporter
}

// Result holds both factors and solver statistics.
type Result struct {
	W          *mat.Dense // (rows, Components)
	H          *mat.Dense // (Components, cols)
	Iterations int
	Converged  bool
	Violation  float64 // Final violation relative to the first sweep
	Loss       float64 // Frobenius norm of X - W·H
}

// CheckDimensions reports whether a rank-k factorization of an r×c matrix is
// well posed.
func CheckDimensions(k, r, c int) error {
	if k < 1 || k > r || k > c {
		return fmt.Errorf("%w: %d dimensions for a %d×%d matrix (need 1 <= d <= %d)",
			ErrDimension, k, r, c, min(r, c))
	}
	return nil
}

// Factorize computes non-negative W and H minimizing ||X - W·H||_F.
// Given identical input and options the result is bit-for-bit reproducible.
func Factorize(ctx context.Context, x Matrix, opts Options) (*Result, error) {
	r, c := x.Dims()
	if err := CheckDimensions(opts.Components, r, c); err != nil {
		return nil, err
	}
	if opts.MaxIter < 1 {
		return nil, fmt.Errorf("%w: max_iter must be positive, got %d", ErrInvalidOption, opts.MaxIter)
	}
	if opts.Tol < 0 {
		return nil, fmt.Errorf("%w: tol must be non-negative, got %v", ErrInvalidOption, opts.Tol)
	}
	if opts.Init == "" {
		opts.Init = InitNNDSVD
	}

	negative := false
	x.DoNonZero(func(_, _ int, v float64) {
		if v < 0 {
			negative = true
		}
	})
	if negative {
		return nil, ErrNegativeInput
	}

	w, h, err := initialize(x, opts)
	if err != nil {
		return nil, err
	}

	// H is updated through its transpose so both sweeps share updateCD.
	ht := mat.DenseCopyOf(h.T())
	res := &Result{}

	var violationInit float64
	for iter := 1; iter <= opts.MaxIter; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var hht mat.Dense
		hht.Mul(ht.T(), ht)
		violation := updateCD(w, &hht, x.MulDense(ht))

		var wtw mat.Dense
		wtw.Mul(w.T(), w)
		violation += updateCD(ht, &wtw, x.TMulDense(w))

		if iter == 1 {
			violationInit = violation
		}
		res.Iterations = iter

		if violationInit == 0 {
			res.Converged = true
			break
		}
		res.Violation = violation / violationInit
		if opts.Progress != nil {
			opts.Progress.OnProgress(iter, opts.MaxIter, res.Violation)
		}
		if res.Violation <= opts.Tol {
			res.Converged = true
			break
		}
	}

	res.W = w
	res.H = mat.DenseCopyOf(ht.T())
	res.Loss = frobeniusLoss(x, res.W, res.H)
	return res, nil
}

// updateCD runs one coordinate-descent sweep over every entry of W for
// min ||X - W·Htᵀ||, given HHt = Htᵀ·Ht and XHt = X·Ht. It returns the sum
// of absolute projected gradients seen during the sweep.
func updateCD(w, hht, xht *mat.Dense) float64 {
	n, k := w.Dims()
	wr := w.RawMatrix()
	hr := hht.RawMatrix()
	xr := xht.RawMatrix()

	var violation float64
	for t := 0; t < k; t++ {
		hrow := hr.Data[t*hr.Stride : t*hr.Stride+k]
		hess := hrow[t]
		for i := 0; i < n; i++ {
			wrow := wr.Data[i*wr.Stride : i*wr.Stride+k]

			grad := -xr.Data[i*xr.Stride+t]
			for q, v := range hrow {
				grad += v * wrow[q]
			}

			pg := grad
			if wrow[t] == 0 {
				pg = math.Min(0, grad)
			}
			violation += math.Abs(pg)

			if hess != 0 {
				wrow[t] = math.Max(wrow[t]-grad/hess, 0)
			}
		}
	}
	return violation
}

// frobeniusLoss evaluates ||X - W·H||_F without materializing W·H:
// ||X||² - 2·<W, X·Hᵀ> + <WᵀW, H·Hᵀ>.
func frobeniusLoss(x Matrix, w, h *mat.Dense) float64 {
	var normX float64
	x.DoNonZero(func(_, _ int, v float64) {
		normX += v * v
	})

	var cross, wtw, hht, quad mat.Dense
	cross.MulElem(w, x.MulDense(h.T()))
	wtw.Mul(w.T(), w)
	hht.Mul(h, h.T())
	quad.MulElem(&wtw, &hht)

	sq := normX - 2*mat.Sum(&cross) + mat.Sum(&quad)
	if sq < 0 {
		sq = 0 // Rounding when the fit is exact
	}
	return math.Sqrt(sq)
}
