package nmf

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Init selects how W and H are seeded before the first sweep.
type Init string

const (
	// InitNNDSVD is non-negative double SVD; zeros stay sparse.
	InitNNDSVD Init = "nndsvd"
	// InitNNDSVDA is NNDSVD with zeros filled by the mean of X.
	InitNNDSVDA Init = "nndsvda"
	// InitNNDSVDAR is NNDSVD with zeros filled by small random values.
	InitNNDSVDAR Init = "nndsvdar"
	// InitRandom draws |N(0,1)| scaled by sqrt(mean(X)/k).
	InitRandom Init = "random"
)

// ValidInits lists the supported initialization schemes.
var ValidInits = []Init{InitNNDSVD, InitNNDSVDA, InitNNDSVDAR, InitRandom}

// ParseInit converts a name into an Init.
func ParseInit(name string) (Init, error) {
	for _, v := range ValidInits {
		if string(v) == name {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown init %q (valid: %v)", ErrInvalidOption, name, ValidInits)
}

func initialize(x Matrix, opts Options) (*mat.Dense, *mat.Dense, error) {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(opts.Seed, opts.Seed)}
	mean := meanOf(x)

	switch opts.Init {
	case InitRandom:
		return randomInit(x, opts.Components, mean, normal)
	case InitNNDSVD, InitNNDSVDA, InitNNDSVDAR:
		w, h, err := nndsvd(x, opts.Components)
		if err != nil {
			return nil, nil, err
		}
		switch opts.Init {
		case InitNNDSVDA:
			fillZeros(w, func() float64 { return mean })
			fillZeros(h, func() float64 { return mean })
		case InitNNDSVDAR:
			fill := func() float64 { return math.Abs(mean * normal.Rand() / 100) }
			fillZeros(w, fill)
			fillZeros(h, fill)
		}
		return w, h, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown init %q", ErrInvalidOption, opts.Init)
	}
}

func meanOf(x Matrix) float64 {
	r, c := x.Dims()
	var sum float64
	x.DoNonZero(func(_, _ int, v float64) {
		sum += v
	})
	return sum / float64(r*c)
}

// randomInit draws H first, then W, from the same stream.
func randomInit(x Matrix, k int, mean float64, normal distuv.Normal) (*mat.Dense, *mat.Dense, error) {
	r, c := x.Dims()
	scale := math.Sqrt(mean / float64(k))

	h := mat.NewDense(k, c, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < c; j++ {
			h.Set(i, j, scale*math.Abs(normal.Rand()))
		}
	}
	w := mat.NewDense(r, k, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < k; j++ {
			w.Set(i, j, scale*math.Abs(normal.Rand()))
		}
	}
	return w, h, nil
}

// nndsvd implements Boutsidis & Gallopoulos (2008) on an exact thin SVD.
func nndsvd(x Matrix, k int) (*mat.Dense, *mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("%w: SVD did not converge", ErrFactorization)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	r, c := x.Dims()
	w := mat.NewDense(r, k, nil)
	h := mat.NewDense(k, c, nil)

	// The leading singular pair of a non-negative matrix has a single sign.
	lead := math.Sqrt(s[0])
	for i := 0; i < r; i++ {
		w.Set(i, 0, lead*math.Abs(u.At(i, 0)))
	}
	for j := 0; j < c; j++ {
		h.Set(0, j, lead*math.Abs(v.At(j, 0)))
	}

	for comp := 1; comp < k; comp++ {
		xp, xn := splitSigns(mat.Col(nil, comp, &u))
		yp, yn := splitSigns(mat.Col(nil, comp, &v))

		xpNorm, ypNorm := floats.Norm(xp, 2), floats.Norm(yp, 2)
		xnNorm, ynNorm := floats.Norm(xn, 2), floats.Norm(yn, 2)
		mp, mn := xpNorm*ypNorm, xnNorm*ynNorm

		left, right, sigma := xp, yp, mp
		leftNorm, rightNorm := xpNorm, ypNorm
		if mp <= mn {
			left, right, sigma = xn, yn, mn
			leftNorm, rightNorm = xnNorm, ynNorm
		}
		if sigma == 0 {
			continue // Degenerate component stays zero
		}

		lbd := math.Sqrt(s[comp] * sigma)
		floats.Scale(lbd/leftNorm, left)
		floats.Scale(lbd/rightNorm, right)
		w.SetCol(comp, left)
		h.SetRow(comp, right)
	}

	zeroBelow(w, initEpsilon)
	zeroBelow(h, initEpsilon)
	return w, h, nil
}

// splitSigns returns max(x, 0) and |min(x, 0)|.
func splitSigns(x []float64) (pos, neg []float64) {
	pos = make([]float64, len(x))
	neg = make([]float64, len(x))
	for i, v := range x {
		if v > 0 {
			pos[i] = v
		} else {
			neg[i] = -v
		}
	}
	return pos, neg
}

func zeroBelow(m *mat.Dense, eps float64) {
	m.Apply(func(_, _ int, v float64) float64 {
		if v < eps {
			return 0
		}
		return v
	}, m)
}

func fillZeros(m *mat.Dense, fill func() float64) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) == 0 {
				m.Set(i, j, fill())
			}
		}
	}
}
