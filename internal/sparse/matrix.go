package sparse

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Entry is a single nonzero coordinate.
type Entry struct {
	Row, Col int
	Value    float64
}

// Matrix is an immutable CSR matrix. It implements mat.Matrix so it can be
// handed to gonum routines that only read elements.
type Matrix struct {
	rows, cols int
	rowPtr     []int
	colIdx     []int
	values     []float64
}

var _ mat.Matrix = (*Matrix)(nil)

// NewMatrix builds a rows×cols matrix from entries. When a coordinate appears
// more than once the last entry wins; values are not summed.
func NewMatrix(rows, cols int, entries []Entry) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid shape (%d, %d)", rows, cols)
	}

	last := make(map[[2]int]int, len(entries))
	for i, e := range entries {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			return nil, fmt.Errorf("entry %d at (%d, %d) outside shape (%d, %d)", i, e.Row, e.Col, rows, cols)
		}
		last[[2]int{e.Row, e.Col}] = i
	}

	kept := make([]Entry, 0, len(last))
	for _, i := range last {
		kept = append(kept, entries[i])
	}
	sort.Slice(kept, func(a, b int) bool {
		if kept[a].Row != kept[b].Row {
			return kept[a].Row < kept[b].Row
		}
		return kept[a].Col < kept[b].Col
	})

	m := &Matrix{
		rows:   rows,
		cols:   cols,
		rowPtr: make([]int, rows+1),
		colIdx: make([]int, len(kept)),
		values: make([]float64, len(kept)),
	}
	for i, e := range kept {
		m.rowPtr[e.Row+1]++
		m.colIdx[i] = e.Col
		m.values[i] = e.Value
	}
	for r := 0; r < rows; r++ {
		m.rowPtr[r+1] += m.rowPtr[r]
	}
	return m, nil
}

// Dims returns the shape of the matrix.
func (m *Matrix) Dims() (r, c int) {
	return m.rows, m.cols
}

// At returns the element at (i, j); absent coordinates are zero.
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	k := lo + sort.SearchInts(m.colIdx[lo:hi], j)
	if k < hi && m.colIdx[k] == j {
		return m.values[k]
	}
	return 0
}

// T returns the implicit transpose.
func (m *Matrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	return len(m.values)
}

// DoNonZero calls fn for each stored entry in row-major order.
func (m *Matrix) DoNonZero(fn func(i, j int, v float64)) {
	for i := 0; i < m.rows; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			fn(i, m.colIdx[k], m.values[k])
		}
	}
}

// MulDense returns m·b for a dense b with as many rows as m has columns.
func (m *Matrix) MulDense(b mat.Matrix) *mat.Dense {
	br, bc := b.Dims()
	if br != m.cols {
		panic(mat.ErrShape)
	}
	dst := mat.NewDense(m.rows, bc, nil)
	row := make([]float64, bc)
	for i := 0; i < m.rows; i++ {
		for j := range row {
			row[j] = 0
		}
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			c, v := m.colIdx[k], m.values[k]
			for j := 0; j < bc; j++ {
				row[j] += v * b.At(c, j)
			}
		}
		dst.SetRow(i, row)
	}
	return dst
}

// TMulDense returns mᵀ·b for a dense b with as many rows as m.
func (m *Matrix) TMulDense(b mat.Matrix) *mat.Dense {
	br, bc := b.Dims()
	if br != m.rows {
		panic(mat.ErrShape)
	}
	data := make([]float64, m.cols*bc)
	for i := 0; i < m.rows; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			c, v := m.colIdx[k], m.values[k]
			for j := 0; j < bc; j++ {
				data[c*bc+j] += v * b.At(i, j)
			}
		}
	}
	return mat.NewDense(m.cols, bc, data)
}
