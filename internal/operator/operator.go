// Package operator combines the embeddings of two nodes into edge features.
package operator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when the operands do not line up: elementwise
// operators need equal shapes, concatenation only equal row counts.
var ErrShape = errors.New("operand shapes differ")

// Operator is a binary function mapping two (n, d) matrices to an edge
// feature matrix with n rows.
type Operator int

const (
	Hadamard Operator = iota
	Difference
	L1Norm
	// L2Norm squares the elementwise difference. It does not compute a
	// norm and takes no square root; the name is kept for compatibility.
	L2Norm
	Concatenation
)

var names = map[Operator]string{
	Hadamard:      "hadamard",
	Difference:    "difference",
	L1Norm:        "l1_norm",
	L2Norm:        "l2_norm",
	Concatenation: "concatenation",
}

// All lists every operator in declaration order.
func All() []Operator {
	return []Operator{Hadamard, Difference, L1Norm, L2Norm, Concatenation}
}

// Names lists the accepted operator names.
func Names() []string {
	ops := All()
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}

// ParseOperator returns the operator with the given name.
func ParseOperator(name string) (Operator, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for op, n := range names {
		if n == key {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q (valid: %s)", name, strings.Join(Names(), ", "))
}

func (o Operator) String() string {
	if n, ok := names[o]; ok {
		return n
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Width returns the number of feature columns produced from operands with
// left and right columns. Elementwise operators require left == right.
func (o Operator) Width(left, right int) int {
	if o == Concatenation {
		return left + right
	}
	return left
}

// Apply combines left and right. Neither input is modified.
func (o Operator) Apply(left, right mat.Matrix) (*mat.Dense, error) {
	switch o {
	case Hadamard:
		return ApplyHadamard(left, right)
	case Difference:
		return ApplyDifference(left, right)
	case L1Norm:
		return ApplyL1Norm(left, right)
	case L2Norm:
		return ApplyL2Norm(left, right)
	case Concatenation:
		return ApplyConcatenation(left, right)
	default:
		return nil, fmt.Errorf("unknown operator %d", int(o))
	}
}

func checkShape(left, right mat.Matrix) error {
	lr, lc := left.Dims()
	rr, rc := right.Dims()
	if lr != rr || lc != rc {
		return fmt.Errorf("%w: (%d, %d) vs (%d, %d)", ErrShape, lr, lc, rr, rc)
	}
	return nil
}

// ApplyHadamard returns the elementwise product.
func ApplyHadamard(left, right mat.Matrix) (*mat.Dense, error) {
	if err := checkShape(left, right); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.MulElem(left, right)
	return &out, nil
}

// ApplyDifference returns left - right.
func ApplyDifference(left, right mat.Matrix) (*mat.Dense, error) {
	if err := checkShape(left, right); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Sub(left, right)
	return &out, nil
}

// ApplyL1Norm returns |left - right| elementwise.
func ApplyL1Norm(left, right mat.Matrix) (*mat.Dense, error) {
	out, err := ApplyDifference(left, right)
	if err != nil {
		return nil, err
	}
	out.Apply(func(_, _ int, v float64) float64 { return math.Abs(v) }, out)
	return out, nil
}

// ApplyL2Norm returns (left - right)² elementwise.
func ApplyL2Norm(left, right mat.Matrix) (*mat.Dense, error) {
	out, err := ApplyDifference(left, right)
	if err != nil {
		return nil, err
	}
	out.MulElem(out, out)
	return out, nil
}

// ApplyConcatenation places right's columns after left's. The operands may
// differ in width but not in row count.
func ApplyConcatenation(left, right mat.Matrix) (*mat.Dense, error) {
	lr, _ := left.Dims()
	rr, _ := right.Dims()
	if lr != rr {
		return nil, fmt.Errorf("%w: %d rows vs %d rows", ErrShape, lr, rr)
	}
	var out mat.Dense
	out.Augment(left, right)
	return &out, nil
}
