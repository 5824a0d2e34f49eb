package domain

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrMatrixFormat is returned for non-square or asymmetric correlation input
var ErrMatrixFormat = errors.New("malformed correlation matrix")

// SymmetryTolerance is the largest accepted |a_ij - a_ji|
const SymmetryTolerance = 1e-9

// CorrelationMatrix is a labelled symmetric correlation matrix
type CorrelationMatrix struct {
	Labels []string    `json:"labels" msgpack:"labels"`
	Values [][]float64 `json:"values" msgpack:"values"`
}

// NewCorrelationMatrix validates and wraps labelled correlation values.
// An empty matrix is valid.
func NewCorrelationMatrix(labels []string, values [][]float64) (CorrelationMatrix, error) {
	m := CorrelationMatrix{Labels: labels, Values: values}
	if err := m.Validate(); err != nil {
		return CorrelationMatrix{}, err
	}
	return m, nil
}

// Validate checks shape, label count and symmetry
func (m CorrelationMatrix) Validate() error {
	n := len(m.Values)
	if n == 0 {
		if len(m.Labels) != 0 {
			return fmt.Errorf("%w: %d labels for empty matrix", ErrMatrixFormat, len(m.Labels))
		}
		return nil
	}
	if len(m.Labels) != n {
		return fmt.Errorf("%w: %d labels for %d rows", ErrMatrixFormat, len(m.Labels), n)
	}

	data := make([]float64, 0, n*n)
	for i, row := range m.Values {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrMatrixFormat, i, len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite value at (%d,%d)", ErrMatrixFormat, i, j)
			}
		}
		data = append(data, row...)
	}

	d := mat.NewDense(n, n, data)
	if !mat.EqualApprox(d, d.T(), SymmetryTolerance) {
		return fmt.Errorf("%w: matrix is not symmetric", ErrMatrixFormat)
	}
	return nil
}

// Size returns the matrix dimension
func (m CorrelationMatrix) Size() int {
	return len(m.Values)
}

// Empty reports whether the matrix has no rows
func (m CorrelationMatrix) Empty() bool {
	return len(m.Values) == 0
}

// Index returns the row of label, or -1
func (m CorrelationMatrix) Index(label string) int {
	for i, l := range m.Labels {
		if l == label {
			return i
		}
	}
	return -1
}
