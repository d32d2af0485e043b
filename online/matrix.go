package online

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Index is a list of positions into one dimension of a matrix or vector.
type Index []int

// IndexRange builds the contiguous index list [start, stop).
func IndexRange(start, stop int) (I Index) {
	I = make(Index, stop-start)
	for i := range I {
		I[i] = start + i
	}
	return
}

// Matrix is a dense online (reduced order) matrix, e.g. the output of Z^T*A*Z.
// Components, when set, relates block rows/columns to named solution
// components for component-wise slicing.
type Matrix struct {
	M          *mat.Dense
	Components ComponentMaps
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v",
				nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{M: m}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		data   = m.M.RawMatrix().Data
		dataR  = make([]float64, nr*nc)
	)
	copy(dataR, data)
	R = NewMatrix(nr, nc, dataR)
	R.Components = m.Components
	return
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.M.Set(i, j, val)
	return m
}

// Subset extracts the rows and columns listed in I and J, in order.
func (m Matrix) Subset(I, J Index) (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(len(I), len(J))
	for iR, i := range I {
		if i < 0 || i >= nr {
			panic(fmt.Errorf("row index out of bounds: index = %d, max_bounds = %d", i, nr-1))
		}
		for jR, j := range J {
			if j < 0 || j >= nc {
				panic(fmt.Errorf("column index out of bounds: index = %d, max_bounds = %d", j, nc-1))
			}
			R.M.Set(iR, jR, m.M.At(i, j))
		}
	}
	return
}

func (m Matrix) Mul(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, _ = m.M.Dims()
		_, ncA = A.M.Dims()
	)
	R = NewMatrix(nrM, ncA)
	R.M.Mul(m.M, A.M)
	return
}

func (m Matrix) Transpose() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nc, nr)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			R.M.Set(j, i, m.M.At(i, j))
		}
	}
	return
}
