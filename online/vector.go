package online

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Vector is a dense online (reduced order) vector, e.g. the output of Z^T*F.
type Vector struct {
	V          *mat.VecDense
	Components ComponentMaps
}

func NewVector(n int, dataO ...[]float64) (R Vector) {
	var v *mat.VecDense
	if len(dataO) != 0 {
		if len(dataO[0]) != n {
			err := fmt.Errorf("mismatch in allocation: NewVector n = %v, len(data[0]) = %v",
				n, len(dataO[0]))
			panic(err)
		}
		v = mat.NewVecDense(n, dataO[0])
	} else {
		v = mat.NewVecDense(n, make([]float64, n))
	}
	R = Vector{V: v}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)         { return v.V.Dims() }
func (v Vector) At(i, j int) float64      { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix            { return v.V.T() }
func (v Vector) AtVec(i int) float64      { return v.V.AtVec(i) }
func (v Vector) RawVector() blas64.Vector { return v.V.RawVector() }
func (v Vector) Len() int                 { return v.V.Len() }

func (v Vector) Copy() (R Vector) { // Does not change receiver
	var (
		n     = v.Len()
		dataR = make([]float64, n)
	)
	copy(dataR, v.V.RawVector().Data)
	R = NewVector(n, dataR)
	R.Components = v.Components
	return
}

func (v Vector) Set(i int, val float64) Vector { // Changes receiver
	v.V.SetVec(i, val)
	return v
}

// Subset extracts the entries listed in I, in order.
func (v Vector) Subset(I Index) (R Vector) { // Does not change receiver
	var (
		n = v.Len()
	)
	R = NewVector(len(I))
	for iR, i := range I {
		if i < 0 || i >= n {
			panic(fmt.Errorf("index out of bounds: index = %d, max_bounds = %d", i, n-1))
		}
		R.V.SetVec(iR, v.V.AtVec(i))
	}
	return
}

// Function is an online coefficient function, stored through its underlying
// vector of degrees of freedom (used e.g. for initial conditions of unsteady
// problems). For storage and slicing purposes it behaves as its vector.
type Function struct {
	Vec Vector
}

func NewFunction(v Vector) Function { return Function{Vec: v} }

func (f Function) Vector() Vector { return f.Vec }
func (f Function) N() int         { return f.Vec.Len() }
