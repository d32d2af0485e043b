// Package reduction projects expanded truth operators onto a reduced basis,
// producing populated affine expansion storages ready for persistence, and
// assembles their online affine combinations.
package reduction

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/backends"
	"github.com/notargets/gorom/online"
)

var (
	// ErrOperatorShape marks an operator whose dimensions do not match the
	// reduced basis.
	ErrOperatorShape = errors.New("reduction: operator shape does not match basis")

	// ErrExpansionMismatch marks theta and operator expansions of different
	// lengths, which would break the offline/online index correspondence.
	ErrExpansionMismatch = errors.New("reduction: theta and operator expansion lengths differ")
)

// ProjectOperator Galerkin-projects one truth operator onto the basis Z
// (truth dimension x reduced dimension): Z^T*A*Z for a matrix operator,
// Z^T*F for a vector (one-column) operator.
func ProjectOperator(op backends.Operator, Z *mat.Dense) (online.Value, error) {
	var (
		nTruth, nReduced = Z.Dims()
		r, c             = op.Dims()
	)
	if c == 1 && r != 1 {
		if r != nTruth {
			return online.Value{}, fmt.Errorf("%w: vector length %d, basis rows %d",
				ErrOperatorShape, r, nTruth)
		}
		projected := mat.NewDense(nReduced, 1, nil)
		projected.Mul(Z.T(), op)
		v := online.NewVector(nReduced)
		for i := 0; i < nReduced; i++ {
			v.Set(i, projected.At(i, 0))
		}
		return online.VectorValue(v), nil
	}
	if r != nTruth || c != nTruth {
		return online.Value{}, fmt.Errorf("%w: operator %dx%d, basis rows %d",
			ErrOperatorShape, r, c, nTruth)
	}
	var (
		AZ  = mat.NewDense(nTruth, nReduced, nil)
		ZAZ = mat.NewDense(nReduced, nReduced, nil)
	)
	AZ.Mul(op, Z)
	ZAZ.Mul(Z.T(), AZ)
	R := online.NewMatrix(nReduced, nReduced)
	for i := 0; i < nReduced; i++ {
		for j := 0; j < nReduced; j++ {
			R.Set(i, j, ZAZ.At(i, j))
		}
	}
	return online.MatrixValue(R), nil
}

// ProjectExpansion projects every operator of one affine expansion and
// populates a 1-D storage carrying the given component maps, ready to Save.
func ProjectExpansion(ops []backends.Operator, Z *mat.Dense,
	maps online.ComponentMaps) (*online.AffineExpansionStorage, error) {
	storage, err := online.NewAffineExpansionStorage(len(ops))
	if err != nil {
		return nil, err
	}
	for q, op := range ops {
		val, err := ProjectOperator(op, Z)
		if err != nil {
			return nil, err
		}
		val = valueWithComponents(val, maps)
		if err = storage.Set(val, q); err != nil {
			return nil, err
		}
	}
	return storage, nil
}

func valueWithComponents(val online.Value, maps online.ComponentMaps) online.Value {
	if !maps.IsSet() {
		return val
	}
	if m, ok := val.Matrix(); ok {
		m.Components = maps
		return online.MatrixValue(m)
	}
	if v, ok := val.Vector(); ok {
		v.Components = maps
		return online.VectorValue(v)
	}
	return val
}

// AssembleReducedMatrix forms the online affine combination sum_q theta_q*A_q
// of a storage of reduced matrices.
func AssembleReducedMatrix(storage *online.AffineExpansionStorage,
	thetas []float64) (online.Matrix, error) {
	if storage.Len() != len(thetas) {
		return online.Matrix{}, fmt.Errorf("%w: %d operators, %d thetas",
			ErrExpansionMismatch, storage.Len(), len(thetas))
	}
	var R online.Matrix
	q := 0
	for item := range storage.Iterate() {
		m, ok := item.Matrix()
		if !ok {
			return online.Matrix{}, fmt.Errorf("%w: slot %d holds %v",
				online.ErrMixedContent, q, item.Kind())
		}
		if q == 0 {
			nr, nc := m.Dims()
			R = online.NewMatrix(nr, nc)
		}
		nr, nc := m.Dims()
		for i := 0; i < nr; i++ {
			for j := 0; j < nc; j++ {
				R.Set(i, j, R.At(i, j)+thetas[q]*m.At(i, j))
			}
		}
		q++
	}
	return R, nil
}

// AssembleReducedVector forms the online affine combination sum_q theta_q*F_q
// of a storage of reduced vectors.
func AssembleReducedVector(storage *online.AffineExpansionStorage,
	thetas []float64) (online.Vector, error) {
	if storage.Len() != len(thetas) {
		return online.Vector{}, fmt.Errorf("%w: %d operators, %d thetas",
			ErrExpansionMismatch, storage.Len(), len(thetas))
	}
	var R online.Vector
	q := 0
	for item := range storage.Iterate() {
		v, ok := item.Vector()
		if !ok {
			return online.Vector{}, fmt.Errorf("%w: slot %d holds %v",
				online.ErrMixedContent, q, item.Kind())
		}
		if q == 0 {
			R = online.NewVector(v.Len())
		}
		for i := 0; i < v.Len(); i++ {
			R.Set(i, R.AtVec(i)+thetas[q]*v.AtVec(i))
		}
		q++
	}
	return R, nil
}
