// Package eim implements the empirical interpolation method: offline
// construction of a small basis of representative evaluations of a non-affine
// parametrized coefficient with matched magic interpolation indices, the
// online reconstruction of interpolated theta coefficients, and the
// composition algorithm that expands a separated weak form into a larger
// affine expansion over the per-factor interpolation bases.
package eim

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/backends"
)

// Approximation is the empirical interpolation surrogate of one parametrized
// coefficient factor. The basis is an ordered list of representative
// evaluations over the truth evaluation points; magic indices are matched 1:1
// with basis entries, chosen offline to keep the interpolation system well
// conditioned.
type Approximation struct {
	problem backends.TruthProblem
	factory backends.ParametrizedExpression
	folder  string

	basis [][]float64
	magic []int

	timeDependent bool
	time          float64
}

// NewApproximation builds an empty surrogate for one coefficient factor of
// the given problem. folder is where Save and Load persist the basis.
func NewApproximation(problem backends.TruthProblem, factory backends.ParametrizedExpression,
	folder string) (a *Approximation) {
	_, timeDependent := factory.(backends.TimeDependentExpression)
	a = &Approximation{
		problem:       problem,
		factory:       factory,
		folder:        folder,
		timeDependent: timeDependent,
	}
	return
}

// N returns the current approximation order: basis length == magic count.
func (a *Approximation) N() int { return len(a.basis) }

// Factory returns the coefficient factor this surrogate approximates.
func (a *Approximation) Factory() backends.ParametrizedExpression { return a.factory }

// IsTimeDependent reports whether the factor carries an extra time argument.
func (a *Approximation) IsTimeDependent() bool { return a.timeDependent }

// SetTime fixes the time argument used by Evaluate for time-dependent
// factors; it has no effect on steady factors.
func (a *Approximation) SetTime(t float64) { a.time = t }

// BasisFunctions returns the ordered basis snapshots. The slice is shared
// with the approximation and must not be modified.
func (a *Approximation) BasisFunctions() [][]float64 { return a.basis }

// MagicIndices returns the interpolation indices matched with the basis.
func (a *Approximation) MagicIndices() []int { return a.magic }

// TruncatedBasis returns the leading N basis functions; N == 0 means the full
// current order. Requesting beyond the built order fails with
// ErrTruncationOrder, mirroring ComputeInterpolatedTheta so that the offline
// operator expansion and the online theta expansion truncate identically.
func (a *Approximation) TruncatedBasis(N int) ([][]float64, error) {
	if N == 0 {
		return a.basis, nil
	}
	if N < 0 || N > len(a.basis) {
		return nil, fmt.Errorf("%w: requested %d, built %d", ErrTruncationOrder, N, len(a.basis))
	}
	return a.basis[:N], nil
}

// Evaluate computes the factor at the given parameter (and at the current
// time, for time-dependent factors) over the truth evaluation points.
func (a *Approximation) Evaluate(mu backends.Parameter) []float64 {
	if a.timeDependent {
		return a.factory.(backends.TimeDependentExpression).EvaluateAtTime(mu, a.time)
	}
	return a.factory.Evaluate(mu)
}

// Enrich appends one representative snapshot and its matched magic index.
// This is the contract consumed from external basis-generation strategies
// (greedy, POD): after every call, basis length equals magic-index count.
func (a *Approximation) Enrich(snapshot []float64, magicIndex int) error {
	if len(a.basis) > 0 && len(snapshot) != len(a.basis[0]) {
		return fmt.Errorf("%w: got %d points, basis has %d",
			ErrBasisShape, len(snapshot), len(a.basis[0]))
	}
	if magicIndex < 0 || magicIndex >= len(snapshot) {
		return fmt.Errorf("%w: %d of %d points", ErrMagicIndex, magicIndex, len(snapshot))
	}
	stored := make([]float64, len(snapshot))
	copy(stored, snapshot)
	a.basis = append(a.basis, stored)
	a.magic = append(a.magic, magicIndex)
	return nil
}

// interpolationMatrix builds the N x N system T with T[i][j] the j-th basis
// function evaluated at the i-th magic index.
func (a *Approximation) interpolationMatrix(N int) *mat.Dense {
	T := mat.NewDense(N, N, nil)
	for i := 0; i < N; i++ {
		for j := 0; j < N; j++ {
			T.Set(i, j, a.basis[j][a.magic[i]])
		}
	}
	return T
}

// solveInterpolation solves T theta = f(magic) for the leading N coefficients
// of the snapshot f.
func (a *Approximation) solveInterpolation(f []float64, N int) ([]float64, error) {
	if N == 0 {
		return []float64{}, nil
	}
	rhs := mat.NewVecDense(N, nil)
	for i := 0; i < N; i++ {
		rhs.SetVec(i, f[a.magic[i]])
	}
	var lu mat.LU
	lu.Factorize(a.interpolationMatrix(N))
	theta := mat.NewVecDense(N, nil)
	if err := lu.SolveVecTo(theta, false, rhs); err != nil {
		return nil, fmt.Errorf("eim: singular interpolation system of order %d: %w", N, err)
	}
	out := make([]float64, N)
	copy(out, theta.RawVector().Data)
	return out, nil
}

// ComputeInterpolatedTheta evaluates the factor at the problem's current
// parameter at the magic indices and solves the square interpolation system
// for the leading N coefficients. N == 0 means the full current order;
// N beyond the built order fails with ErrTruncationOrder.
func (a *Approximation) ComputeInterpolatedTheta(N int) ([]float64, error) {
	order := len(a.basis)
	if N == 0 {
		N = order
	}
	if N < 0 || N > order {
		return nil, fmt.Errorf("%w: requested %d, built %d", ErrTruncationOrder, N, order)
	}
	return a.solveInterpolation(a.Evaluate(a.problem.Mu()), N)
}

// interpolationResidual returns f minus its order-N interpolant, for the full
// current order.
func (a *Approximation) interpolationResidual(f []float64) ([]float64, error) {
	theta, err := a.solveInterpolation(f, len(a.basis))
	if err != nil {
		return nil, err
	}
	r := make([]float64, len(f))
	copy(r, f)
	for j, t := range theta {
		for i := range r {
			r[i] -= t * a.basis[j][i]
		}
	}
	return r, nil
}

type approximationWire struct {
	Basis [][]float64
	Magic []int
}

const approximationFile = "interpolation_basis.gob"

// Save persists the basis and magic indices under the approximation folder.
func (a *Approximation) Save() error {
	if err := os.MkdirAll(a.folder, 0755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(a.folder, approximationFile))
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(approximationWire{Basis: a.basis, Magic: a.magic})
}

// Load restores a persisted basis. Loading an approximation that already has
// a basis is a no-op returning false.
func (a *Approximation) Load() (bool, error) {
	if len(a.basis) > 0 {
		return false, nil
	}
	f, err := os.Open(filepath.Join(a.folder, approximationFile))
	if err != nil {
		return false, err
	}
	defer f.Close()
	var wire approximationWire
	if err = gob.NewDecoder(f).Decode(&wire); err != nil {
		return false, err
	}
	if len(wire.Basis) != len(wire.Magic) {
		return false, fmt.Errorf("%w: %d basis functions, %d magic indices",
			ErrBasisShape, len(wire.Basis), len(wire.Magic))
	}
	a.basis = wire.Basis
	a.magic = wire.Magic
	return true, nil
}
