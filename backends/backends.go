// Package backends declares the contracts the reduced-order modeling engine
// consumes from a PDE/algebra backend: assembling the discrete operators of
// an affine term, evaluating the original theta coefficients of a parameter,
// and separating a weak form into parametrized coefficient factors and
// parameter-independent integrand templates. Finite-element assembly, meshes
// and symbolic manipulation live behind these interfaces.
package backends

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidTerm is returned when a term is unknown to the problem assembling
// or evaluating it.
var ErrInvalidTerm = errors.New("backends: invalid term")

// Parameter is one point mu of the parameter domain.
type Parameter []float64

// Copy returns an independent copy of the parameter.
func (mu Parameter) Copy() Parameter {
	out := make(Parameter, len(mu))
	copy(out, mu)
	return out
}

// Operator is one parameter-independent discrete operator of an affine
// expansion: a truth matrix or a truth vector (an n x 1 operator). Sparse
// truth matrices and dense vectors both satisfy it.
type Operator interface {
	mat.Matrix
}

// TruthProblem is the high-fidelity problem an affine term belongs to.
type TruthProblem interface {
	// Name identifies the problem; persistence folders derive from it.
	Name() string
	// Terms lists the affine terms of the problem, e.g. "a", "f".
	Terms() []string
	// Mu returns the current parameter value.
	Mu() Parameter
	// SetMu moves the problem to a new parameter value.
	SetMu(mu Parameter)
	// AssembleOperator returns the ordered parameter-independent operators of
	// one term, or ErrInvalidTerm.
	AssembleOperator(term string) ([]Operator, error)
	// ComputeTheta returns the ordered scalar multipliers of one term at the
	// current parameter, or ErrInvalidTerm.
	ComputeTheta(term string) ([]float64, error)
}

// SeparableProblem is a truth problem whose terms can be decomposed into
// parametrized coefficient factors and parameter-independent integrand
// templates. Terms for which no separated form exists fall through to the
// plain TruthProblem handlers.
type SeparableProblem interface {
	TruthProblem
	// SeparatedForms returns one separated form per operator of the term's
	// original affine expansion.
	SeparatedForms(term string) ([]SeparatedForm, error)
}

// ParametrizedExpression is one parameter-dependent coefficient factor of a
// weak form, evaluated over a fixed set of truth evaluation points.
type ParametrizedExpression interface {
	// Key is the stable identity of the underlying expression: factors with
	// equal keys share one interpolation surrogate across all terms.
	Key() string
	// Evaluate returns the factor's values at the truth evaluation points for
	// the given parameter.
	Evaluate(mu Parameter) []float64
}

// TimeDependentExpression is a coefficient factor that additionally depends
// on time.
type TimeDependentExpression interface {
	ParametrizedExpression
	EvaluateAtTime(mu Parameter, t float64) []float64
}

// SeparatedForm is one discretized form split into addends, each isolating
// its parametrized coefficient factors from a parameter-independent integrand
// template with placeholders.
type SeparatedForm interface {
	// Coefficients returns, per addend, the ordered parametrized factors.
	Coefficients() [][]ParametrizedExpression
	// PlaceholderNames returns the stable names of the addend's placeholders,
	// matched 1:1 with the addend's factors.
	PlaceholderNames(addend int) []string
	// ReplacePlaceholders substitutes one snapshot per placeholder into the
	// addend's integrand template and assembles one discrete operator.
	ReplacePlaceholders(addend int, substitutes [][]float64) (Operator, error)
	// UnchangedOperators assembles the addends with no parametrized
	// coefficient, passed through unmodified, in their original order.
	UnchangedOperators() ([]Operator, error)
	// UnchangedCount returns the number of unchanged addends without
	// assembling them; the online theta pass appends one original theta per
	// unchanged addend.
	UnchangedCount() int
}
