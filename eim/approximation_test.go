package eim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gorom/backends"
)

// stubProblem is a minimal separable truth problem over hand-built separated
// forms, used to exercise the decoration and interpolation machinery without
// a PDE backend.
type stubProblem struct {
	name   string
	terms  []string
	mu     backends.Parameter
	forms  map[string][]backends.SeparatedForm
	thetas map[string][]float64
	ops    map[string][]backends.Operator
}

func (p *stubProblem) Name() string                { return p.name }
func (p *stubProblem) Terms() []string             { return p.terms }
func (p *stubProblem) Mu() backends.Parameter      { return p.mu }
func (p *stubProblem) SetMu(mu backends.Parameter) { p.mu = mu.Copy() }

func (p *stubProblem) AssembleOperator(term string) ([]backends.Operator, error) {
	if ops, ok := p.ops[term]; ok {
		return ops, nil
	}
	return nil, backends.ErrInvalidTerm
}

func (p *stubProblem) ComputeTheta(term string) ([]float64, error) {
	if thetas, ok := p.thetas[term]; ok {
		return thetas, nil
	}
	return nil, backends.ErrInvalidTerm
}

func (p *stubProblem) SeparatedForms(term string) ([]backends.SeparatedForm, error) {
	if p.forms == nil {
		return nil, backends.ErrInvalidTerm
	}
	return p.forms[term], nil
}

// linearFactor evaluates to sum_k mu[k]*modes[k], a coefficient lying exactly
// in the span of its modes so that interpolation errors vanish once the basis
// captures the span.
type linearFactor struct {
	key   string
	modes [][]float64
}

func (e linearFactor) Key() string { return e.key }

func (e linearFactor) Evaluate(mu backends.Parameter) []float64 {
	out := make([]float64, len(e.modes[0]))
	for k, mode := range e.modes {
		for i := range out {
			out[i] += mu[k] * mode[i]
		}
	}
	return out
}

// driftFactor adds a uniform time shift on top of a linearFactor.
type driftFactor struct {
	linearFactor
}

func (e driftFactor) EvaluateAtTime(mu backends.Parameter, t float64) []float64 {
	out := e.Evaluate(mu)
	for i := range out {
		out[i] += t
	}
	return out
}

func indicator(n, i int) []float64 {
	e := make([]float64, n)
	e[i] = 1
	return e
}

func TestApproximationEnrich(t *testing.T) {
	p := &stubProblem{name: "stub", mu: backends.Parameter{1, 0}}
	f := linearFactor{key: "k", modes: [][]float64{{1, 0, 0}, {0, 1, 0}}}
	a := NewApproximation(p, f, t.TempDir())
	assert.Equal(t, 0, a.N())
	assert.False(t, a.IsTimeDependent())

	require.NoError(t, a.Enrich(indicator(3, 0), 0))
	require.NoError(t, a.Enrich(indicator(3, 1), 1))
	assert.Equal(t, 2, a.N())
	assert.Equal(t, []int{0, 1}, a.MagicIndices())

	// Snapshot shape must match the established point layout.
	assert.ErrorIs(t, a.Enrich(indicator(4, 0), 0), ErrBasisShape)
	// Magic index must address a point of the snapshot.
	assert.ErrorIs(t, a.Enrich(indicator(3, 2), 3), ErrMagicIndex)
	assert.ErrorIs(t, a.Enrich(indicator(3, 2), -1), ErrMagicIndex)

	// Enrich copies; mutating the caller's snapshot leaves the basis intact.
	snap := indicator(3, 2)
	require.NoError(t, a.Enrich(snap, 2))
	snap[2] = 99
	assert.Equal(t, 1.0, a.BasisFunctions()[2][2])
}

func TestComputeInterpolatedTheta(t *testing.T) {
	// Indicator basis with matching magic indices makes the interpolation
	// system the identity, so the thetas are the coefficient values at the
	// magic points.
	p := &stubProblem{name: "stub", mu: backends.Parameter{2, 3}}
	f := linearFactor{key: "k", modes: [][]float64{{1, 0, 0}, {0, 1, 0}}}
	a := NewApproximation(p, f, t.TempDir())
	require.NoError(t, a.Enrich(indicator(3, 0), 0))
	require.NoError(t, a.Enrich(indicator(3, 1), 1))

	theta, err := a.ComputeInterpolatedTheta(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, theta)

	// Truncation keeps the leading coefficients.
	theta, err = a.ComputeInterpolatedTheta(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, theta)

	_, err = a.ComputeInterpolatedTheta(3)
	assert.ErrorIs(t, err, ErrTruncationOrder)
	_, err = a.ComputeInterpolatedTheta(-1)
	assert.ErrorIs(t, err, ErrTruncationOrder)
}

func TestTruncatedBasis(t *testing.T) {
	p := &stubProblem{name: "stub"}
	f := linearFactor{key: "k", modes: [][]float64{{1, 0}, {0, 1}}}
	a := NewApproximation(p, f, t.TempDir())
	require.NoError(t, a.Enrich(indicator(2, 0), 0))
	require.NoError(t, a.Enrich(indicator(2, 1), 1))

	full, err := a.TruncatedBasis(0)
	require.NoError(t, err)
	assert.Len(t, full, 2)

	lead, err := a.TruncatedBasis(1)
	require.NoError(t, err)
	assert.Len(t, lead, 1)
	assert.Equal(t, indicator(2, 0), lead[0])

	_, err = a.TruncatedBasis(3)
	assert.ErrorIs(t, err, ErrTruncationOrder)
}

func TestGreedyCapturesSpan(t *testing.T) {
	p := &stubProblem{name: "stub", mu: backends.Parameter{2, -1}}
	f := linearFactor{key: "k", modes: [][]float64{
		{1, 2, 0, 1},
		{0, 1, 3, -1},
	}}
	a := NewApproximation(p, f, t.TempDir())

	training := []backends.Parameter{{1, 0}, {0, 1}, {1, 1}, {2, -1}}
	N, err := Greedy(a, training, GreedyOptions{Tolerance: 1e-10, Nmax: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, N)
	assert.Equal(t, N, a.N())
	assert.Len(t, a.MagicIndices(), N)

	// The coefficient lies in a two-dimensional span, so once captured the
	// interpolant reproduces it at any parameter, including one outside the
	// training set.
	mu := backends.Parameter{5, 7}
	p.SetMu(mu)
	theta, err := a.ComputeInterpolatedTheta(0)
	require.NoError(t, err)
	want := f.Evaluate(mu)
	for i := range want {
		got := 0.0
		for j, th := range theta {
			got += th * a.BasisFunctions()[j][i]
		}
		assert.InDelta(t, want[i], got, 1e-10)
	}

	// Each basis function is normalized to one at its magic index.
	for j, m := range a.MagicIndices() {
		assert.InDelta(t, 1.0, a.BasisFunctions()[j][m], 1e-12)
	}
}

func TestGreedyArguments(t *testing.T) {
	p := &stubProblem{name: "stub"}
	f := linearFactor{key: "k", modes: [][]float64{{1, 0}}}
	a := NewApproximation(p, f, t.TempDir())

	_, err := Greedy(a, []backends.Parameter{{1}}, GreedyOptions{Nmax: 0})
	assert.Error(t, err)
	_, err = Greedy(a, nil, GreedyOptions{Nmax: 3})
	assert.Error(t, err)
}

func TestApproximationTimeDependence(t *testing.T) {
	p := &stubProblem{name: "stub", mu: backends.Parameter{1}}
	f := driftFactor{linearFactor{key: "k", modes: [][]float64{{1, 2}}}}
	a := NewApproximation(p, f, t.TempDir())
	assert.True(t, a.IsTimeDependent())

	a.SetTime(0.5)
	assert.Equal(t, []float64{1.5, 2.5}, a.Evaluate(backends.Parameter{1}))
	a.SetTime(0)
	assert.Equal(t, []float64{1, 2}, a.Evaluate(backends.Parameter{1}))
}

func TestApproximationSaveLoad(t *testing.T) {
	dir := t.TempDir()
	p := &stubProblem{name: "stub", mu: backends.Parameter{2, 3}}
	f := linearFactor{key: "k", modes: [][]float64{{1, 0, 0}, {0, 1, 0}}}

	a := NewApproximation(p, f, dir)
	require.NoError(t, a.Enrich(indicator(3, 0), 0))
	require.NoError(t, a.Enrich(indicator(3, 1), 1))
	require.NoError(t, a.Save())

	fresh := NewApproximation(p, f, dir)
	loaded, err := fresh.Load()
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, a.BasisFunctions(), fresh.BasisFunctions())
	assert.Equal(t, a.MagicIndices(), fresh.MagicIndices())

	// A populated approximation does not reload.
	loaded, err = fresh.Load()
	require.NoError(t, err)
	assert.False(t, loaded)

	// Missing folder surfaces the open error.
	empty := NewApproximation(p, f, t.TempDir())
	_, err = empty.Load()
	assert.Error(t, err)
}
