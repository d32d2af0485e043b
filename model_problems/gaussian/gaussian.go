// Package gaussian is a non-affine model problem for the EIM pipeline:
// steady diffusion -d/dx(kappa(x;mu) du/dx) = mu_1 on the unit interval with
// homogeneous Dirichlet ends, where kappa is a base conductivity plus a
// Gaussian bump centered at mu_0. The bump makes the stiffness term
// non-affine in the parameter; its separated form has one addend with one
// parametrized factor plus one unchanged base-conductivity addend.
package gaussian

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/backends"
)

type Problem struct {
	n      int       // interior unknowns
	x      []float64 // n+2 node coordinates including both ends
	h      float64
	kappa0 float64
	sigma  float64
	mu     backends.Parameter
}

// New builds the problem with n interior grid points. The parameter is
// (bump center, load scaling).
func New(n int) *Problem {
	var (
		h = 1.0 / float64(n+1)
		x = make([]float64, n+2)
	)
	for i := range x {
		x[i] = float64(i) * h
	}
	return &Problem{
		n:      n,
		x:      x,
		h:      h,
		kappa0: 1.0,
		sigma:  0.1,
		mu:     backends.Parameter{0.5, 1.0},
	}
}

func (p *Problem) Name() string                { return "gaussian" }
func (p *Problem) Terms() []string             { return []string{"a", "f"} }
func (p *Problem) Mu() backends.Parameter      { return p.mu }
func (p *Problem) SetMu(mu backends.Parameter) { p.mu = mu }

// Nodes returns the truth evaluation points, boundary nodes included.
func (p *Problem) Nodes() []float64 { return p.x }

// bump is the non-affine coefficient factor.
type bump struct {
	x     []float64
	sigma float64
}

func (b bump) Key() string {
	return fmt.Sprintf("gaussian_bump_sigma=%g", b.sigma)
}

func (b bump) Evaluate(mu backends.Parameter) []float64 {
	var (
		out = make([]float64, len(b.x))
		s2  = 2 * b.sigma * b.sigma
	)
	for i, xi := range b.x {
		d := xi - mu[0]
		out[i] = math.Exp(-d * d / s2)
	}
	return out
}

// Coefficient returns the parametrized bump factor of term "a".
func (p *Problem) Coefficient() backends.ParametrizedExpression {
	return bump{x: p.x, sigma: p.sigma}
}

// assembleStiffness builds the finite difference stiffness matrix for nodal
// conductivity w (length n+2), with interface values averaged from the
// neighboring nodes.
func (p *Problem) assembleStiffness(w []float64) backends.Operator {
	var (
		dok = sparse.NewDOK(p.n, p.n)
		h2  = p.h * p.h
	)
	for i := 0; i < p.n; i++ {
		wl := 0.5 * (w[i] + w[i+1])
		wr := 0.5 * (w[i+1] + w[i+2])
		dok.Set(i, i, (wl+wr)/h2)
		if i > 0 {
			dok.Set(i, i-1, -wl/h2)
		}
		if i < p.n-1 {
			dok.Set(i, i+1, -wr/h2)
		}
	}
	return dok.ToCSR()
}

func (p *Problem) constantField(val float64) []float64 {
	w := make([]float64, p.n+2)
	for i := range w {
		w[i] = val
	}
	return w
}

// kappaField is the full conductivity at the current parameter.
func (p *Problem) kappaField() []float64 {
	var (
		w = p.Coefficient().Evaluate(p.mu)
	)
	for i := range w {
		w[i] += p.kappa0
	}
	return w
}

// AssembleOperator returns the term's operators. Term "a" is non-affine: its
// single operator is assembled at the current parameter, which is exactly
// what the EIM expansion replaces.
func (p *Problem) AssembleOperator(term string) ([]backends.Operator, error) {
	switch term {
	case "a":
		return []backends.Operator{p.assembleStiffness(p.kappaField())}, nil
	case "f":
		load := make([]float64, p.n)
		for i := range load {
			load[i] = 1.0
		}
		return []backends.Operator{mat.NewVecDense(p.n, load)}, nil
	}
	return nil, fmt.Errorf("%w: %q", backends.ErrInvalidTerm, term)
}

func (p *Problem) ComputeTheta(term string) ([]float64, error) {
	switch term {
	case "a":
		return []float64{1.0}, nil
	case "f":
		return []float64{p.mu[1]}, nil
	}
	return nil, fmt.Errorf("%w: %q", backends.ErrInvalidTerm, term)
}

// SeparatedForms splits term "a" into the bump addend and the unchanged base
// conductivity addend; term "f" is already affine and stays unseparated.
func (p *Problem) SeparatedForms(term string) ([]backends.SeparatedForm, error) {
	switch term {
	case "a":
		return []backends.SeparatedForm{stiffnessForm{p: p}}, nil
	case "f":
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", backends.ErrInvalidTerm, term)
}

// stiffnessForm is the separated form of term "a".
type stiffnessForm struct {
	p *Problem
}

func (f stiffnessForm) Coefficients() [][]backends.ParametrizedExpression {
	return [][]backends.ParametrizedExpression{{f.p.Coefficient()}}
}

func (f stiffnessForm) PlaceholderNames(addend int) []string {
	return []string{"gaussian_bump"}
}

func (f stiffnessForm) ReplacePlaceholders(addend int, substitutes [][]float64) (backends.Operator, error) {
	if addend != 0 || len(substitutes) != 1 {
		return nil, fmt.Errorf("gaussian: term a has one addend with one placeholder")
	}
	if len(substitutes[0]) != f.p.n+2 {
		return nil, fmt.Errorf("gaussian: substitute has %d points, grid has %d",
			len(substitutes[0]), f.p.n+2)
	}
	return f.p.assembleStiffness(substitutes[0]), nil
}

func (f stiffnessForm) UnchangedOperators() ([]backends.Operator, error) {
	return []backends.Operator{f.p.assembleStiffness(f.p.constantField(f.p.kappa0))}, nil
}

func (f stiffnessForm) UnchangedCount() int { return 1 }

// Solve computes the truth solution at the current parameter.
func (p *Problem) Solve() ([]float64, error) {
	ops, err := p.AssembleOperator("a")
	if err != nil {
		return nil, err
	}
	rhs, err := p.AssembleOperator("f")
	if err != nil {
		return nil, err
	}
	thetaF, err := p.ComputeTheta("f")
	if err != nil {
		return nil, err
	}
	var (
		b  = mat.NewVecDense(p.n, nil)
		u  = mat.NewVecDense(p.n, nil)
		lu mat.LU
	)
	for i := 0; i < p.n; i++ {
		b.SetVec(i, thetaF[0]*rhs[0].At(i, 0))
	}
	lu.Factorize(ops[0])
	if err = lu.SolveVecTo(u, false, b); err != nil {
		return nil, fmt.Errorf("gaussian: truth solve failed: %w", err)
	}
	out := make([]float64, p.n)
	copy(out, u.RawVector().Data)
	return out, nil
}
