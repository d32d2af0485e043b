package eim

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/notargets/gorom/backends"
)

// DecoratedProblem wraps a truth problem and makes its AssembleOperator /
// ComputeTheta transparently EIM-aware: terms with separated forms are
// expanded over the per-factor interpolation bases, everything else falls
// through to the underlying problem. One Approximation per unique factor
// identity is owned by the instance and shared across all terms and addends
// referencing that factor.
type DecoratedProblem struct {
	backends.TruthProblem

	separatedForms map[string][]backends.SeparatedForm
	approximations map[string]*Approximation
	nEIM           map[string][]int // per-term truncation orders; nil means full order
}

// NewDecoratedProblem separates every term of the problem and creates (or
// reuses, keyed by factor identity) one EIM approximation per parametrized
// coefficient factor. Approximation folders live under
// folder/<problem name>/eim/<placeholder name>. A problem that is not
// separable decorates to a transparent pass-through.
func NewDecoratedProblem(problem backends.TruthProblem, folder string) (*DecoratedProblem, error) {
	dp := &DecoratedProblem{
		TruthProblem:   problem,
		separatedForms: make(map[string][]backends.SeparatedForm),
		approximations: make(map[string]*Approximation),
	}
	sp, ok := problem.(backends.SeparableProblem)
	if !ok {
		return dp, nil
	}
	for _, term := range problem.Terms() {
		forms, err := sp.SeparatedForms(term)
		if err != nil {
			if errors.Is(err, backends.ErrInvalidTerm) {
				// Optional terms (e.g. output functionals) may be undefined.
				continue
			}
			return nil, err
		}
		if len(forms) == 0 {
			continue
		}
		dp.separatedForms[term] = forms
		for _, form := range forms {
			for addendIndex, addend := range form.Coefficients() {
				names := form.PlaceholderNames(addendIndex)
				if len(names) != len(addend) {
					return nil, fmt.Errorf("eim: term %q: %d placeholders for %d factors",
						term, len(names), len(addend))
				}
				for i, factor := range addend {
					if _, seen := dp.approximations[factor.Key()]; seen {
						continue
					}
					subfolder := filepath.Join(folder, problem.Name(), "eim", names[i])
					dp.approximations[factor.Key()] = NewApproximation(problem, factor, subfolder)
				}
			}
		}
	}
	return dp, nil
}

// Approximation returns the surrogate shared by every occurrence of the
// factor, or nil when the factor never appears in a separated form.
func (dp *DecoratedProblem) Approximation(factor backends.ParametrizedExpression) *Approximation {
	return dp.approximations[factor.Key()]
}

// Approximations returns the per-factor surrogates keyed by factor identity,
// for offline basis construction and persistence.
func (dp *DecoratedProblem) Approximations() map[string]*Approximation {
	return dp.approximations
}

// SeparatedTerms lists the terms that will be EIM-expanded.
func (dp *DecoratedProblem) SeparatedTerms() []string {
	terms := make([]string, 0, len(dp.separatedForms))
	for _, term := range dp.TruthProblem.Terms() {
		if _, ok := dp.separatedForms[term]; ok {
			terms = append(terms, term)
		}
	}
	return terms
}

// SetTime forwards the time argument to every time-dependent approximation.
func (dp *DecoratedProblem) SetTime(t float64) {
	for _, a := range dp.approximations {
		if a.IsTimeDependent() {
			a.SetTime(t)
		}
	}
}

// SetEIMOrder truncates every interpolation uniformly at order N; N == 0
// restores the full built order.
func (dp *DecoratedProblem) SetEIMOrder(N int) {
	if N == 0 {
		dp.nEIM = nil
		return
	}
	dp.nEIM = make(map[string][]int, len(dp.separatedForms))
	for term, forms := range dp.separatedForms {
		orders := make([]int, len(forms))
		for q := range orders {
			orders[q] = N
		}
		dp.nEIM[term] = orders
	}
}

// SetEIMOrders truncates per term, with exactly one order per separated form
// of that term.
func (dp *DecoratedProblem) SetEIMOrders(orders map[string][]int) error {
	for term, forms := range dp.separatedForms {
		termOrders, ok := orders[term]
		if !ok {
			return fmt.Errorf("%w: no orders for term %q", ErrTruncationLength, term)
		}
		if len(termOrders) != len(forms) {
			return fmt.Errorf("%w: term %q has %d forms, got %d orders",
				ErrTruncationLength, term, len(forms), len(termOrders))
		}
	}
	dp.nEIM = orders
	return nil
}

// AssembleOperator returns the term's EIM-expanded operator list when the
// term was separated, and falls through to the truth problem otherwise (which
// may itself fail with ErrInvalidTerm).
func (dp *DecoratedProblem) AssembleOperator(term string) ([]backends.Operator, error) {
	if _, ok := dp.separatedForms[term]; ok {
		return dp.assembleOperatorEIM(term)
	}
	return dp.TruthProblem.AssembleOperator(term)
}

// assembleOperatorEIM is the offline pass: per form, per addend, the
// cartesian product (first factor outermost) of the per-factor basis
// functions is substituted into the integrand template, one operator per
// tuple, followed by the form's unchanged operators in original order. An
// active truncation shortens every factor's basis exactly as it shortens the
// online theta lists, keeping the two expansions in lock-step.
func (dp *DecoratedProblem) assembleOperatorEIM(term string) ([]backends.Operator, error) {
	var (
		ops   []backends.Operator
		nTerm []int
	)
	if dp.nEIM != nil {
		nTerm = dp.nEIM[term]
	}
	for q, form := range dp.separatedForms[term] {
		for addendIndex, addend := range form.Coefficients() {
			replacements := make([][][]float64, len(addend))
			for i, factor := range addend {
				N := 0
				if nTerm != nil {
					N = nTerm[q]
				}
				basis, err := dp.approximations[factor.Key()].TruncatedBasis(N)
				if err != nil {
					return nil, err
				}
				replacements[i] = basis
			}
			err := product(replacements, func(tuple [][]float64) error {
				op, err := form.ReplacePlaceholders(addendIndex, tuple)
				if err != nil {
					return err
				}
				ops = append(ops, op)
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
		unchanged, err := form.UnchangedOperators()
		if err != nil {
			return nil, err
		}
		ops = append(ops, unchanged...)
	}
	return ops, nil
}

// ExpansionIndices returns, for every entry of the term's current (possibly
// truncated) expansion, its position in the full-order expansion. A truncated
// theta list scattered to these positions, zeros elsewhere, combines a
// persisted full-order operator expansion into the truncated reduced system.
// Unseparated terms map to the identity.
func (dp *DecoratedProblem) ExpansionIndices(term string) ([]int, error) {
	forms, ok := dp.separatedForms[term]
	if !ok {
		thetas, err := dp.TruthProblem.ComputeTheta(term)
		if err != nil {
			return nil, err
		}
		idx := make([]int, len(thetas))
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}
	var nTerm []int
	if dp.nEIM != nil {
		var ok bool
		if nTerm, ok = dp.nEIM[term]; !ok {
			return nil, fmt.Errorf("%w: no orders for term %q", ErrTruncationLength, term)
		}
	}
	var (
		idx    []int
		offset int
	)
	for q, form := range forms {
		for _, addend := range form.Coefficients() {
			full := make([]int, len(addend))
			kept := make([][]int, len(addend))
			for i, factor := range addend {
				a := dp.approximations[factor.Key()]
				full[i] = a.N()
				N := full[i]
				if nTerm != nil {
					N = nTerm[q]
					if N > full[i] {
						return nil, fmt.Errorf("%w: requested %d, built %d",
							ErrTruncationOrder, N, full[i])
					}
				}
				kept[i] = make([]int, N)
				for k := range kept[i] {
					kept[i][k] = k
				}
			}
			fullCount := 1
			for _, Q := range full {
				fullCount *= Q
			}
			err := product(kept, func(tuple []int) error {
				// Mixed-radix position of the tuple within the full product.
				pos := 0
				for i, k := range tuple {
					pos = pos*full[i] + k
				}
				idx = append(idx, offset+pos)
				return nil
			})
			if err != nil {
				return nil, err
			}
			offset += fullCount
		}
		for u := 0; u < form.UnchangedCount(); u++ {
			idx = append(idx, offset+u)
		}
		offset += form.UnchangedCount()
	}
	return idx, nil
}

// ComputeTheta returns the term's EIM-expanded theta list when the term was
// separated, and falls through to the truth problem otherwise. The expanded
// list always matches the offline operator list entry by entry.
func (dp *DecoratedProblem) ComputeTheta(term string) ([]float64, error) {
	if _, ok := dp.separatedForms[term]; ok {
		return dp.computeThetaEIM(term)
	}
	return dp.TruthProblem.ComputeTheta(term)
}

// computeThetaEIM is the online pass, kept in lock-step with
// assembleOperatorEIM: per form, per addend, the cartesian product of the
// per-factor interpolated thetas scales the form's original theta, followed
// by one original theta per unchanged addend.
func (dp *DecoratedProblem) computeThetaEIM(term string) ([]float64, error) {
	originalThetas, err := dp.TruthProblem.ComputeTheta(term)
	if err != nil {
		return nil, err
	}
	forms := dp.separatedForms[term]
	if len(originalThetas) != len(forms) {
		return nil, fmt.Errorf("%w: term %q has %d forms, %d original thetas",
			ErrFormCount, term, len(forms), len(originalThetas))
	}
	var nTerm []int
	if dp.nEIM != nil {
		var ok bool
		if nTerm, ok = dp.nEIM[term]; !ok {
			return nil, fmt.Errorf("%w: no orders for term %q", ErrTruncationLength, term)
		}
		if len(nTerm) != len(forms) {
			return nil, fmt.Errorf("%w: term %q has %d forms, got %d orders",
				ErrTruncationLength, term, len(forms), len(nTerm))
		}
	}
	var thetas []float64
	for q, form := range forms {
		for _, addend := range form.Coefficients() {
			factorThetas := make([][]float64, len(addend))
			for i, factor := range addend {
				N := 0
				if nTerm != nil {
					N = nTerm[q]
				}
				interpolated, err := dp.approximations[factor.Key()].ComputeInterpolatedTheta(N)
				if err != nil {
					return nil, err
				}
				factorThetas[i] = interpolated
			}
			err := product(factorThetas, func(tuple []float64) error {
				theta := originalThetas[q]
				for _, t := range tuple {
					theta *= t
				}
				thetas = append(thetas, theta)
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
		for range form.UnchangedCount() {
			thetas = append(thetas, originalThetas[q])
		}
	}
	return thetas, nil
}
