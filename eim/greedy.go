package eim

import (
	"fmt"
	"math"

	"github.com/notargets/gorom/backends"
)

// GreedyOptions controls the offline greedy basis construction.
type GreedyOptions struct {
	// Tolerance stops enrichment once the worst interpolation residual over
	// the training set falls below it.
	Tolerance float64
	// Nmax caps the basis length.
	Nmax int
	// Verbose prints one progress line per greedy iteration.
	Verbose bool
}

// Greedy enriches the approximation basis from a training set: at every step
// the worst-approximated training parameter contributes its interpolation
// residual, normalized at its point of maximum magnitude, and that point
// becomes the new magic index. Returns the built order.
func Greedy(a *Approximation, trainingSet []backends.Parameter, opts GreedyOptions) (int, error) {
	if opts.Nmax <= 0 {
		return a.N(), fmt.Errorf("eim: greedy requires a positive Nmax, got %d", opts.Nmax)
	}
	if len(trainingSet) == 0 {
		return a.N(), fmt.Errorf("eim: greedy requires a non-empty training set")
	}
	for a.N() < opts.Nmax {
		var (
			worstErr      = -1.0
			worstResidual []float64
			worstIndex    int
		)
		for _, mu := range trainingSet {
			r, err := a.interpolationResidual(a.Evaluate(mu))
			if err != nil {
				return a.N(), err
			}
			e, ind := maxAbs(r)
			if e > worstErr {
				worstErr, worstResidual, worstIndex = e, r, ind
			}
		}
		if opts.Verbose {
			fmt.Printf("EIM greedy N = %d, max residual = %g\n", a.N(), worstErr)
		}
		if worstErr <= opts.Tolerance {
			break
		}
		pivot := worstResidual[worstIndex]
		for i := range worstResidual {
			worstResidual[i] /= pivot
		}
		if err := a.Enrich(worstResidual, worstIndex); err != nil {
			return a.N(), err
		}
	}
	return a.N(), nil
}

func maxAbs(r []float64) (val float64, ind int) {
	for i, x := range r {
		if a := math.Abs(x); a > val {
			val, ind = a, i
		}
	}
	return
}
