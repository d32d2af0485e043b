package reduction

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// GramSchmidt orthonormalizes truth snapshots (one per column of the result)
// with the modified Gram-Schmidt procedure, dropping snapshots that are
// numerically dependent on the ones already kept. The result is the reduced
// basis matrix Z, truth dimension x kept snapshots.
func GramSchmidt(snapshots [][]float64) *mat.Dense {
	const dropTol = 1e-12
	var kept [][]float64
	for _, snap := range snapshots {
		v := make([]float64, len(snap))
		copy(v, snap)
		for _, b := range kept {
			var dot float64
			for i := range v {
				dot += v[i] * b[i]
			}
			for i := range v {
				v[i] -= dot * b[i]
			}
		}
		var norm float64
		for _, x := range v {
			norm += x * x
		}
		norm = math.Sqrt(norm)
		if norm < dropTol {
			continue
		}
		for i := range v {
			v[i] /= norm
		}
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		return nil
	}
	var (
		n = len(kept[0])
		Z = mat.NewDense(n, len(kept), nil)
	)
	for j, b := range kept {
		for i := 0; i < n; i++ {
			Z.Set(i, j, b[i])
		}
	}
	return Z
}
