package gaussian

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/backends"
	"github.com/notargets/gorom/eim"
	"github.com/notargets/gorom/online"
	"github.com/notargets/gorom/reduction"
)

func TestProblemContract(t *testing.T) {
	p := New(9)
	assert.Equal(t, "gaussian", p.Name())
	assert.Equal(t, []string{"a", "f"}, p.Terms())
	assert.Len(t, p.Nodes(), 11)
	assert.Equal(t, backends.Parameter{0.5, 1.0}, p.Mu())

	thetas, err := p.ComputeTheta("f")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, thetas)
	p.SetMu(backends.Parameter{0.5, 3.0})
	thetas, err = p.ComputeTheta("f")
	require.NoError(t, err)
	assert.Equal(t, []float64{3.0}, thetas)

	_, err = p.AssembleOperator("nope")
	assert.ErrorIs(t, err, backends.ErrInvalidTerm)
	_, err = p.ComputeTheta("nope")
	assert.ErrorIs(t, err, backends.ErrInvalidTerm)
	_, err = p.SeparatedForms("nope")
	assert.ErrorIs(t, err, backends.ErrInvalidTerm)

	// Term "f" is already affine and stays unseparated.
	forms, err := p.SeparatedForms("f")
	require.NoError(t, err)
	assert.Empty(t, forms)
}

func TestBumpCoefficient(t *testing.T) {
	p := New(9) // nodes at 0, 0.1, ..., 1
	w := p.Coefficient().Evaluate(backends.Parameter{0.5, 1.0})
	require.Len(t, w, 11)
	assert.InDelta(t, 1.0, w[5], 1e-15)
	assert.InDelta(t, w[4], w[6], 1e-15)
	assert.Less(t, w[0], 1e-4)

	// Factor identity is parameter independent.
	assert.Equal(t, p.Coefficient().Key(), p.Coefficient().Key())
}

func TestSeparatedFormContract(t *testing.T) {
	p := New(9)
	forms, err := p.SeparatedForms("a")
	require.NoError(t, err)
	require.Len(t, forms, 1)
	form := forms[0]

	addends := form.Coefficients()
	require.Len(t, addends, 1)
	require.Len(t, addends[0], 1)
	assert.Equal(t, []string{"gaussian_bump"}, form.PlaceholderNames(0))
	assert.Equal(t, 1, form.UnchangedCount())

	unchanged, err := form.UnchangedOperators()
	require.NoError(t, err)
	assert.Len(t, unchanged, 1)

	// Substitutes must cover every grid node.
	_, err = form.ReplacePlaceholders(0, [][]float64{{1, 2, 3}})
	assert.Error(t, err)
	_, err = form.ReplacePlaceholders(1, [][]float64{make([]float64, 11)})
	assert.Error(t, err)
}

func TestTruthSolve(t *testing.T) {
	p := New(19)
	u, err := p.Solve()
	require.NoError(t, err)
	require.Len(t, u, 19)
	// Positive load and positive conductivity give a positive solution.
	for i, ui := range u {
		assert.Greater(t, ui, 0.0, "node %d", i)
	}

	// Doubling the load scaling doubles the solution.
	p.SetMu(backends.Parameter{0.5, 2.0})
	u2, err := p.Solve()
	require.NoError(t, err)
	for i := range u {
		assert.InDelta(t, 2*u[i], u2[i], 1e-10)
	}
}

// enrichAtCenters seeds the bump surrogate with exact coefficient snapshots
// at grid-aligned centers, taking each center's node as the magic index. A
// parameter sitting exactly on an enriched center is then interpolated
// exactly, which turns the expanded stiffness into the truth stiffness up to
// roundoff.
func enrichAtCenters(t *testing.T, p *Problem, a *eim.Approximation, centers []float64) {
	t.Helper()
	for _, c := range centers {
		snap := p.Coefficient().Evaluate(backends.Parameter{c, 1.0})
		magic := int(c/p.h + 0.5)
		require.NoError(t, a.Enrich(snap, magic))
	}
}

func TestExpandedStiffnessMatchesTruth(t *testing.T) {
	p := New(9)
	dp, err := eim.NewDecoratedProblem(p, t.TempDir())
	require.NoError(t, err)
	a := dp.Approximation(p.Coefficient())
	require.NotNil(t, a)
	enrichAtCenters(t, p, a, []float64{0.3, 0.5, 0.7})

	p.SetMu(backends.Parameter{0.5, 2.0})
	ops, err := dp.AssembleOperator("a")
	require.NoError(t, err)
	thetas, err := dp.ComputeTheta("a")
	require.NoError(t, err)
	require.Len(t, ops, 4) // 3 bump operators + 1 unchanged
	require.Len(t, thetas, 4)

	// At the enriched center the interpolant hits the second basis function.
	assert.InDelta(t, 0.0, thetas[0], 1e-10)
	assert.InDelta(t, 1.0, thetas[1], 1e-10)
	assert.InDelta(t, 0.0, thetas[2], 1e-10)
	assert.InDelta(t, 1.0, thetas[3], 1e-12)

	sum := mat.NewDense(9, 9, nil)
	for q, op := range ops {
		for i := 0; i < 9; i++ {
			for j := 0; j < 9; j++ {
				sum.Set(i, j, sum.At(i, j)+thetas[q]*op.At(i, j))
			}
		}
	}
	truth, err := p.AssembleOperator("a")
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		for j := 0; j < 9; j++ {
			assert.InDelta(t, truth[0].At(i, j), sum.At(i, j), 1e-9)
		}
	}
}

func TestReducedSolveReproducesSnapshot(t *testing.T) {
	var (
		n       = 19 // h = 0.05
		centers = []float64{0.3, 0.45, 0.6}
	)
	p := New(n)
	dp, err := eim.NewDecoratedProblem(p, t.TempDir())
	require.NoError(t, err)
	enrichAtCenters(t, p, dp.Approximation(p.Coefficient()), centers)

	// Truth snapshots at the same centers build the reduced basis.
	var snapshots [][]float64
	for _, c := range centers {
		p.SetMu(backends.Parameter{c, 1.0})
		u, err := p.Solve()
		require.NoError(t, err)
		snapshots = append(snapshots, u)
	}
	Z := reduction.GramSchmidt(snapshots)
	require.NotNil(t, Z)
	_, nReduced := Z.Dims()
	require.Equal(t, 3, nReduced)

	p.SetMu(backends.Parameter{0.45, 1.0})
	opsA, err := dp.AssembleOperator("a")
	require.NoError(t, err)
	storageA, err := reduction.ProjectExpansion(opsA, Z, online.ComponentMaps{})
	require.NoError(t, err)
	opsF, err := dp.AssembleOperator("f")
	require.NoError(t, err)
	storageF, err := reduction.ProjectExpansion(opsF, Z, online.ComponentMaps{})
	require.NoError(t, err)

	thetasA, err := dp.ComputeTheta("a")
	require.NoError(t, err)
	thetasF, err := dp.ComputeTheta("f")
	require.NoError(t, err)
	Ared, err := reduction.AssembleReducedMatrix(storageA, thetasA)
	require.NoError(t, err)
	Fred, err := reduction.AssembleReducedVector(storageF, thetasF)
	require.NoError(t, err)

	var lu mat.LU
	lu.Factorize(Ared.M)
	uN := mat.NewVecDense(nReduced, nil)
	require.NoError(t, lu.SolveVecTo(uN, false, Fred.V))
	uReduced := mat.NewVecDense(n, nil)
	uReduced.MulVec(Z, uN)

	// The test parameter is both an enriched center (exact interpolation)
	// and a snapshot parameter (truth solution in the reduced space), so the
	// reduced solution reproduces the truth one.
	uTruth, err := p.Solve()
	require.NoError(t, err)
	for i := range uTruth {
		assert.InDelta(t, uTruth[i], uReduced.AtVec(i), 1e-8)
	}
}

func TestGreedyOnBump(t *testing.T) {
	p := New(19)
	dp, err := eim.NewDecoratedProblem(p, t.TempDir())
	require.NoError(t, err)
	a := dp.Approximation(p.Coefficient())
	require.NotNil(t, a)

	var training []backends.Parameter
	for i := 0; i <= 25; i++ {
		training = append(training, backends.Parameter{0.25 + 0.02*float64(i), 1.0})
	}
	N, err := eim.Greedy(a, training, eim.GreedyOptions{Tolerance: 1e-3, Nmax: 15})
	require.NoError(t, err)
	assert.Greater(t, N, 0)
	assert.LessOrEqual(t, N, 15)

	// Expansion lengths stay in lock-step after a real greedy run.
	p.SetMu(backends.Parameter{0.47, 1.0})
	ops, err := dp.AssembleOperator("a")
	require.NoError(t, err)
	thetas, err := dp.ComputeTheta("a")
	require.NoError(t, err)
	assert.Equal(t, len(ops), len(thetas))
	assert.Equal(t, N+1, len(ops))
}
