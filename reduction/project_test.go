package reduction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/backends"
	"github.com/notargets/gorom/online"
)

func TestProjectOperatorMatrix(t *testing.T) {
	// Basis picking the first two truth coordinates makes the projection the
	// leading 2x2 block of the operator.
	Z := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		0, 0,
	})
	A := mat.NewDense(3, 3, []float64{
		4, 1, 7,
		1, 5, 8,
		7, 8, 6,
	})

	val, err := ProjectOperator(A, Z)
	require.NoError(t, err)
	m, ok := val.Matrix()
	require.True(t, ok)
	assert.Equal(t, []float64{4, 1, 1, 5}, m.RawMatrix().Data)

	// Shape mismatch.
	_, err = ProjectOperator(mat.NewDense(4, 4, nil), Z)
	assert.ErrorIs(t, err, ErrOperatorShape)
}

func TestProjectOperatorVector(t *testing.T) {
	Z := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		0, 0,
	})
	F := mat.NewVecDense(3, []float64{2, -3, 9})

	val, err := ProjectOperator(F, Z)
	require.NoError(t, err)
	v, ok := val.Vector()
	require.True(t, ok)
	assert.Equal(t, []float64{2, -3}, v.RawVector().Data)

	_, err = ProjectOperator(mat.NewVecDense(4, nil), Z)
	assert.ErrorIs(t, err, ErrOperatorShape)
}

func TestProjectExpansion(t *testing.T) {
	Z := mat.NewDense(2, 1, []float64{1, 0})
	ops := []backends.Operator{
		mat.NewDense(2, 2, []float64{3, 0, 0, 1}),
		mat.NewDense(2, 2, []float64{-2, 0, 0, 1}),
	}
	maps := online.ComponentMaps{
		IndexToName:  map[int]string{0: "u"},
		NameToIndex:  map[string]int{"u": 0},
		NameToLength: map[string]int{"u": 1},
	}

	storage, err := ProjectExpansion(ops, Z, maps)
	require.NoError(t, err)
	assert.Equal(t, 2, storage.Len())
	assert.Equal(t, online.MatrixKind, storage.ContentKind())
	assert.True(t, storage.ComponentMaps().Equal(maps))

	item, err := storage.At(1)
	require.NoError(t, err)
	m, _ := item.Matrix()
	assert.Equal(t, -2.0, m.At(0, 0))
}

func TestAssembleReducedMatrix(t *testing.T) {
	storage, err := online.NewAffineExpansionStorage(2)
	require.NoError(t, err)
	require.NoError(t, storage.Set(online.MatrixValue(
		online.NewMatrix(2, 2, []float64{1, 0, 0, 1})), 0))
	require.NoError(t, storage.Set(online.MatrixValue(
		online.NewMatrix(2, 2, []float64{0, 1, 1, 0})), 1))

	R, err := AssembleReducedMatrix(storage, []float64{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 3, 2}, R.RawMatrix().Data)

	_, err = AssembleReducedMatrix(storage, []float64{1})
	assert.ErrorIs(t, err, ErrExpansionMismatch)
}

func TestAssembleReducedVector(t *testing.T) {
	storage, err := online.NewAffineExpansionStorage(2)
	require.NoError(t, err)
	require.NoError(t, storage.Set(online.VectorValue(
		online.NewVector(2, []float64{1, 0})), 0))
	require.NoError(t, storage.Set(online.VectorValue(
		online.NewVector(2, []float64{0, 1})), 1))

	R, err := AssembleReducedVector(storage, []float64{-1, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 4}, R.RawVector().Data)

	_, err = AssembleReducedVector(storage, nil)
	assert.ErrorIs(t, err, ErrExpansionMismatch)
}

func TestGramSchmidt(t *testing.T) {
	Z := GramSchmidt([][]float64{
		{2, 0, 0},
		{1, 1, 0},
		{3, 1, 0}, // dependent on the first two
	})
	require.NotNil(t, Z)
	nr, nc := Z.Dims()
	assert.Equal(t, 3, nr)
	assert.Equal(t, 2, nc)

	// Columns are orthonormal.
	for j := 0; j < nc; j++ {
		for k := j; k < nc; k++ {
			var dot float64
			for i := 0; i < nr; i++ {
				dot += Z.At(i, j) * Z.At(i, k)
			}
			want := 0.0
			if j == k {
				want = 1.0
			}
			assert.InDelta(t, want, dot, 1e-12)
		}
	}

	assert.Nil(t, GramSchmidt(nil))
	assert.Nil(t, GramSchmidt([][]float64{{0, 0, 0}}))
}
