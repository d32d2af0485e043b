package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exampleInput = `
Title: "Gaussian EIM"
GridPoints: 50
MuMin: [0.25, 0.5]
MuMax: [0.75, 2.0]
TrainingSetSize: 40
EIMTolerance: 1.e-6
NmaxEIM: 20
ReducedBasisSize: 10
OutputFolder: "rom_data"
`

func TestParse(t *testing.T) {
	var rp ROMParameters
	require.NoError(t, rp.Parse([]byte(exampleInput)))
	assert.Equal(t, "Gaussian EIM", rp.Title)
	assert.Equal(t, 50, rp.GridPoints)
	assert.Equal(t, []float64{0.25, 0.5}, rp.MuMin)
	assert.Equal(t, []float64{0.75, 2.0}, rp.MuMax)
	assert.Equal(t, 40, rp.TrainingSetSize)
	assert.Equal(t, 1.e-6, rp.EIMTolerance)
	assert.Equal(t, 20, rp.NmaxEIM)
	assert.Equal(t, 10, rp.ReducedBasisSize)
	assert.Equal(t, "rom_data", rp.OutputFolder)
	require.NoError(t, rp.Validate())
}

func TestValidate(t *testing.T) {
	var rp ROMParameters
	require.NoError(t, rp.Parse([]byte(exampleInput)))

	rp.GridPoints = 0
	assert.Error(t, rp.Validate())
	rp.GridPoints = 50

	rp.MuMin = []float64{0.25}
	assert.Error(t, rp.Validate())
	rp.MuMin = []float64{0.25, 0.5}

	rp.TrainingSetSize = -1
	assert.Error(t, rp.Validate())
	rp.TrainingSetSize = 40

	rp.NmaxEIM = 0
	assert.Error(t, rp.Validate())
	rp.NmaxEIM = 20

	rp.ReducedBasisSize = 0
	assert.Error(t, rp.Validate())
}
