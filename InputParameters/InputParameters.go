package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type ROMParameters struct {
	Title            string    `yaml:"Title"`
	GridPoints       int       `yaml:"GridPoints"`
	MuMin            []float64 `yaml:"MuMin"`
	MuMax            []float64 `yaml:"MuMax"`
	TrainingSetSize  int       `yaml:"TrainingSetSize"`
	EIMTolerance     float64   `yaml:"EIMTolerance"`
	NmaxEIM          int       `yaml:"NmaxEIM"`
	ReducedBasisSize int       `yaml:"ReducedBasisSize"`
	OutputFolder     string    `yaml:"OutputFolder"`
}

func (rp *ROMParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, rp)
}

func (rp *ROMParameters) Validate() error {
	if rp.GridPoints <= 0 {
		return fmt.Errorf("GridPoints must be positive, got %d", rp.GridPoints)
	}
	if len(rp.MuMin) != len(rp.MuMax) {
		return fmt.Errorf("MuMin and MuMax must have equal length: %d vs %d",
			len(rp.MuMin), len(rp.MuMax))
	}
	if rp.TrainingSetSize <= 0 {
		return fmt.Errorf("TrainingSetSize must be positive, got %d", rp.TrainingSetSize)
	}
	if rp.NmaxEIM <= 0 {
		return fmt.Errorf("NmaxEIM must be positive, got %d", rp.NmaxEIM)
	}
	if rp.ReducedBasisSize <= 0 {
		return fmt.Errorf("ReducedBasisSize must be positive, got %d", rp.ReducedBasisSize)
	}
	return nil
}

func (rp *ROMParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", rp.Title)
	fmt.Printf("%d\t\t\t= GridPoints\n", rp.GridPoints)
	fmt.Printf("%v\t= Mu Range (min)\n", rp.MuMin)
	fmt.Printf("%v\t= Mu Range (max)\n", rp.MuMax)
	fmt.Printf("%d\t\t\t= TrainingSetSize\n", rp.TrainingSetSize)
	fmt.Printf("%8.2e\t\t= EIMTolerance\n", rp.EIMTolerance)
	fmt.Printf("%d\t\t\t= NmaxEIM\n", rp.NmaxEIM)
	fmt.Printf("%d\t\t\t= ReducedBasisSize\n", rp.ReducedBasisSize)
	fmt.Printf("[%s]\t\t= OutputFolder\n", rp.OutputFolder)
}
