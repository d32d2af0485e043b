package cmd

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/notargets/gorom/InputParameters"
	"github.com/notargets/gorom/backends"
	"github.com/notargets/gorom/eim"
	"github.com/notargets/gorom/model_problems/gaussian"
	"github.com/notargets/gorom/online"
	"github.com/notargets/gorom/reduction"
)

// offlineCmd runs the offline stage of the reduction
var offlineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Build EIM bases and reduced operator expansions",
	Long: `
Runs the offline stage: greedy construction of one empirical interpolation
basis per non-affine coefficient factor, expansion of every separated term
into its EIM affine expansion, Galerkin projection onto a reduced basis of
truth snapshots, and persistence of the projected expansions.

gorom offline -I rom_parameters.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start(profile.CPUProfile).Stop()
		}
		inputFile, _ := cmd.Flags().GetString("input")
		rp, err := readParameters(inputFile)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		rp.Print()
		if err = runOffline(rp); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(offlineCmd)
	offlineCmd.Flags().Bool("profile", false, "write a CPU profile of the offline stage")
}

func readParameters(inputFile string) (*InputParameters.ROMParameters, error) {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return nil, err
	}
	var rp InputParameters.ROMParameters
	if err = rp.Parse(data); err != nil {
		return nil, err
	}
	if err = rp.Validate(); err != nil {
		return nil, err
	}
	return &rp, nil
}

// manifest records what the offline stage persisted, so the online stage can
// size its storages before loading them.
type manifest struct {
	GridPoints  int
	ReducedSize int
	TermSizes   map[string]int
}

const manifestFile = "manifest.gob"

func saveManifest(folder string, m manifest) error {
	f, err := os.Create(filepath.Join(folder, manifestFile))
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(m)
}

func loadManifest(folder string) (m manifest, err error) {
	f, err := os.Open(filepath.Join(folder, manifestFile))
	if err != nil {
		return
	}
	defer f.Close()
	err = gob.NewDecoder(f).Decode(&m)
	return
}

// equispaced samples n parameters along the diagonal of the box [min, max].
func equispaced(min, max []float64, n int) []backends.Parameter {
	set := make([]backends.Parameter, n)
	for i := 0; i < n; i++ {
		frac := 0.5
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		mu := make(backends.Parameter, len(min))
		for d := range mu {
			mu[d] = min[d] + frac*(max[d]-min[d])
		}
		set[i] = mu
	}
	return set
}

func runOffline(rp *InputParameters.ROMParameters) error {
	problem := gaussian.New(rp.GridPoints)
	dp, err := eim.NewDecoratedProblem(problem, rp.OutputFolder)
	if err != nil {
		return err
	}
	trainingSet := equispaced(rp.MuMin, rp.MuMax, rp.TrainingSetSize)

	// One greedy basis per unique coefficient factor.
	for key, a := range dp.Approximations() {
		N, err := eim.Greedy(a, trainingSet, eim.GreedyOptions{
			Tolerance: rp.EIMTolerance,
			Nmax:      rp.NmaxEIM,
			Verbose:   true,
		})
		if err != nil {
			return err
		}
		fmt.Printf("factor %q: built EIM basis of order %d\n", key, N)
		if err = a.Save(); err != nil {
			return err
		}
	}

	// Reduced basis from truth snapshots along the training diagonal.
	snapshots := make([][]float64, 0, rp.ReducedBasisSize)
	for _, mu := range equispaced(rp.MuMin, rp.MuMax, rp.ReducedBasisSize) {
		problem.SetMu(mu)
		u, err := problem.Solve()
		if err != nil {
			return err
		}
		snapshots = append(snapshots, u)
	}
	Z := reduction.GramSchmidt(snapshots)
	if Z == nil {
		return fmt.Errorf("offline: no independent truth snapshots")
	}
	_, reducedSize := Z.Dims()

	m := manifest{
		GridPoints:  rp.GridPoints,
		ReducedSize: reducedSize,
		TermSizes:   make(map[string]int),
	}
	for _, term := range problem.Terms() {
		ops, err := dp.AssembleOperator(term)
		if err != nil {
			return err
		}
		storage, err := reduction.ProjectExpansion(ops, Z, online.ComponentMaps{})
		if err != nil {
			return err
		}
		if err = storage.Save(rp.OutputFolder, "operator_"+term); err != nil {
			return err
		}
		m.TermSizes[term] = len(ops)
		fmt.Printf("term %q: persisted %d reduced operators\n", term, len(ops))
	}
	return saveManifest(rp.OutputFolder, m)
}
