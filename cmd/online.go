package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/InputParameters"
	"github.com/notargets/gorom/backends"
	"github.com/notargets/gorom/eim"
	"github.com/notargets/gorom/model_problems/gaussian"
	"github.com/notargets/gorom/online"
	"github.com/notargets/gorom/reduction"
)

// onlineCmd evaluates the reduced model at one parameter
var onlineCmd = &cobra.Command{
	Use:   "online",
	Short: "Evaluate the reduced model at a parameter",
	Long: `
Loads the persisted reduced operator expansions and interpolation bases,
computes the EIM-expanded theta coefficients at the requested parameter,
assembles the reduced system and solves it.

gorom online -I rom_parameters.yaml --mu 0.4,1.0`,
	Run: func(cmd *cobra.Command, args []string) {
		inputFile, _ := cmd.Flags().GetString("input")
		rp, err := readParameters(inputFile)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		muFlag, _ := cmd.Flags().GetFloat64Slice("mu")
		nEIM, _ := cmd.Flags().GetInt("N")
		if err = runOnline(rp, backends.Parameter(muFlag), nEIM); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(onlineCmd)
	onlineCmd.Flags().Float64Slice("mu", []float64{0.5, 1.0}, "parameter value")
	onlineCmd.Flags().Int("N", 0, "EIM truncation order, 0 = full built order")
}

// expandedThetas computes the term's theta list and scatters it to the
// full-order expansion positions, so that a truncated run still combines the
// persisted full-order reduced operators.
func expandedThetas(dp *eim.DecoratedProblem, term string, fullSize int) ([]float64, error) {
	thetas, err := dp.ComputeTheta(term)
	if err != nil {
		return nil, err
	}
	if len(thetas) == fullSize {
		return thetas, nil
	}
	idx, err := dp.ExpansionIndices(term)
	if err != nil {
		return nil, err
	}
	if len(idx) != len(thetas) {
		return nil, fmt.Errorf("online: %d expansion positions for %d thetas of term %q",
			len(idx), len(thetas), term)
	}
	full := make([]float64, fullSize)
	for k, pos := range idx {
		full[pos] = thetas[k]
	}
	return full, nil
}

func runOnline(rp *InputParameters.ROMParameters, mu backends.Parameter, nEIM int) error {
	m, err := loadManifest(rp.OutputFolder)
	if err != nil {
		return err
	}
	problem := gaussian.New(m.GridPoints)
	dp, err := eim.NewDecoratedProblem(problem, rp.OutputFolder)
	if err != nil {
		return err
	}
	for key, a := range dp.Approximations() {
		if _, err = a.Load(); err != nil {
			return fmt.Errorf("loading EIM basis for factor %q: %w", key, err)
		}
	}
	if nEIM > 0 {
		dp.SetEIMOrder(nEIM)
	}
	dp.SetMu(mu)

	storages := make(map[string]*online.AffineExpansionStorage)
	for term, Q := range m.TermSizes {
		storage, err := online.NewAffineExpansionStorage(Q)
		if err != nil {
			return err
		}
		if _, err = storage.Load(rp.OutputFolder, "operator_"+term); err != nil {
			return err
		}
		storages[term] = storage
	}

	thetaA, err := expandedThetas(dp, "a", m.TermSizes["a"])
	if err != nil {
		return err
	}
	thetaF, err := expandedThetas(dp, "f", m.TermSizes["f"])
	if err != nil {
		return err
	}
	A, err := reduction.AssembleReducedMatrix(storages["a"], thetaA)
	if err != nil {
		return err
	}
	F, err := reduction.AssembleReducedVector(storages["f"], thetaF)
	if err != nil {
		return err
	}

	var (
		lu mat.LU
		uN = mat.NewVecDense(F.Len(), nil)
	)
	lu.Factorize(A.M)
	if err = lu.SolveVecTo(uN, false, F.V); err != nil {
		return fmt.Errorf("online: reduced solve failed: %w", err)
	}
	fmt.Printf("mu = %v, %d EIM thetas for term a\n", mu, len(thetaA))
	fmt.Printf("reduced solution coefficients = %v\n", uN.RawVector().Data)
	return nil
}
