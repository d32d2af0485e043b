package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gorom",
	Short: "Reduced order modeling for parametrized PDE problems",
	Long: `
Builds low dimensional surrogate models from high fidelity parametrized PDE
solves, using empirical interpolation to recover an affine expansion of
non-affine parametrized operators.

Run the offline stage once to build the interpolation bases and the reduced
operator expansions, then evaluate the reduced model online at any parameter.
`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.gorom.yaml)")
	rootCmd.PersistentFlags().StringP("input", "I", "rom_parameters.yaml",
		"YAML run parameters file")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		// Search config in home directory with name ".gorom" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".gorom")
	}
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
