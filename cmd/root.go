package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ispc-build/ispcb/internal/config"
	"github.com/ispc-build/ispcb/internal/version"
)

var rootCmd = &cobra.Command{
	Use:          "ispcb",
	Short:        "Multi-target ISPC build orchestrator",
	Long:         `Compile ISPC code for multiple SIMD ISA targets, merge the objects into one static library, and generate Go bindings for it.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(cacheCmd)

	viper.SetDefault("compiler_path", config.DefaultCompiler)
	viper.SetDefault("bindgen_path", config.DefaultBindgen)
	viper.SetDefault("out_dir", config.DefaultOutDir)
	viper.SetDefault("opt_level", config.DefaultOptLevel)
}
