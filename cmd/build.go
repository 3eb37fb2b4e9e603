package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ispc-build/ispcb/internal/config"
)

var buildCmd = &cobra.Command{
	Use:          "build [flags] <file.ispc>...",
	Short:        "Compile ISPC sources into a static library with bindings",
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.MinimumNArgs(1),
}

func init() {
	buildCmd.Flags().StringP("name", "n", "", "Library name (default: stem of the first source file)")
	buildCmd.Flags().StringSliceP("target", "t", nil, "Target ISAs (e.g. sse4-i32x4,avx2-i32x8)")
	buildCmd.Flags().IntP("opt-level", "O", config.DefaultOptLevel, "Optimization level (0-3)")
	buildCmd.Flags().BoolP("debug", "g", false, "Generate debug symbols")
	buildCmd.Flags().StringP("out", "o", config.DefaultOutDir, "Output directory")
	buildCmd.Flags().StringSliceP("include", "I", nil, "Include search paths")
	buildCmd.Flags().StringSliceP("define", "D", nil, "Preprocessor defines (KEY or KEY=VALUE)")
	buildCmd.Flags().String("math-lib", "default", "Math library (default, fast, svml, system)")
	buildCmd.Flags().Bool("pic", false, "Generate position independent code")
	buildCmd.Flags().IntP("jobs", "j", 0, "Max parallel compiler processes (default: CPU count)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	for _, file := range args {
		if !strings.HasSuffix(file, ".ispc") {
			return fmt.Errorf("%s: source files must have the .ispc extension", file)
		}
	}

	cfg, err := config.NewLoader().LoadForBuild(cmd, args)
	if err != nil {
		return err
	}

	cfg.Files(args...)

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		base := filepath.Base(args[0])
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	lib, err := cfg.Compile(name)
	if err != nil {
		return err
	}

	for _, w := range lib.Warnings {
		fmt.Printf("warning: %s\n", w)
	}

	fmt.Printf("library:  %s\n", lib.Path)
	fmt.Printf("header:   %s\n", lib.Header)
	fmt.Printf("bindings: %s\n", lib.Bindings)
	fmt.Printf("link:     %s\n", strings.Join(lib.LinkDirectives, " "))

	return nil
}
