package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ispc-build/ispcb/internal/locate"
)

var locateCmd = &cobra.Command{
	Use:          "locate <library>",
	Short:        "Resolve a prebuilt library for the host target triple",
	Long:         `Search the configured paths for a previously built library matching the host target triple and print its link directives. Used when the ISPC compiler is not installed.`,
	RunE:         runLocate,
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
}

func init() {
	locateCmd.Flags().StringSliceP("path", "p", nil, "Extra directories to search before "+locate.EnvSearchPath)
}

func runLocate(cmd *cobra.Command, args []string) error {
	paths, _ := cmd.Flags().GetStringSlice("path")

	result, err := locate.New(args[0], paths...).Resolve()
	if err != nil {
		return err
	}

	fmt.Printf("library: %s\n", result.Path)
	fmt.Printf("link:    %s\n", strings.Join(result.LinkDirectives, " "))

	return nil
}
